// Package api exposes the app operations to the UI/scheduler collaborator
// over a localhost HTTP JSON interface.
package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harrisonrobin/lmsync/pkg/app"
)

// Server wraps the gin router around an App.
type Server struct {
	app    *app.App
	router *gin.Engine
	logger *log.Logger
}

// NewServer builds the router. gin runs in release mode; this is a local
// control surface, not a public service.
func NewServer(a *app.App, logger *log.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{app: a, router: router, logger: logger}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", s.handleStatus)
		v1.GET("/assignments", s.handleListAssignments)
		v1.POST("/assignments/batch", s.handleBatch)
		v1.POST("/sync", s.handleSync)
		v1.GET("/credential/test", s.handleTestCredential)
		v1.GET("/archive", s.handleListArchive)
		v1.POST("/archive/cleanup", s.handleArchiveCleanup)
		v1.POST("/archive/:id", s.handleArchiveOne)
		v1.POST("/archive/:id/restore", s.handleRestore)
		v1.DELETE("/archive/:id", s.handleDeleteArchived)
		v1.DELETE("/data", s.handleClearAll)
	}

	return s
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Printf("listening on %s", addr)
	return s.router.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
