package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harrisonrobin/lmsync/pkg/model"
	"github.com/harrisonrobin/lmsync/pkg/store"
)

func (s *Server) handleStatus(c *gin.Context) {
	st, err := s.app.Status()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleListAssignments(c *gin.Context) {
	records, err := s.app.ListAssignments()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []model.AssignmentRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"assignments": records, "count": len(records)})
}

func (s *Server) handleBatch(c *gin.Context) {
	var batch []model.RawAssignment
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch: " + err.Error()})
		return
	}
	merged, err := s.app.ScrapeAndMerge(c.Request.Context(), batch)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"merged": merged})
}

func (s *Server) handleSync(c *gin.Context) {
	result := s.app.Reconcile(c.Request.Context())
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleTestCredential(c *gin.Context) {
	ok := s.app.TestCredential(c.Request.Context(), c.Query("token"))
	c.JSON(http.StatusOK, gin.H{"ok": ok})
}

func (s *Server) handleListArchive(c *gin.Context) {
	entries, err := s.app.ListArchive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []model.ArchiveEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"archive": entries, "count": len(entries)})
}

func (s *Server) handleArchiveCleanup(c *gin.Context) {
	var req struct {
		RetentionDays int `json:"retention_days"`
	}
	// An empty body means "use the configured retention window".
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	stats, err := s.app.ArchiveCompleted(req.RetentionDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleArchiveOne(c *gin.Context) {
	if err := s.app.Archive(c.Param("id")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": c.Param("id")})
}

func (s *Server) handleRestore(c *gin.Context) {
	if err := s.app.Restore(c.Param("id")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotArchived) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"restored": c.Param("id")})
}

func (s *Server) handleDeleteArchived(c *gin.Context) {
	if err := s.app.DeleteArchived(c.Param("id")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotArchived) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (s *Server) handleClearAll(c *gin.Context) {
	if err := s.app.ClearAll(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
