package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/harrisonrobin/lmsync/pkg/api"
	"github.com/harrisonrobin/lmsync/pkg/logging"
	"github.com/harrisonrobin/lmsync/pkg/watch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the spool directory for scrape batches and reconcile on a timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cfg, closeStore, err := openApp("[watch] ")
		if err != nil {
			return err
		}
		defer closeStore()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		interval := time.Duration(cfg.ScrapeIntervalMinutes) * time.Minute
		logger := logging.New("[watch] ", cfg.LogFile)
		w := watch.New(a, cfg.SpoolDir, interval, logger)
		return w.Run(ctx)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cfg, closeStore, err := openApp("[serve] ")
		if err != nil {
			return err
		}
		defer closeStore()

		addr, _ := cmd.Flags().GetString("listen")
		if addr == "" {
			addr = cfg.ListenAddr
		}
		logger := logging.New("[api] ", cfg.LogFile)
		srv := api.NewServer(a, logger)
		fmt.Printf("Listening on %s\n", addr)
		return srv.Run(addr)
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (host:port)")
	rootCmd.AddCommand(watchCmd, serveCmd)
}
