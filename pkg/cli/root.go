// Package cli wires the lmsync commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/lmsync/pkg/app"
	"github.com/harrisonrobin/lmsync/pkg/config"
	"github.com/harrisonrobin/lmsync/pkg/logging"
	"github.com/harrisonrobin/lmsync/pkg/store"
)

var rootCmd = &cobra.Command{
	Use:   "lmsync",
	Short: "Sync LMS assignments to Todoist",
	Long: `lmsync keeps a durable local record of assignments scraped from a
learning management system and reconciles them with a Todoist project.

The scraper is an external collaborator: it hands batches of observed
assignments to 'lmsync merge' (or drops them into the spool directory
consumed by 'lmsync watch'), and lmsync takes it from there.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openApp loads config, opens the store and builds the App. The returned
// closer must be deferred.
func openApp(prefix string) (*app.App, *config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.New(prefix, cfg.LogFile)
	return app.New(cfg, st, logger), cfg, func() { _ = st.Close() }, nil
}
