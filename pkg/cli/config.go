package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/harrisonrobin/lmsync/pkg/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		// Do not leak the token to the terminal.
		redacted := *cfg
		if redacted.Token != "" {
			redacted.Token = "(set)"
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(redacted)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and write it back to the config file.

Keys: token, project, date-mode, scrape-interval, retention-days,
db-path, spool-dir, log-file, listen-addr`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		key, value := args[0], args[1]
		switch key {
		case "token":
			cfg.Token = value
		case "project":
			cfg.ProjectName = value
		case "date-mode":
			if value != "exact" && value != "smart" {
				return fmt.Errorf("date-mode must be exact or smart, got %q", value)
			}
			cfg.DateMode = value
		case "scrape-interval":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return fmt.Errorf("scrape-interval must be a non-negative number of minutes")
			}
			cfg.ScrapeIntervalMinutes = n
		case "retention-days":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return fmt.Errorf("retention-days must be a positive number")
			}
			cfg.RetentionDays = n
		case "db-path":
			cfg.DBPath = value
		case "spool-dir":
			cfg.SpoolDir = value
		case "log-file":
			cfg.LogFile = value
		case "listen-addr":
			cfg.ListenAddr = value
		default:
			return fmt.Errorf("unknown config key %q", key)
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		path, _ := config.Path()
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
