package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var syncJSON bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile local assignments with the remote project",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, closeStore, err := openApp("[sync] ")
		if err != nil {
			return err
		}
		defer closeStore()

		result := a.Reconcile(cmd.Context())

		if syncJSON {
			return json.NewEncoder(os.Stdout).Encode(result)
		}

		fmt.Printf("Added:    %d\n", len(result.Added))
		fmt.Printf("Updated:  %d\n", len(result.Updated))
		fmt.Printf("Skipped:  %d local, %d completed remotely, %d unchanged, %d orphaned\n",
			len(result.Skipped.Local), len(result.Skipped.RemoteCompleted),
			len(result.Skipped.NoChanges), len(result.Skipped.Orphaned))
		fmt.Printf("Summary:  %d total, %d processed, %d failed\n",
			result.Summary.Total, result.Summary.Processed, result.Summary.Failed)
		for _, e := range result.Errors {
			fmt.Printf("  error: %s: %s\n", e.Title, e.Reason)
		}
		if result.Summary.Failed > 0 {
			return fmt.Errorf("%d of %d records failed", result.Summary.Failed, result.Summary.Total)
		}
		return nil
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Check the configured Todoist credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, closeStore, err := openApp("[test] ")
		if err != nil {
			return err
		}
		defer closeStore()

		token, _ := cmd.Flags().GetString("token")
		if a.TestCredential(cmd.Context(), token) {
			fmt.Println("Token: OK")
			return nil
		}
		return fmt.Errorf("token check failed")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store counts and last merge/sync times",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, closeStore, err := openApp("[status] ")
		if err != nil {
			return err
		}
		defer closeStore()

		st, err := a.Status()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "emit the full result as JSON")
	testCmd.Flags().String("token", "", "token to test (defaults to the configured one)")
	rootCmd.AddCommand(syncCmd, testCmd, statusCmd)
}
