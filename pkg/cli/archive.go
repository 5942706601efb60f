package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage archived assignments",
}

var archiveRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Archive assignments completed longer ago than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, closeStore, err := openApp("[archive] ")
		if err != nil {
			return err
		}
		defer closeStore()

		days, _ := cmd.Flags().GetInt("retention-days")
		stats, err := a.ArchiveCompleted(days)
		if err != nil {
			return err
		}
		fmt.Printf("Archived %d assignments; %d remain active.\n", stats.ArchivedCount, stats.ActiveCount)
		return nil
	},
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archive entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, closeStore, err := openApp("[archive] ")
		if err != nil {
			return err
		}
		defer closeStore()

		entries, err := a.ListArchive()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	},
}

var archiveNowCmd = &cobra.Command{
	Use:   "now <id>",
	Short: "Archive one assignment immediately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, closeStore, err := openApp("[archive] ")
		if err != nil {
			return err
		}
		defer closeStore()
		if err := a.Archive(args[0]); err != nil {
			return err
		}
		fmt.Printf("Archived %s.\n", args[0])
		return nil
	},
}

var archiveRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Move an archived assignment back to the active store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, closeStore, err := openApp("[archive] ")
		if err != nil {
			return err
		}
		defer closeStore()
		if err := a.Restore(args[0]); err != nil {
			return err
		}
		fmt.Printf("Restored %s.\n", args[0])
		return nil
	},
}

var archiveDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Permanently delete an archive entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, closeStore, err := openApp("[archive] ")
		if err != nil {
			return err
		}
		defer closeStore()
		if err := a.DeleteArchived(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s from archive.\n", args[0])
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Wipe the store, archive and sync ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to wipe without --yes")
		}
		a, _, closeStore, err := openApp("[clear] ")
		if err != nil {
			return err
		}
		defer closeStore()
		if err := a.ClearAll(); err != nil {
			return err
		}
		fmt.Println("Store cleared.")
		return nil
	},
}

func init() {
	archiveRunCmd.Flags().Int("retention-days", 0, "override the configured retention window")
	clearCmd.Flags().Bool("yes", false, "confirm the wipe")
	archiveCmd.AddCommand(archiveRunCmd, archiveListCmd, archiveNowCmd, archiveRestoreCmd, archiveDeleteCmd)
	rootCmd.AddCommand(archiveCmd, clearCmd)
}
