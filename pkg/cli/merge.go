package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/lmsync/pkg/model"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [file]",
	Short: "Merge a scraped batch into the local store",
	Long: `Read a JSON array of raw scraped assignments from a file (or stdin
when the argument is "-" or omitted) and merge it into the local store.
Items without a derivable identifier are dropped and counted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = os.Stdin
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open batch file: %w", err)
			}
			defer f.Close()
			in = f
		}

		var batch []model.RawAssignment
		if err := json.NewDecoder(in).Decode(&batch); err != nil {
			return fmt.Errorf("failed to decode batch: %w", err)
		}

		a, _, closeStore, err := openApp("[merge] ")
		if err != nil {
			return err
		}
		defer closeStore()

		merged, err := a.ScrapeAndMerge(cmd.Context(), batch)
		if err != nil {
			return err
		}
		fmt.Printf("Merged %d assignments; store holds %d.\n", len(batch), merged)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
