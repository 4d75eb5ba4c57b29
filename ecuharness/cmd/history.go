package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/viaems/ecuharness/recording"
)

var historyCmd = &cobra.Command{
	Use:   "history [runs.sqlite3]",
	Short: "List recorded runs, or the firings of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := recording.NewReader(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer w.Flush()

		runID, _ := cmd.Flags().GetString("run")
		if runID == "" {
			runs, err := reader.Runs(context.Background())
			if err != nil {
				return err
			}

			fmt.Fprintln(w, "RUN\tSCENARIO\tFIRINGS\tPASSED\tREASON")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%s\n",
					r.RunID, r.Scenario, r.Firings, r.Passed, r.Reason)
			}

			return nil
		}

		firings, err := reader.Firings(context.Background(), runID)
		if err != nil {
			return err
		}

		fmt.Fprintln(w, "TIME\tPIN\tKIND\tCYCLE\tDURATION_US\tEND_ANGLE\tADVANCE")
		for _, f := range firings {
			fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%.1f\t%.2f\t%.2f\n",
				f.Time, f.Pin, f.Kind, f.Cycle, f.DurationUS, f.EndAngle, f.Advance)
		}

		return nil
	},
}

func init() {
	historyCmd.Flags().String("run", "", "show the firings of this run")
	rootCmd.AddCommand(historyCmd)
}
