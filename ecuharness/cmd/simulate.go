package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/viaems/ecuharness/target"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [scenario.yaml]",
	Short: "Record the messages the in-process engine controller reports for a scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadOutputs(cmd)
		if err != nil {
			return err
		}

		s, err := loadScenario(args[0])
		if err != nil {
			return err
		}

		res, err := buildECU(cmd, config, newLogger(), false).
			Execute(context.Background(), s)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			return target.WriteJSONLines(cmd.OutOrStdout(), res.Messages)
		}

		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()

		return target.WriteJSONLines(f, res.Messages)
	},
}

func init() {
	addOutputsFlag(simulateCmd)
	addECUFlags(simulateCmd)
	simulateCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")
	rootCmd.AddCommand(simulateCmd)
}
