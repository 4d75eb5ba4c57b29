package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viaems/ecuharness/harness"
	"github.com/viaems/ecuharness/target"
)

var validateCmd = &cobra.Command{
	Use:   "validate [scenario.yaml] [messages.jsonl]",
	Short: "Validate messages recorded from a target against the scenario that produced them",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadOutputs(cmd)
		if err != nil {
			return err
		}

		s, err := loadScenario(args[0])
		if err != nil {
			return err
		}

		h := harness.MakeBuilder().WithConfig(config).Build()

		res, err := h.Run(context.Background(), s, target.NewReplaySession(args[1]))
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", res.Scenario, res.Verdict)

		if !res.Verdict.Passed {
			return fmt.Errorf("%s failed", res.Scenario)
		}

		return nil
	},
}

func init() {
	addOutputsFlag(validateCmd)
	rootCmd.AddCommand(validateCmd)
}
