package cmd

import (
	"github.com/spf13/cobra"
)

var stimulusCmd = &cobra.Command{
	Use:   "stimulus [scenario.yaml]",
	Short: "Render the stimulus command stream of a scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadScenario(args[0])
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			return s.WriteStimulus(cmd.OutOrStdout())
		}

		return s.WriteStimulusFile(out)
	},
}

func init() {
	stimulusCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")
	rootCmd.AddCommand(stimulusCmd)
}
