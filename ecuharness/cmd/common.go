package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/viaems/ecuharness/outputs"
	"github.com/viaems/ecuharness/scenario"
	"github.com/viaems/ecuharness/target/simecu"
)

func addOutputsFlag(cmd *cobra.Command) {
	cmd.Flags().String("outputs", "",
		"YAML output schedule (default: the built-in 9-output schedule, or $"+envOutputs+")")
}

func loadOutputs(cmd *cobra.Command) (*outputs.Config, error) {
	path := stringFlagOrEnv(cmd, "outputs", envOutputs)
	if path == "" {
		return outputs.Default(), nil
	}

	return outputs.LoadFile(path)
}

func loadScenario(path string) (*scenario.Scenario, error) {
	script, err := scenario.LoadScriptFile(path)
	if err != nil {
		return nil, err
	}

	return script.Build()
}

// addECUFlags adds the flags that shape the in-process engine controller.
func addECUFlags(cmd *cobra.Command) {
	cmd.Flags().Int64("clock-offset", 0, "target clock offset in ticks")
	cmd.Flags().Float64("drift-ppm", 0, "target clock drift in parts per million")
	cmd.Flags().Float64("fuel-error", 0, "extra fuel pulse width in microseconds")
}

func buildECU(
	cmd *cobra.Command,
	config *outputs.Config,
	logger *log.Logger,
	capture bool,
) *simecu.ECU {
	offset, _ := cmd.Flags().GetInt64("clock-offset")
	drift, _ := cmd.Flags().GetFloat64("drift-ppm")
	fuelError, _ := cmd.Flags().GetFloat64("fuel-error")

	b := simecu.MakeBuilder().
		WithConfig(config).
		WithClockOffset(offset).
		WithDriftPPM(drift).
		WithFuelError(fuelError)

	if capture {
		b = b.WithCapture(0)
	}

	if verbose {
		b = b.WithLogger(logger)
	}

	return b.Build()
}
