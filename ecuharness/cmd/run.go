package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/viaems/ecuharness/harness"
	"github.com/viaems/ecuharness/monitoring"
	"github.com/viaems/ecuharness/recording"
)

var runCmd = &cobra.Command{
	Use:   "run [scenario.yaml]...",
	Short: "Run scenarios against the in-process engine controller",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScenarios,
}

func init() {
	addOutputsFlag(runCmd)
	runCmd.Flags().String("record", "",
		"record runs into this SQLite database path, without extension (default $"+envRecordDB+")")
	runCmd.Flags().Bool("monitor", false, "serve run results over HTTP")
	runCmd.Flags().Int("port", 0, "monitoring port (default $"+envMonitorPort+" or random)")
	runCmd.Flags().Bool("open", false, "open the monitoring page in a browser")
	addECUFlags(runCmd)
	runCmd.Flags().Bool("capture", false, "validate an independent capture instead of target reports")

	rootCmd.AddCommand(runCmd)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	config, err := loadOutputs(cmd)
	if err != nil {
		return err
	}

	logger := newLogger()
	hb := harness.MakeBuilder().WithConfig(config).WithLogger(logger)

	if path := stringFlagOrEnv(cmd, "record", envRecordDB); path != "" {
		recorder := recording.New(path)
		defer recorder.Close()
		hb = hb.WithRecorder(recorder)
	}

	capture, _ := cmd.Flags().GetBool("capture")
	if capture {
		hb = hb.WithCaptureOutputs()
	}

	h := hb.Build()
	ecu := buildECU(cmd, config, logger, capture)

	monitor, err := startMonitor(cmd)
	if err != nil {
		return err
	}

	var bar *monitoring.ProgressBar
	if monitor != nil {
		bar = monitor.CreateProgressBar("scenarios", uint64(len(args)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	failed := 0
	for _, path := range args {
		s, err := loadScenario(path)
		if err != nil {
			return err
		}

		if bar != nil {
			bar.IncrementInProgress(1)
		}

		res, err := h.Run(ctx, s, ecu)
		if err != nil {
			return err
		}

		if !res.Verdict.Passed {
			failed++
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", res.RunID, res.Scenario, res.Verdict)

		if monitor != nil {
			monitor.RegisterRun(res, s)
			bar.MoveInProgressToFinished(1, res.Verdict.Passed)
		}
	}

	if monitor != nil {
		monitor.CompleteProgressBar(bar)
		fmt.Fprintln(os.Stderr, "Press Ctrl-C to stop the monitoring server.")
		<-ctx.Done()
		monitor.StopServer()
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
	}

	return nil
}

func startMonitor(cmd *cobra.Command) (*monitoring.Monitor, error) {
	on, _ := cmd.Flags().GetBool("monitor")
	if !on {
		return nil, nil
	}

	port, _ := cmd.Flags().GetInt("port")
	if !cmd.Flags().Changed("port") {
		if env, ok := os.LookupEnv(envMonitorPort); ok {
			p, err := strconv.Atoi(env)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", envMonitorPort, err)
			}
			port = p
		}
	}

	m := monitoring.NewMonitor().WithPortNumber(port)
	m.StartServer()

	open, _ := cmd.Flags().GetBool("open")
	if open {
		if err := m.OpenInBrowser(); err != nil {
			return nil, err
		}
	}

	return m, nil
}
