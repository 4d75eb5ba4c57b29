// Package cmd provides the command-line interface of the ECU harness.
package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// Environment variables that supply flag defaults. They may also be set in a
// .env file in the working directory.
const (
	envRecordDB    = "ECUHARNESS_RECORD_DB"
	envMonitorPort = "ECUHARNESS_MONITOR_PORT"
	envOutputs     = "ECUHARNESS_OUTPUTS"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ecuharness",
	Short: "Verify the output timing of an engine controller against scripted scenarios.",
	Long: `ecuharness drives an engine controller with scripted crank, cam and ` +
		`sensor stimulus, reconciles what it reports onto the stimulus clock and ` +
		`checks every fuel and ignition firing against the output schedule.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"log every event of the in-process target")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "", log.LstdFlags)
}

// stringFlagOrEnv returns the flag value if it was given and the environment
// value otherwise.
func stringFlagOrEnv(cmd *cobra.Command, flag, env string) string {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}

	if v, ok := os.LookupEnv(env); ok {
		return v
	}

	v, _ := cmd.Flags().GetString(flag)

	return v
}
