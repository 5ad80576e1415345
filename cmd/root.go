package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"e2ectl/pkg/logging"
)

var logLevelFlag string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "e2ectl",
	Short: "Exercise an IoT platform end to end",
	Long: `e2ectl drives a complete end-to-end exercise of an IoT platform:
it provisions a throwaway user and thing through the control plane,
publishes SenML telemetry over MQTT while watching the websocket live
feed, and tears everything down again afterwards.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. failed runs, unreachable platform)
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logging.ParseLevel(logLevelFlag), os.Stderr)
	},
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "e2ectl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newProvisionCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newVersionCmd())
}
