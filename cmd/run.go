package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"e2ectl/internal/config"
	"e2ectl/internal/controlplane"
	"e2ectl/internal/fixture"
	"e2ectl/internal/livefeed"
	"e2ectl/internal/orchestrator"
	"e2ectl/internal/telemetry"
)

// runFlags holds the overrides the run command accepts on top of the
// layered configuration.
type runFlags struct {
	samples         int
	publishInterval time.Duration
	drainTimeout    time.Duration
	controlPlaneURL string
	brokerURL       string
	liveFeedURL     string
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full end-to-end exercise",
		Long: `Run provisions a fresh user and thing, publishes a burst of SenML
telemetry samples over MQTT while subscribed to the websocket live feed,
then removes the user and thing again.

The run always attempts cleanup, including on interrupt (Ctrl-C). If
cleanup cannot finish, the fixture ids are kept in a recovery record so
a later "e2ectl clean" can pick up where this run left off.

Example usage:
  e2ectl run                         # Exercise the platform with defaults
  e2ectl run --samples=20            # Publish 20 telemetry samples
  e2ectl run --publish-interval=1s   # One sample per second
  e2ectl run --control-plane=http://iot.example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, flags)
		},
	}

	cmd.Flags().IntVar(&flags.samples, "samples", 0, "Number of telemetry samples to publish")
	cmd.Flags().DurationVar(&flags.publishInterval, "publish-interval", 0, "Delay between telemetry samples")
	cmd.Flags().DurationVar(&flags.drainTimeout, "drain-timeout", 0, "How long to wait for the live feed to settle")
	cmd.Flags().StringVar(&flags.controlPlaneURL, "control-plane", "", "Control plane base URL")
	cmd.Flags().StringVar(&flags.brokerURL, "broker", "", "MQTT broker URL")
	cmd.Flags().StringVar(&flags.liveFeedURL, "live-feed", "", "Websocket live feed URL")

	return cmd
}

// loadRunConfig layers the file configuration and applies any flags the
// user set on top.
func loadRunConfig(cmd *cobra.Command, flags *runFlags) (config.E2ectlConfig, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.E2ectlConfig{}, fmt.Errorf("loading configuration: %w", err)
	}

	if cmd.Flags().Changed("samples") {
		cfg.Run.SampleCount = flags.samples
	}
	if cmd.Flags().Changed("publish-interval") {
		cfg.Run.PublishInterval = flags.publishInterval
	}
	if cmd.Flags().Changed("drain-timeout") {
		cfg.Run.DrainTimeout = flags.drainTimeout
	}
	if cmd.Flags().Changed("control-plane") {
		cfg.Platform.ControlPlaneURL = flags.controlPlaneURL
	}
	if cmd.Flags().Changed("broker") {
		cfg.Platform.BrokerURL = flags.brokerURL
	}
	if cmd.Flags().Changed("live-feed") {
		cfg.Platform.LiveFeedURL = flags.liveFeedURL
	}

	if err := config.Validate(cfg); err != nil {
		return config.E2ectlConfig{}, err
	}
	return cfg, nil
}

// newRecordStore builds the durable record store, or nil when the record
// path is empty, which disables the record.
func newRecordStore(cfg config.E2ectlConfig) *fixture.RecordStore {
	if cfg.Run.RecordPath == "" {
		return nil
	}
	return fixture.NewRecordStore(cfg.Run.RecordPath)
}

// newFixtureManager wires the control plane client and record store into
// a fixture manager. Shared by run, provision and clean.
func newFixtureManager(cfg config.E2ectlConfig) *fixture.Manager {
	client := controlplane.New(cfg.Platform.ControlPlaneURL, cfg.Platform.HTTPTimeout)
	return fixture.NewManager(client, cfg.Platform.AdminEmail, cfg.Platform.AdminPassword, newRecordStore(cfg))
}

// signalContext derives a context that is cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, cleaning up...")
		cancel()
	}()

	return ctx, cancel
}

func runRun(cmd *cobra.Command, flags *runFlags) error {
	cfg, err := loadRunConfig(cmd, flags)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	orch := orchestrator.New(orchestrator.Config{
		Fixtures:  newFixtureManager(cfg),
		Publisher: telemetry.NewPublisher(cfg.Platform.BrokerURL, cfg.Platform.QoS),
		Feed:      orchestrator.NewFeedSubscriber(livefeed.New(cfg.Platform.LiveFeedURL)),
		Identity:  cfg.Identity,
		Run:       cfg.Run,
	})

	out, runErr := orch.Run(ctx)
	printOutcome(out)

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	if out.Interrupted {
		return errors.New("run interrupted before completion")
	}
	if !out.Succeeded {
		return fmt.Errorf("run incomplete: published %d of %d samples",
			out.Published, cfg.Run.SampleCount)
	}
	return nil
}

// printOutcome writes the run summary to stdout.
func printOutcome(out *orchestrator.Outcome) {
	fmt.Println()
	if out.Succeeded {
		fmt.Println("Run succeeded")
	} else if out.Interrupted {
		fmt.Println("Run interrupted")
	} else {
		fmt.Println("Run failed")
	}

	if out.UserID != "" {
		fmt.Printf("  User:      %s\n", out.UserID)
		fmt.Printf("  Thing:     %s\n", out.ThingID)
	}
	fmt.Printf("  Published: %d\n", out.Published)
	fmt.Printf("  Received:  %d\n", out.Received)

	if len(out.Warnings) > 0 {
		fmt.Printf("  Warnings:  %d\n", len(out.Warnings))
		for _, w := range out.Warnings {
			fmt.Printf("    - %s\n", w.Message)
		}
	}
}
