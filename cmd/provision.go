package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"e2ectl/internal/config"
)

func newProvisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Provision a user and thing without running the exercise",
		Long: `Provision creates the user and thing on the platform and stops there,
leaving them in place. The fixture ids are printed and written to the
recovery record, so a later "e2ectl clean" can remove them.

This is an operator utility for poking at the platform by hand; the run
command provisions its own fixture.`,
		RunE: runProvision,
	}
}

func runProvision(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	mgr := newFixtureManager(cfg)
	fix, err := mgr.Provision(ctx, cfg.Identity)
	if err != nil {
		return fmt.Errorf("provisioning failed: %w", err)
	}

	fmt.Printf("Provisioned user %s with thing %s\n", fix.UserID, fix.ThingID)
	fmt.Printf("Thing token: %s\n", fix.ThingToken)
	fmt.Printf("Recovery record written to %s\n", cfg.Run.RecordPath)
	return nil
}
