package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"e2ectl/internal/config"
	"e2ectl/internal/fixture"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove a fixture left behind by an earlier run",
		Long: `Clean reads the recovery record written during provisioning and
removes the user and thing it names. Use it when a run could not finish
its own cleanup, for example after a crash or a lost connection.

Clean is safe to repeat: resources the platform no longer knows about
are treated as already removed.`,
		RunE: runClean,
	}
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	store := newRecordStore(cfg)
	if store == nil {
		fmt.Println("Recovery record is disabled, nothing to clean")
		return nil
	}
	rec, err := store.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Println("No recovery record found, nothing to clean")
			return nil
		}
		return fmt.Errorf("reading recovery record: %w", err)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	fmt.Printf("Removing user %s and thing %s\n", rec.UserID, rec.ThingID)
	mgr := newFixtureManager(cfg)
	if err := mgr.Teardown(ctx, fixture.FromRecord(rec, cfg.Identity)); err != nil {
		return fmt.Errorf("cleanup failed, record kept for retry: %w", err)
	}

	fmt.Println("Cleanup complete")
	return nil
}
