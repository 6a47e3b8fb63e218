package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync batch and print the report",
	Long: `Run a single synchronization batch over all enrolled users (or one user
with --user) and print the resulting report as JSON on stdout.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	syncCmd.Flags().String("user", "", "Sync a single user instead of the full batch")

	if err := syncCmd.MarkFlagRequired("config"); err != nil {
		panic(fmt.Sprintf("failed to mark config flag as required: %v", err))
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	comps, err := buildComponents(ctx, configPath)
	if err != nil {
		return err
	}

	user, err := cmd.Flags().GetString("user")
	if err != nil {
		return err
	}

	if user != "" {
		record, err := comps.store.Get(ctx, user)
		if err != nil {
			return fmt.Errorf("failed to load user record: %w", err)
		}

		result := comps.engine.SyncUser(ctx, record)
		if err := printJSON(map[string]string{
			"id":      result.ID,
			"outcome": string(result.Outcome),
		}); err != nil {
			return err
		}
		if result.Err != nil {
			return fmt.Errorf("sync cycle failed: %w", result.Err)
		}
		return nil
	}

	report, err := comps.engine.SyncAll(ctx)
	if err != nil {
		return err
	}
	if err := printJSON(report); err != nil {
		return err
	}

	if failures := report.Failures(); failures > 0 {
		return fmt.Errorf("%d of %d sync cycles failed", failures, report.Processed())
	}
	return nil
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}
	fmt.Println(string(output))
	return nil
}
