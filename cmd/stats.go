package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"schedadmin/internal/templates"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show schedule counters per scheduler",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout())
	defer cancel()

	client, err := newSchedulerClient(ctx)
	if err != nil {
		return err
	}
	stats, err := client.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}

	manager, err := templates.NewManager(nil)
	if err != nil {
		return err
	}
	out, err := manager.RenderStats(templates.StatsData{Stats: stats})
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
