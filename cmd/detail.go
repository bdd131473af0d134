package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"schedadmin/internal/endpoints"
	"schedadmin/internal/scheduler"
	"schedadmin/internal/templates"
)

var detailCmd = &cobra.Command{
	Use:   "detail <all|live|history> <scheduler> <schedule-id>",
	Short: "Show every stored version of a schedule",
	Long: `Show the version history of one schedule. Payloads are rendered as text,
decoded from Avro when --schema-registry-url is set.`,
	Example: `  schedadmin detail live sched-A 7f0c2d1e`,
	Args:    cobra.ExactArgs(3),
	RunE:    runDetail,
}

func init() {
	rootCmd.AddCommand(detailCmd)
}

func runDetail(cmd *cobra.Command, args []string) error {
	kind, err := endpoints.ParseKind(args[0])
	if err != nil {
		return err
	}
	name, id := args[1], args[2]

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout())
	defer cancel()

	client, err := newSchedulerClient(ctx)
	if err != nil {
		return err
	}
	versions, err := client.Detail(ctx, kind, name, id)
	if errors.Is(err, scheduler.ErrNotFound) {
		return fmt.Errorf("schedule %s not found in %s schedules of %s", id, kind, name)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch schedule: %w", err)
	}

	values := newValueDecoder()
	data := templates.DetailData{Kind: kind, Scheduler: name, ID: id}
	for _, v := range versions {
		data.Versions = append(data.Versions, templates.DetailVersion{Schedule: v, Payload: values.Decode(ctx, v.Value)})
	}

	manager, err := templates.NewManager(nil)
	if err != nil {
		return err
	}
	out, err := manager.RenderDetail(data)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
