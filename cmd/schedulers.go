package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"schedadmin/internal/kafka"
	logpkg "schedadmin/internal/log"
	"schedadmin/internal/templates"
)

var schedulersCmd = &cobra.Command{
	Use:   "schedulers",
	Short: "List schedulers and their instances",
	Long: `List the schedulers known to the admin API with their instances.

With --topics each scheduler's schedule and history topics are looked up on
its Kafka cluster and reported as present or missing.`,
	RunE: runSchedulers,
}

var schedulersTopics bool

func init() {
	rootCmd.AddCommand(schedulersCmd)
	schedulersCmd.Flags().BoolVar(&schedulersTopics, "topics", false, "Inspect each scheduler's Kafka topics")
}

func runSchedulers(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout())
	defer cancel()

	client, err := newSchedulerClient(ctx)
	if err != nil {
		return err
	}
	list, err := client.ListSchedulers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list schedulers: %w", err)
	}

	data := templates.SchedulersData{Schedulers: list}
	if schedulersTopics {
		logger := logpkg.Global()
		inspector := kafka.NewInspector(kafka.DialTCP, logger.With("component", "inspector"))
		data.Reports = make(map[string]*kafka.Report, len(list))
		for _, s := range list {
			report, err := inspector.Inspect(ctx, s)
			if err != nil {
				logger.Warn("topic inspection failed", "scheduler", s.Name, "error", err)
				continue
			}
			data.Reports[s.Name] = report
		}
	}

	manager, err := templates.NewManager(nil)
	if err != nil {
		return err
	}
	out, err := manager.RenderSchedulers(data)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
