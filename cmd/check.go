package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riferrei/srclient"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"schedadmin/internal/kafka"
	logpkg "schedadmin/internal/log"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check connectivity to the scheduler API and its dependencies",
	Long: `Check validates the configuration and reports what the console can reach:

- The endpoint configuration document
- The scheduler list
- The stats endpoint, when configured
- Each scheduler's Kafka topics
- The schema registry, when configured`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("🔍 Checking scheduler API configuration...")
	client, err := newSchedulerClient(ctx)
	if err != nil {
		fmt.Printf("❌ Configuration failed: %v\n", err)
		return err
	}
	fmt.Printf("✅ API root: %s\n", client.Endpoints().APIRoot())

	list, err := client.ListSchedulers(ctx)
	if err != nil {
		fmt.Printf("❌ Scheduler listing failed: %v\n", err)
		return err
	}
	fmt.Printf("✅ %d scheduler(s) listed\n", len(list))

	var failed []string
	if _, err := client.Endpoints().Stats(); err != nil {
		fmt.Println("⚠️  Stats endpoint not configured")
	} else if _, err := client.Stats(ctx); err != nil {
		fmt.Printf("❌ Stats failed: %v\n", err)
		failed = append(failed, "stats")
	} else {
		fmt.Println("✅ Stats available")
	}

	inspector := kafka.NewInspector(kafka.DialTCP, logpkg.Global().With("component", "inspector"))
	for _, s := range list {
		report, err := inspector.Inspect(ctx, s)
		if err != nil {
			fmt.Printf("❌ %s: Kafka unreachable: %v\n", s.Name, err)
			failed = append(failed, "kafka "+s.Name)
			continue
		}
		if missing := report.Missing(); len(missing) > 0 {
			fmt.Printf("⚠️  %s: missing topics %v\n", s.Name, missing)
			continue
		}
		fmt.Printf("✅ %s: %d topic(s) present\n", s.Name, len(report.Topics))
	}

	if url := viper.GetString("schema_registry_url"); url != "" {
		registry := srclient.CreateSchemaRegistryClient(url)
		subjects, err := registry.GetSubjects()
		if err != nil {
			fmt.Printf("❌ Schema registry %s unreachable: %v\n", url, err)
			failed = append(failed, "schema registry")
		} else {
			fmt.Printf("✅ Schema registry reachable (%d subject(s))\n", len(subjects))
		}
	}
	return checkResult(failed)
}

// checkResult turns the failed check names into the command error.
func checkResult(failed []string) error {
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d check(s) failed: %s", len(failed), strings.Join(failed, ", "))
}
