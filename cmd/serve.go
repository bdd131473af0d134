package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"schedadmin/internal/console"
	"schedadmin/internal/kafka"
	logpkg "schedadmin/internal/log"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the administration console",
	Long: `Serve the browser console and its API.

The console provides:
- Searches over all, live and history schedules with shareable addresses
- Schedule detail with every stored version and rendered payloads
- Scheduler topology and Kafka topic inspection
- Live search state pushed over WebSocket connections

Static files are served from --dist when it exists, from the bundle built
into the binary otherwise. Unknown paths fall back to index.html.`,
	Example: `  # Serve on $PORT, or 5000
  schedadmin serve

  # Serve a custom bundle against a remote configuration document
  schedadmin serve --dist ./dist --configuration http://scheduler:8080/configuration.json`,
	RunE: runServe,
}

var (
	servePort       int
	serveDist       string
	serveSessionTTL time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", defaultPort(), "Console port (default from $PORT, else 5000)")
	serveCmd.Flags().StringVar(&serveDist, "dist", "/usr/share/ui-dist", "Directory holding the built console")
	serveCmd.Flags().DurationVar(&serveSessionTTL, "session-ttl", 30*time.Minute, "Idle time after which a console page session is dropped")
}

// defaultPort reads PORT, falling back to 5000.
func defaultPort() int {
	if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil && p > 0 {
		return p
	}
	return 5000
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := logpkg.Global()
	client, err := newSchedulerClient(ctx)
	if err != nil {
		return err
	}

	server := console.NewConsoleServer(console.Config{
		Port:           servePort,
		DistDir:        serveDist,
		RequestTimeout: requestTimeout(),
		SessionTTL:     serveSessionTTL,
		Location:       time.Local,
	}, client,
		console.WithLogger(logger.With("component", "console")),
		console.WithValueDecoder(newValueDecoder()),
		console.WithInspector(kafka.NewInspector(kafka.DialTCP, logger.With("component", "inspector"))),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	fmt.Printf("🌐 Console available at http://localhost:%d\n", servePort)
	fmt.Println("💡 Press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("console server failed: %w", err)
		}
		return nil
	case sig := <-sigCh:
		logger.Info("shutting down console", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop console server: %w", err)
	}
	return <-errCh
}
