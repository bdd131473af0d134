package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"schedadmin/internal/avro"
	"schedadmin/internal/endpoints"
	logpkg "schedadmin/internal/log"
	"schedadmin/internal/scheduler"
	"schedadmin/internal/search"
)

const defaultRequestTimeout = 30 * time.Second

// loadEndpoints resolves the endpoint document named by the configuration
// key, or builds the default one on top of api_root.
func loadEndpoints(ctx context.Context) (*endpoints.Endpoints, error) {
	if source := viper.GetString("configuration"); source != "" {
		ep, err := endpoints.Open(ctx, nil, source)
		if err != nil {
			return nil, fmt.Errorf("failed to load endpoint configuration: %w", err)
		}
		return ep, nil
	}
	return endpoints.New(endpoints.DefaultDocument(viper.GetString("api_root")))
}

func requestTimeout() time.Duration {
	if d := viper.GetDuration("request_timeout"); d > 0 {
		return d
	}
	return defaultRequestTimeout
}

// newSchedulerClient builds the scheduler API client from configuration.
func newSchedulerClient(ctx context.Context) (*scheduler.Client, error) {
	ep, err := loadEndpoints(ctx)
	if err != nil {
		return nil, err
	}
	return scheduler.NewClient(ep,
		scheduler.WithLogger(logpkg.Global().With("component", "scheduler-client")),
		scheduler.WithTimeout(requestTimeout()))
}

// newValueDecoder renders payloads as UTF-8 text, trying Avro first when a
// schema registry is configured.
func newValueDecoder() *scheduler.ValueDecoder {
	logger := logpkg.Global()
	var decoders []scheduler.PayloadDecoder
	if url := viper.GetString("schema_registry_url"); url != "" {
		decoders = append(decoders, avro.NewRegistryDecoder(url, logger.With("component", "avro")))
	}
	return scheduler.NewValueDecoder(logger, decoders...)
}

func stateFilePath() (string, error) {
	if p := viper.GetString("state_file"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".schedadmin-state.json"), nil
}

// openStateStore opens the file remembering search criteria between runs.
func openStateStore() (*search.FileStore, error) {
	path, err := stateFilePath()
	if err != nil {
		return nil, fmt.Errorf("failed to locate state file: %w", err)
	}
	return search.OpenFileStore(path)
}
