package cmd

import (
	"fmt"
	"os"
	"strings"

	logpkg "schedadmin/internal/log"

	"github.com/spf13/viper"
)

// setupLogging installs the global logger once flags and config are loaded.
func setupLogging() error {
	// Environment variable override takes precedence over flag binding if explicitly set.
	levelStr := viper.GetString("log_level")
	if envLevel := os.Getenv("SCHEDADMIN_LOG_LEVEL"); envLevel != "" {
		levelStr = envLevel
	}
	lvl, levelErr := logpkg.ParseLevel(levelStr)

	var logger logpkg.Logger
	switch format := strings.ToLower(viper.GetString("log_format")); format {
	case "", "text":
		logger = logpkg.NewSimple(lvl)
	case "json":
		z, err := logpkg.NewZap(lvl)
		if err != nil {
			return fmt.Errorf("failed to build json logger: %w", err)
		}
		logger = z
	default:
		return fmt.Errorf("unknown log format %q (expected text or json)", format)
	}
	if levelErr != nil {
		logger.Warn("invalid log level requested, using info", "requested", levelStr, "error", levelErr)
	}
	logpkg.SetGlobal(logger)
	return nil
}
