package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "schedadmin",
	Short: "Administration console for the Kafka message scheduler",
	Long: `schedadmin browses the schedules held by Kafka message schedulers
through their admin REST API. It provides:

- A browser console (serve) with live, history and all-schedules searches
- Scheduler topology and Kafka topic inspection
- Schedule search and per-schedule version history from the command line
- Avro payload rendering through a schema registry
- Per-scheduler schedule counters`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.schedadmin.yaml)")
	rootCmd.PersistentFlags().String("configuration", "", "URL or path of the endpoint configuration document (configuration.json)")
	rootCmd.PersistentFlags().String("api-root", "http://localhost:8080", "Scheduler API root used when no configuration document is given")
	rootCmd.PersistentFlags().String("schema-registry-url", "", "Schema Registry URL used to render Avro payloads")
	rootCmd.PersistentFlags().Duration("request-timeout", defaultRequestTimeout, "Timeout of each scheduler API request")
	rootCmd.PersistentFlags().String("state-file", "", "File remembering the last search criteria (default is $HOME/.schedadmin-state.json)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	_ = viper.BindPFlag("configuration", rootCmd.PersistentFlags().Lookup("configuration"))
	_ = viper.BindPFlag("api_root", rootCmd.PersistentFlags().Lookup("api-root"))
	_ = viper.BindPFlag("schema_registry_url", rootCmd.PersistentFlags().Lookup("schema-registry-url"))
	_ = viper.BindPFlag("request_timeout", rootCmd.PersistentFlags().Lookup("request-timeout"))
	_ = viper.BindPFlag("state_file", rootCmd.PersistentFlags().Lookup("state-file"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	viper.SetDefault("api_root", "http://localhost:8080")
	viper.SetDefault("request_timeout", defaultRequestTimeout)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".schedadmin")
	}

	viper.SetEnvPrefix("SCHEDADMIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
