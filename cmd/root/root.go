// Package root contains the root command for the application
package root

import (
	"fmt"

	"jamledger/stmt-ingest/internal/config"
	"jamledger/stmt-ingest/internal/container"
	"jamledger/stmt-ingest/internal/fileutils"
	"jamledger/stmt-ingest/internal/logging"

	"github.com/spf13/cobra"
)

// CommonFlags represents the flags that are common to multiple commands
type CommonFlags struct {
	Input      string
	Output     string
	ConfigFile string
	LogLevel   string
}

var (
	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "stmt-ingest",
		Short: "A CLI tool to import bank statements and categorize their transactions.",
		Long: `stmt-ingest extracts transaction tables from PDF bank statements or reads CSV exports,
cleans them, assigns each transaction a category and stores the batch in a database.`,
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// SharedFlags holds the persistent flags.
	SharedFlags = CommonFlags{}

	appContainer *container.Container
	log          = logging.GetLogger()
)

// Init registers the persistent flags.
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Input, "input", "i", "", "Input file")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Output, "output", "o", "", "Output file")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.ConfigFile, "config", "c", "", "Config file (default: ./config.yaml or $HOME/.stmt-ingest/config.yaml)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Override log.level")
}

func setup(cmd *cobra.Command, args []string) error {
	config.LoadEnv()

	cfg, err := config.InitializeConfigWithFile(SharedFlags.ConfigFile)
	if err != nil {
		return err
	}
	if SharedFlags.LogLevel != "" {
		cfg.Log.Level = SharedFlags.LogLevel
	}

	log = config.ConfigureLoggingFromConfig(cfg)
	logging.SetLogger(log)

	c, err := container.NewContainerWithLogger(cfg, log)
	if err != nil {
		return fmt.Errorf("error initializing application: %w", err)
	}
	appContainer = c
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if appContainer == nil {
		return nil
	}
	err := appContainer.Close()
	appContainer = nil
	return err
}

// GetContainer returns the container built for the running command.
func GetContainer() *container.Container {
	return appContainer
}

// GetLogger returns the configured command logger.
func GetLogger() logging.Logger {
	return log
}

// RequireInput returns the --input flag once it names an existing file.
func RequireInput() (string, error) {
	if SharedFlags.Input == "" {
		return "", fmt.Errorf("--input is required")
	}
	if err := fileutils.RequireFile(SharedFlags.Input); err != nil {
		return "", err
	}
	return SharedFlags.Input, nil
}

// RequireOutput returns the --output flag or an error naming it.
func RequireOutput() (string, error) {
	if SharedFlags.Output == "" {
		return "", fmt.Errorf("--output is required")
	}
	return SharedFlags.Output, nil
}
