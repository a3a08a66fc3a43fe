package cli

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"studysync/internal/app"
	"studysync/internal/config"
	"studysync/internal/logger"
)

var (
	configPath string

	appCfg *config.AppConfig
	appLog *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "studysync",
	Short: "Campus study assistant with document retrieval",
	Long: `StudySync answers student questions about RCPIT using uploaded study
material. Documents are extracted, chunked and embedded into a vector index;
questions are routed either to a keyword fast path or to retrieval-augmented
generation.`,
	SilenceUsage:      true,
	PersistentPreRunE: bootstrap,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config YAML (default ./config.yaml or user config dir)")
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if appLog != nil {
			appLog.Sync()
		}
	}()
	return rootCmd.Execute()
}

func bootstrap(cmd *cobra.Command, _ []string) error {
	// .env is optional
	_ = godotenv.Load()

	var err error
	if configPath != "" {
		appCfg, err = config.Load(configPath)
	} else {
		appCfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	appLog, err = logger.New(appCfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}

func newApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, appCfg, appLog)
	if err != nil {
		return nil, fmt.Errorf("init app: %w", err)
	}
	return a, nil
}
