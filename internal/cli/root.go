package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Execute parses argv and runs the selected subcommand.
func Execute() error {
	var (
		port       = envOr("PORT", "8080")
		configPath = envOr("CONFIG_PATH", "config/config.yaml")
	)

	root := &cobra.Command{
		Use:           "pyquest",
		Short:         "Answer scoring backend with AI-assisted grading",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&port, "port", port, "port to listen on")
	root.PersistentFlags().StringVar(&configPath, "config", configPath, "path to YAML config")

	root.AddCommand(NewStartCmd(&configPath, &port))
	root.AddCommand(NewMigrateCmd(&configPath))
	return root.Execute()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
