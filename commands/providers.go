package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/teamscribe/scribe/config"
	"github.com/teamscribe/scribe/extraction"
	"github.com/teamscribe/scribe/llm"
)

func newProvidersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List registered providers and their credential status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			logger := newLogger()

			cfg, err := config.NewLoader(logger).Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			for _, name := range llm.ListProviders() {
				status := "ready"
				if err := extraction.ValidateProvider(name, cfg); err != nil {
					status = err.Error()
				}
				marker := " "
				if name == cfg.Extraction.Provider {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-10s model=%-30s %s\n",
					marker, name, llm.ModelName(name), status)
			}
			return nil
		},
	}
}
