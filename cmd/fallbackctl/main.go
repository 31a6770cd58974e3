package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amerfu/llm-fallback/cmd/fallbackctl/commands"
)

var (
	apiURL     string
	timeout    time.Duration
	outputJSON bool
	verbose    bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fallbackctl",
		Short: "llm-fallback operator CLI",
		Long: `Inspect cool-off state and send test queries to a running llm-fallback proxy.
The proxy URL defaults to $LLM_FALLBACK_URL or http://localhost:8080.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if apiURL == "" {
				apiURL = os.Getenv("LLM_FALLBACK_URL")
			}
			if apiURL == "" {
				apiURL = "http://localhost:8080"
			}
			commands.SetAPIConfig(apiURL, timeout)
			commands.SetOutputJSON(outputJSON)
			commands.SetVerbose(verbose)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "proxy base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")

	ctx := context.Background()
	rootCmd.AddCommand(commands.NewStatusCommand(ctx))
	rootCmd.AddCommand(commands.NewQueryCommand(ctx))

	return rootCmd
}
