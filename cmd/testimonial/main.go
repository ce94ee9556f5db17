package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"testimonials/internal/app"
	"testimonials/internal/config"
	"testimonials/internal/logger"
)

// loader builds the application for one command invocation.
type loader func(ctx context.Context) (*app.App, error)

func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg, logger.New(cfg.LogLevel))
}

func newRootCmd(load loader) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "testimonial",
		Short: "Generate Hinglish product testimonials for a Shopify store",
		Long: `Generate short Hinglish customer testimonials with free LLM backends and
store them in the custom.ai_testimonial product metafield.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newGenerateCmd(load),
		newGenerateAllCmd(load),
		newModelsCmd(load),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(loadApp).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
