package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"testimonials/internal/app"
	"testimonials/internal/generation"
	"testimonials/internal/models"
	"testimonials/internal/services/testimonial"
)

func newGenerateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <product-id>",
		Short: "Generate and store a testimonial for one product",
		Long: `Generate a testimonial for one product and upsert it into the product's
custom.ai_testimonial metafield. The id may be numeric or a
gid://shopify/Product/<id> string.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := testimonial.ParseProductID(args[0])
			if err != nil {
				return err
			}

			a, err := requireService(cmd, load)
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.Service.GenerateForProduct(cmd.Context(), productID, models.SourceCLI)
			if err != nil {
				return err
			}
			return printJSON(cmd, outcome)
		},
	}
}

func newGenerateAllCmd(load loader) *cobra.Command {
	var (
		limit    int
		pageInfo string
	)

	cmd := &cobra.Command{
		Use:   "generate-all",
		Short: "Generate testimonials for one page of products",
		Long: `Walk one page of products in order, generating and storing a testimonial
for each. Failures are reported per product and do not stop the run. Use the
printed next_page_info with --page-info to continue.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 || limit > testimonial.MaxPageSize {
				return fmt.Errorf("--limit must be between 1 and %d", testimonial.MaxPageSize)
			}

			a, err := requireService(cmd, load)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Service.GenerateAll(cmd.Context(), limit, pageInfo)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "products per page (default BULK_PAGE_SIZE, max 250)")
	cmd.Flags().StringVar(&pageInfo, "page-info", "", "cursor from a previous run's next_page_info")
	return cmd
}

func newModelsCmd(load loader) *cobra.Command {
	var showCandidates bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List free OpenRouter models",
		Long: `List the free models in the OpenRouter catalog, largest context window
first. With --candidates, print the resolved candidate order instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if showCandidates {
				if a.Driver == nil {
					return a.Config.Validate()
				}
				for i, c := range a.Driver.Candidates(cmd.Context()) {
					fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s\n", i+1, c)
				}
				return nil
			}

			if a.Catalog == nil {
				return fmt.Errorf("OPENROUTER_API_KEY is not set")
			}
			entries, err := a.Catalog.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			free := generation.FreeEntries(entries)
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d models are free\n", len(free), len(entries))
			for _, m := range free {
				fmt.Fprintf(cmd.OutOrStdout(), "%-60s %8d  %s\n", m.ID, m.ContextLength, m.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showCandidates, "candidates", false, "print the resolved candidate order")
	return cmd
}

func requireService(cmd *cobra.Command, load loader) (*app.App, error) {
	a, err := load(cmd.Context())
	if err != nil {
		return nil, err
	}
	if a.Service == nil {
		defer a.Close()
		return nil, a.Config.Validate()
	}
	return a, nil
}
