package app

import (
	"context"
	"fmt"

	"testimonials/internal/config"
	"testimonials/internal/database"
	"testimonials/internal/events"
	"testimonials/internal/generation"
	"testimonials/internal/logger"
	"testimonials/internal/services/gemini"
	"testimonials/internal/services/openrouter"
	"testimonials/internal/services/shopify"
	"testimonials/internal/services/testimonial"
)

// App holds the wired dependencies shared by the server, worker and CLI.
// Optional parts are nil when their configuration is absent.
type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	Service   *testimonial.Service
	Driver    *generation.Driver
	Catalog   generation.Catalog
	Journal   *database.Journal
	Publisher *events.Publisher

	closers []func() error
}

// Build wires everything cfg enables. Service and Driver stay nil when
// required secrets are missing so the HTTP layer can report them per request.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{Config: cfg, Logger: log}

	if cfg.DatabaseURL != "" {
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.Journal = database.NewJournal(db)
		a.closers = append(a.closers, db.Close)
	}

	if cfg.HasOpenRouter() {
		a.Catalog = a.buildCatalog(ctx)
	}

	if cfg.QueueWebhooks() {
		pub := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		a.Publisher = pub
		a.closers = append(a.closers, pub.Close)
	}

	if err := cfg.Validate(); err != nil {
		log.Warn("Generation disabled: %v", err)
		return a, nil
	}

	backends, err := Backends(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	resolver, err := a.buildResolver()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Driver = generation.NewDriver(backends, resolver, DriverOptions(cfg), log)

	store := shopify.NewClient(cfg.ShopifyStore, cfg.ShopifyAccessToken, cfg.ShopifyAPIVersion, log)
	opts := testimonial.Options{
		BulkDelay: cfg.BulkDelay,
		PageSize:  cfg.BulkPageSize,
	}
	if a.Journal != nil {
		opts.Journal = a.Journal
	}
	a.Service = testimonial.NewService(store, a.Driver, opts, log)

	return a, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close: %v", err)
		}
	}
	a.closers = nil
}

func (a *App) buildCatalog(ctx context.Context) generation.Catalog {
	cfg := a.Config
	catalog := openrouter.NewCatalog(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, nil)
	if cfg.RedisURL == "" {
		return catalog
	}

	store, err := openrouter.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		a.Logger.Warn("Model catalog cache disabled: %v", err)
		return catalog
	}
	a.closers = append(a.closers, store.Close)
	return openrouter.NewCachedCatalog(catalog, store, cfg.CatalogCacheTTL, a.Logger)
}

func (a *App) buildResolver() (generation.Resolver, error) {
	static, err := StaticCandidates(a.Config)
	if err != nil {
		return nil, err
	}
	fallback := generation.NewStaticResolver(static)

	if a.Config.CandidateStrategy != config.StrategyDiscovery || a.Catalog == nil {
		return fallback, nil
	}

	discovery := generation.NewDiscoveryResolver(a.Catalog, generation.BackendOpenRouter, a.Config.MaxCandidates, fallback, a.Logger)

	// Discovery only lists OpenRouter models. Configured non-OpenRouter
	// candidates are still tried after them.
	var others []generation.Candidate
	for _, c := range static {
		if c.Backend != generation.BackendOpenRouter {
			others = append(others, c)
		}
	}
	if len(others) == 0 {
		return discovery, nil
	}
	return generation.NewChainResolver(discovery, generation.NewStaticResolver(others)), nil
}

// Backends builds one adapter per configured API key.
func Backends(ctx context.Context, cfg *config.Config) (map[string]generation.Backend, error) {
	backends := map[string]generation.Backend{}
	if cfg.HasOpenRouter() {
		backends[generation.BackendOpenRouter] = openrouter.NewBackend(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, nil)
	}
	if cfg.HasGemini() {
		b, err := gemini.NewBackend(ctx, cfg.GeminiAPIKey, "")
		if err != nil {
			return nil, err
		}
		backends[generation.BackendGemini] = b
	}
	return backends, nil
}

// StaticCandidates parses CANDIDATES, or falls back to the built-in lists for
// the configured backends. Bare model ids belong to OpenRouter when its key
// is set, otherwise to Gemini.
func StaticCandidates(cfg *config.Config) ([]generation.Candidate, error) {
	if len(cfg.Candidates) == 0 {
		return generation.DefaultCandidates(cfg.HasOpenRouter(), cfg.HasGemini()), nil
	}

	defaultBackend := generation.BackendGemini
	if cfg.HasOpenRouter() {
		defaultBackend = generation.BackendOpenRouter
	}

	out := make([]generation.Candidate, 0, len(cfg.Candidates))
	for _, raw := range cfg.Candidates {
		c, err := generation.ParseCandidate(raw, defaultBackend)
		if err != nil {
			return nil, fmt.Errorf("invalid CANDIDATES entry: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

func DriverOptions(cfg *config.Config) generation.Options {
	params := generation.DefaultParams
	if cfg.MaxOutputTokens > 0 {
		params.MaxTokens = cfg.MaxOutputTokens
	}
	if cfg.Temperature > 0 {
		params.Temperature = cfg.Temperature
	}
	return generation.Options{
		Params:           params,
		CallTimeout:      cfg.RequestTimeout,
		RateLimitBackoff: cfg.RateLimitBackoff,
		RateLimitRetries: cfg.RateLimitRetries,
		ErrorDelay:       cfg.ErrorDelay,
	}
}
