package generation

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"testimonials/internal/logger"
	"testimonials/internal/metrics"
)

// Resolver produces the ordered candidate list for one call. Implementations
// never fail; they fall back to a static list instead.
type Resolver interface {
	Resolve(ctx context.Context) []Candidate
}

// Hand-curated free-tier models, best first.
var (
	DefaultOpenRouterModels = []string{
		"meta-llama/llama-3.3-70b-instruct:free",
		"deepseek/deepseek-chat-v3-0324:free",
		"google/gemini-2.0-flash-exp:free",
		"qwen/qwen-2.5-72b-instruct:free",
		"mistralai/mistral-7b-instruct:free",
	}
	DefaultGeminiModels = []string{
		"gemini-2.0-flash",
		"gemini-1.5-flash",
	}
)

// DefaultCandidates lists the built-in models for the enabled backends.
func DefaultCandidates(openRouter, gemini bool) []Candidate {
	var out []Candidate
	if openRouter {
		for _, m := range DefaultOpenRouterModels {
			out = append(out, Candidate{Backend: BackendOpenRouter, Model: m})
		}
	}
	if gemini {
		for _, m := range DefaultGeminiModels {
			out = append(out, Candidate{Backend: BackendGemini, Model: m})
		}
	}
	return out
}

type StaticResolver struct {
	candidates []Candidate
}

func NewStaticResolver(candidates []Candidate) *StaticResolver {
	return &StaticResolver{candidates: append([]Candidate(nil), candidates...)}
}

func (s *StaticResolver) Resolve(context.Context) []Candidate {
	return append([]Candidate(nil), s.candidates...)
}

// ChainResolver concatenates the lists of several resolvers in order,
// dropping repeated candidates.
type ChainResolver struct {
	resolvers []Resolver
}

func NewChainResolver(resolvers ...Resolver) *ChainResolver {
	return &ChainResolver{resolvers: resolvers}
}

func (c *ChainResolver) Resolve(ctx context.Context) []Candidate {
	var out []Candidate
	seen := map[Candidate]bool{}
	for _, r := range c.resolvers {
		for _, cand := range r.Resolve(ctx) {
			if seen[cand] {
				continue
			}
			seen[cand] = true
			out = append(out, cand)
		}
	}
	return out
}

// CatalogEntry is one model from a provider's catalog. Prices are the decimal
// strings the provider reports per token.
type CatalogEntry struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ContextLength   int    `json:"context_length"`
	PromptPrice     string `json:"prompt_price"`
	CompletionPrice string `json:"completion_price"`
}

// Free reports zero prompt and completion price, or the ":free" naming convention.
func (e CatalogEntry) Free() bool {
	if strings.Contains(e.ID, ":free") {
		return true
	}
	return priceIsZero(e.PromptPrice) && priceIsZero(e.CompletionPrice)
}

// Unparseable or missing prices count as paid.
func priceIsZero(s string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil && v == 0
}

// Catalog lists the models a provider offers.
type Catalog interface {
	ListModels(ctx context.Context) ([]CatalogEntry, error)
}

// FreeEntries keeps free entries, largest context window first. Ties keep
// catalog order.
func FreeEntries(entries []CatalogEntry) []CatalogEntry {
	var free []CatalogEntry
	for _, e := range entries {
		if e.ID != "" && e.Free() {
			free = append(free, e)
		}
	}
	sort.SliceStable(free, func(i, j int) bool {
		return free[i].ContextLength > free[j].ContextLength
	})
	return free
}

// DiscoveryResolver builds candidates from a live catalog.
type DiscoveryResolver struct {
	catalog  Catalog
	backend  string
	limit    int
	fallback Resolver
	logger   *logger.Logger
}

func NewDiscoveryResolver(catalog Catalog, backend string, limit int, fallback Resolver, log *logger.Logger) *DiscoveryResolver {
	if log == nil {
		log = logger.Nop()
	}
	return &DiscoveryResolver{
		catalog:  catalog,
		backend:  backend,
		limit:    limit,
		fallback: fallback,
		logger:   log,
	}
}

func (r *DiscoveryResolver) Resolve(ctx context.Context) []Candidate {
	entries, err := r.catalog.ListModels(ctx)
	if err != nil {
		r.logger.Warn("model discovery failed, using static list: %v", err)
		metrics.ObserveCatalog("fallback")
		return r.fallback.Resolve(ctx)
	}

	free := FreeEntries(entries)
	if len(free) == 0 {
		r.logger.Warn("model discovery found no free models among %d, using static list", len(entries))
		metrics.ObserveCatalog("fallback")
		return r.fallback.Resolve(ctx)
	}
	if r.limit > 0 && len(free) > r.limit {
		free = free[:r.limit]
	}

	out := make([]Candidate, len(free))
	for i, e := range free {
		out[i] = Candidate{Backend: r.backend, Model: e.ID}
	}
	metrics.ObserveCatalog("fetched")
	r.logger.Debug("model discovery resolved %d candidates", len(out))
	return out
}
