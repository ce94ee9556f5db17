package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testimonials/internal/app"
	"testimonials/internal/config"
	"testimonials/internal/generation"
	"testimonials/internal/logger"
)

type stubCatalog []generation.CatalogEntry

func (s stubCatalog) ListModels(context.Context) ([]generation.CatalogEntry, error) {
	return s, nil
}

func staticLoader(a *app.App) loader {
	return func(context.Context) (*app.App, error) { return a, nil }
}

func run(t *testing.T, load loader, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(load)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestModelsCommand(t *testing.T) {
	a := &app.App{
		Config: &config.Config{},
		Logger: logger.Nop(),
		Catalog: stubCatalog{
			{ID: "paid/x", ContextLength: 1000, PromptPrice: "0.1", CompletionPrice: "0.1"},
			{ID: "free/y:free", Name: "Y", ContextLength: 32000},
		},
	}

	out, err := run(t, staticLoader(a), "models")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 2 models are free")
	assert.Contains(t, out, "free/y:free")
	assert.NotContains(t, out, "paid/x")
}

func TestModelsCommandWithoutKey(t *testing.T) {
	a := &app.App{Config: &config.Config{}, Logger: logger.Nop()}

	_, err := run(t, staticLoader(a), "models")
	assert.EqualError(t, err, "OPENROUTER_API_KEY is not set")
}

func TestGenerateReportsMissingSecrets(t *testing.T) {
	a := &app.App{Config: &config.Config{}, Logger: logger.Nop()}

	_, err := run(t, staticLoader(a), "generate", "42")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingSecrets)
}

func TestGenerateRejectsBadID(t *testing.T) {
	loaded := false
	load := func(context.Context) (*app.App, error) {
		loaded = true
		return nil, nil
	}

	_, err := run(t, load, "generate", "not-a-product")
	require.Error(t, err)
	assert.False(t, loaded)
}

func TestGenerateAllRejectsLimit(t *testing.T) {
	a := &app.App{Config: &config.Config{}, Logger: logger.Nop()}

	_, err := run(t, staticLoader(a), "generate-all", "--limit", "500")
	assert.Error(t, err)
}
