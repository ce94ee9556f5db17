package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"testimonials/internal/api"
	"testimonials/internal/app"
	"testimonials/internal/config"
	"testimonials/internal/logger"
)

var (
	initOnce sync.Once
	server   *api.Server
	initErr  error
)

// initServer wires the application once per function instance. Missing
// secrets are not an error here; the routes report them per request.
func initServer() {
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}

	log := logger.New(cfg.LogLevel)

	a, err := app.Build(context.Background(), cfg, log)
	if err != nil {
		initErr = err
		return
	}

	server = api.New(a)
}

// Handler is the Vercel entry point. Every /api/* request is routed here.
func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(initServer)
	if initErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "{\"error\":%q}", fmt.Sprintf("Initialization failed: %v", initErr))
		return
	}

	server.Handler().ServeHTTP(w, r)
}
