// Command toast-etl runs the Toast POS ingestion pipelines: fetch, flatten
// and load into the DuckDB warehouse. The run summary is printed to stdout
// as JSON; logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/goforsam/toast-etl/pkg/auth"
	"github.com/goforsam/toast-etl/pkg/client"
	"github.com/goforsam/toast-etl/pkg/config"
	"github.com/goforsam/toast-etl/pkg/logging"
	"github.com/goforsam/toast-etl/pkg/pipeline"
	"github.com/goforsam/toast-etl/pkg/ratelimit"
	"github.com/goforsam/toast-etl/pkg/warehouse"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	run := flag.String("run", "all", "pipeline to run: orders, cash, labor, config, all")
	startDate := flag.String("start", "", "start date YYYY-MM-DD (default: yesterday UTC)")
	endDate := flag.String("end", "", "end date YYYY-MM-DD (default: start date)")
	tenant := flag.String("tenant", "", "run a single restaurant GUID instead of all configured tenants")
	flag.Parse()

	// Local .env files are optional; real deployments set the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})

	clientID, clientSecret, err := cfg.Credentials()
	if err != nil {
		logger.Fatal().Err(err).Msg("Missing API credentials")
	}

	tokens, err := auth.NewManager(auth.Config{
		BaseURL:      cfg.API.BaseURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Logger:       logging.NewLogger("auth"),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create token manager")
	}

	limiter := ratelimit.NewLimiter(cfg.RateLimitIntervals(), logging.NewLogger("ratelimit"))

	apiClient, err := client.New(client.Config{
		BaseURL:        cfg.API.BaseURL,
		Tokens:         tokens,
		Limiter:        limiter,
		PageSize:       cfg.API.PageSize,
		MaxPages:       cfg.API.MaxPages,
		RequestTimeout: cfg.API.RequestTimeout.Std(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create API client")
	}

	db, err := warehouse.Open(cfg.Warehouse.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Warehouse.Path).Msg("Failed to open warehouse")
	}
	defer db.Close()

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	tenants := selectTenants(cfg, *tenant)
	if len(tenants) == 0 {
		logger.Fatal().Msg("No tenants to process")
	}

	p := pipeline.New(apiClient, warehouse.NewLoader(db))
	results, runErr := runPipelines(context.Background(), p, *run, tenants, *startDate, *endDate)

	// The summary is written even for an aborted run; the partial counts
	// say how far it got.
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		logger.Fatal().Err(err).Msg("Failed to write run summary")
	}

	if runErr != nil {
		logger.Error().Err(runErr).Msg("Run aborted")
		os.Exit(1)
	}
}

// runPipelines dispatches to the requested pipeline(s) and collects their
// summaries keyed by pipeline name. A non-nil error means the run aborted
// (rejected credentials or an unknown target); summaries collected before
// the abort are still returned.
func runPipelines(ctx context.Context, p *pipeline.Pipeline, run string, tenants []string, startDate, endDate string) (map[string]any, error) {
	results := map[string]any{}

	runOrders := func() error {
		result, err := p.RunOrders(ctx, tenants, startDate, endDate)
		results["orders"] = result
		return err
	}
	runCash := func() error {
		result, err := p.RunCash(ctx, tenants, startDate, endDate)
		results["cash"] = result
		return err
	}
	runLabor := func() error {
		result, err := p.RunLabor(ctx, tenants, startDate, endDate)
		results["labor"] = result
		return err
	}
	runConfig := func() error {
		result, err := p.RunConfig(ctx, tenants)
		results["config"] = result
		return err
	}

	var steps []func() error
	switch run {
	case "orders":
		steps = []func() error{runOrders}
	case "cash":
		steps = []func() error{runCash}
	case "labor":
		steps = []func() error{runLabor}
	case "config":
		steps = []func() error{runConfig}
	case "all":
		steps = []func() error{runOrders, runCash, runLabor, runConfig}
	default:
		return nil, fmt.Errorf("unknown run target %q (want orders, cash, labor, config or all)", run)
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return results, err
		}
	}
	return results, nil
}

// selectTenants returns the configured tenant GUIDs, or just the override
// when one is given.
func selectTenants(cfg *config.Config, override string) []string {
	if override != "" {
		return []string{override}
	}
	return cfg.TenantGUIDs()
}

// serveMetrics exposes Prometheus metrics and a health probe.
func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	logger.Info().Str("addr", addr).Msg("Serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("Metrics server stopped")
	}
}
