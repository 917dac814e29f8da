// Command toast-backfill replays a historical date range through the
// ingestion pipelines in one-week chunks. The loader's merge semantics make
// replays safe: days already in the warehouse insert nothing new.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/goforsam/toast-etl/pkg/auth"
	"github.com/goforsam/toast-etl/pkg/client"
	"github.com/goforsam/toast-etl/pkg/config"
	"github.com/goforsam/toast-etl/pkg/logging"
	"github.com/goforsam/toast-etl/pkg/pipeline"
	"github.com/goforsam/toast-etl/pkg/ratelimit"
	"github.com/goforsam/toast-etl/pkg/warehouse"
)

const dateLayout = "2006-01-02"

// window is one inclusive backfill date range.
type window struct {
	Start string
	End   string
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	backfillType := flag.String("type", "all", "pipeline to backfill: orders, cash, labor, all")
	startDate := flag.String("start", "", "start date YYYY-MM-DD (required)")
	endDate := flag.String("end", "", "end date YYYY-MM-DD (default: yesterday UTC)")
	tenant := flag.String("tenant", "", "backfill a single restaurant GUID instead of all configured tenants")
	delay := flag.Duration("delay", 5*time.Second, "pause between week chunks")
	dryRun := flag.Bool("dry-run", false, "print the planned chunks without running them")
	flag.Parse()

	_ = godotenv.Load()

	if *startDate == "" {
		fmt.Fprintln(os.Stderr, "-start is required")
		os.Exit(1)
	}
	if *endDate == "" {
		*endDate = time.Now().UTC().AddDate(0, 0, -1).Format(dateLayout)
	}

	chunks, err := weekChunks(*startDate, *endDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid date range: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		for _, chunk := range chunks {
			fmt.Printf("%s .. %s\n", chunk.Start, chunk.End)
		}
		return
	}

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

	apiClient, err := client.New(client.Config{
		BaseURL:        cfg.API.BaseURL,
		Tokens:         tokens,
		Limiter:        ratelimit.NewLimiter(cfg.RateLimitIntervals(), logging.NewLogger("ratelimit")),
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

	tenants := cfg.TenantGUIDs()
	if *tenant != "" {
		tenants = []string{*tenant}
	}
	if len(tenants) == 0 {
		logger.Fatal().Msg("No tenants to process")
	}

	p := pipeline.New(apiClient, warehouse.NewLoader(db))
	ctx := context.Background()

	logger.Info().
		Str("type", *backfillType).
		Str("start", *startDate).
		Str("end", *endDate).
		Int("chunks", len(chunks)).
		Int("tenants", len(tenants)).
		Msg("Backfill starting")

	var rowsLoaded, errCount int
	for i, chunk := range chunks {
		loaded, errs, chunkErr := runChunk(ctx, p, *backfillType, tenants, chunk)
		rowsLoaded += loaded
		errCount += errs
		if chunkErr != nil {
			logger.Error().Err(chunkErr).
				Str("start", chunk.Start).
				Str("end", chunk.End).
				Msg("Backfill aborted")
			os.Exit(1)
		}

		logger.Info().
			Str("start", chunk.Start).
			Str("end", chunk.End).
			Int("rows_loaded", loaded).
			Int("errors", errs).
			Msg("Chunk complete")

		if i < len(chunks)-1 {
			time.Sleep(*delay)
		}
	}

	logger.Info().
		Int("chunks", len(chunks)).
		Int("rows_loaded", rowsLoaded).
		Int("errors", errCount).
		Msg("Backfill complete")

	if errCount > 0 {
		os.Exit(1)
	}
}

// runChunk runs the selected pipelines for one window and returns the rows
// loaded and error count. A non-nil error means the run aborted and the
// remaining chunks should not be attempted.
func runChunk(ctx context.Context, p *pipeline.Pipeline, backfillType string, tenants []string, chunk window) (loaded, errs int, err error) {
	if backfillType == "orders" || backfillType == "all" {
		result, runErr := p.RunOrders(ctx, tenants, chunk.Start, chunk.End)
		loaded += result.RowsLoaded
		errs += len(result.Errors)
		if runErr != nil {
			return loaded, errs, runErr
		}
	}
	if backfillType == "cash" || backfillType == "all" {
		result, runErr := p.RunCash(ctx, tenants, chunk.Start, chunk.End)
		loaded += result.EntriesLoaded + result.DepositsLoaded
		errs += len(result.Errors)
		if runErr != nil {
			return loaded, errs, runErr
		}
	}
	if backfillType == "labor" || backfillType == "all" {
		result, runErr := p.RunLabor(ctx, tenants, chunk.Start, chunk.End)
		loaded += result.ShiftsLoaded
		errs += len(result.Errors)
		if runErr != nil {
			return loaded, errs, runErr
		}
	}
	return loaded, errs, nil
}

// weekChunks splits an inclusive date range into consecutive windows of at
// most seven days.
func weekChunks(startDate, endDate string) ([]window, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("parse start date: %w", err)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("parse end date: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s", endDate, startDate)
	}

	var chunks []window
	for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, 0, 7) {
		chunkEnd := cursor.AddDate(0, 0, 6)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		chunks = append(chunks, window{
			Start: cursor.Format(dateLayout),
			End:   chunkEnd.Format(dateLayout),
		})
	}
	return chunks, nil
}
