package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/geosensing/allocator/internal/adapters/cache"
	"github.com/geosensing/allocator/internal/adapters/distance"
	"github.com/geosensing/allocator/internal/domain"
	"github.com/geosensing/allocator/internal/platform/db"
	"github.com/geosensing/allocator/internal/ports"
)

// Exit codes distinguish failure classes so batch callers can branch on
// them: bad input, external service trouble, solver failure, and exhausted
// worker capacity each get their own code.
const (
	exitValidation = 2
	exitService    = 3
	exitSolver     = 4
	exitCapacity   = 5
)

const usage = `Usage: allocator <command> [flags]

Commands:
  cluster   group points into k clusters
  route     order points into a visiting sequence
  assign    assign points to capacity-bound workers

Run "allocator <command> -h" for the command's flags.`

// main is the application composition root. It wires concrete adapters
// (distance backends, the matrix cache) behind ports and dispatches to the
// selected command.
func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(exitValidation)
	}

	ctx := context.Background()
	var err error
	switch os.Args[1] {
	case "cluster":
		err = runCluster(ctx, os.Args[2:])
	case "route":
		err = runRoute(ctx, os.Args[2:])
	case "assign":
		err = runAssign(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s\n", os.Args[1], usage)
		os.Exit(exitValidation)
	}

	if err != nil {
		slog.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var verr *domain.ValidationError
	var serr *domain.ServiceError
	var solerr *domain.SolverError
	var cerr *domain.CapacityError
	switch {
	case errors.As(err, &verr):
		return exitValidation
	case errors.As(err, &serr):
		return exitService
	case errors.As(err, &solerr):
		return exitSolver
	case errors.As(err, &cerr):
		return exitCapacity
	}
	return 1
}

// commonFlags are the flags every command shares: input/output paths, the
// output format, and the distance metric.
type commonFlags struct {
	input  string
	output string
	format string
	metric string
}

func registerCommon(fs *flag.FlagSet, cf *commonFlags) {
	fs.StringVar(&cf.input, "input", "", "input points CSV (longitude and latitude columns required)")
	fs.StringVar(&cf.output, "output", "", "output file path")
	fs.StringVar(&cf.format, "format", "csv", "output format: csv or json")
	fs.StringVar(&cf.metric, "metric", string(ports.MetricGreatCircle),
		"distance metric: planar, greatcircle, osrm or google")
}

func (cf *commonFlags) check() error {
	if cf.input == "" {
		return &domain.ValidationError{Field: "input", Reason: "flag is required"}
	}
	if cf.output == "" {
		return &domain.ValidationError{Field: "output", Reason: "flag is required"}
	}
	if cf.format != "csv" && cf.format != "json" {
		return &domain.ValidationError{Field: "format", Reason: fmt.Sprintf("unknown format %q", cf.format)}
	}
	if !ports.Metric(cf.metric).Valid() {
		return &domain.ValidationError{Field: "metric", Reason: fmt.Sprintf("unknown metric %q", cf.metric)}
	}
	return nil
}

// provider builds the distance backend for the selected metric, wiring the
// persistent matrix cache for remote metrics when DISTANCE_CACHE_URL is set.
func (cf *commonFlags) provider() (ports.MatrixProvider, func(), error) {
	cfg := distance.Config{
		OSRMBaseURL:  getEnv("OSRM_BASE_URL", distance.DefaultOSRMBaseURL),
		GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),
	}

	cleanup := func() {}
	metric := ports.Metric(cf.metric)
	if metric.Remote() {
		if url := os.Getenv("DISTANCE_CACHE_URL"); url != "" {
			mc, closeCache, err := openCache(url)
			if err != nil {
				return nil, nil, err
			}
			cfg.Cache = mc
			cleanup = closeCache
		}
	}

	p, err := distance.ForMetric(metric, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return p, cleanup, nil
}

// openCache picks the cache backend from the URL scheme: redis:// for a
// shared Redis hash cache, postgres:// for Postgres, anything else is taken
// as a SQLite file path.
func openCache(url string) (ports.MatrixCache, func(), error) {
	if strings.HasPrefix(url, "redis://") {
		opt, err := redis.ParseURL(url)
		if err != nil {
			return nil, nil, fmt.Errorf("open matrix cache: %w", err)
		}
		client := redis.NewClient(opt)
		return cache.NewRedisMatrixCache(client), func() { client.Close() }, nil
	}

	conn, err := db.Open(url)
	if err != nil {
		return nil, nil, err
	}
	if err := db.InitSchema(conn); err != nil {
		conn.Close()
		return nil, nil, err
	}
	if db.Postgres(url) {
		return cache.NewSQLMatrixCache(conn), func() { conn.Close() }, nil
	}
	return cache.NewSqliteMatrixCache(conn), func() { conn.Close() }, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
