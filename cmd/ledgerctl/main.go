package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ministore/internal/analytics"
	"ministore/internal/apperror"
	"ministore/internal/cache"
	"ministore/internal/config"
	"ministore/internal/domain"
	"ministore/internal/logger"
	"ministore/internal/service"
	"ministore/internal/store"
	"ministore/internal/store/filestore"
	"ministore/internal/store/memory"
	pgstore "ministore/internal/store/postgres"
)

const usage = `usage: ledgerctl <command> [flags]

commands:
  health                       report backend health
  init                         create the schema or data file
  seed                         load the demo catalog
  cleanup                      delete every record and reset ids
  items [-search s] [-category c] [-page n] [-limit n] [-sort field] [-order asc|desc]
  alerts                       stock and expiry alerts, most severe first
  low [-threshold n]           low-stock items, optionally against one threshold
  dashboard                    dashboard statistics
  top [-limit n]               top-selling items
  report -from YYYY-MM-DD -to YYYY-MM-DD
  integrity                    scan for dangling references and mismatched totals`

var errUsage = errors.New(usage)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 1
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.Development(), OutputPaths: []string{"stderr"}})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	svc, closeAll, err := bootstrap(ctx, cfg, log)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		return 1
	}
	defer closeAll()

	if err := execute(ctx, svc, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			return exitCode(err)
		}
		if apperror.CodeOf(err) == apperror.CodeInternal {
			logger.Error(ctx, "command failed", "command", os.Args[1], "error", err)
		}
		writeError(os.Stderr, err, cfg.Development())
		return exitCode(err)
	}
	return 0
}

// exitCode maps a command error to the process status: 2 for usage, 3 for
// rejected input, 4 for a missing record, 1 for anything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	case apperror.IsValidation(err), apperror.IsConflict(err):
		return 3
	case apperror.IsNotFound(err):
		return 4
	}
	return 1
}

// bootstrap opens the configured backend and cache and wires the service.
// The returned func releases whatever was opened.
func bootstrap(ctx context.Context, cfg config.Config, log *logger.Logger) (*service.Service, func(), error) {
	closers := make([]func() error, 0, 2)
	closeAll := func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warnw("close failed", "error", err)
			}
		}
	}

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return nil, closeAll, err
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}

	dashboards, closeCache := openCache(ctx, cfg, log)
	if closeCache != nil {
		closers = append(closers, closeCache)
	}

	engine := analytics.New(repo, analytics.WithLocation(cfg.Location))
	svc := service.New(repo, engine,
		service.WithDashboardCache(dashboards, cfg.DashboardCacheTTL),
		service.WithLogger(log),
	)
	if err := svc.Initialize(ctx); err != nil {
		closeAll()
		return nil, func() {}, err
	}
	if cfg.SeedDemoData {
		if err := svc.SeedDemoData(ctx); err != nil {
			closeAll()
			return nil, func() {}, err
		}
	}
	return svc, closeAll, nil
}

func openRepository(ctx context.Context, cfg config.Config, log *logger.Logger) (store.Repository, func() error, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		pg, err := pgstore.New(connectCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres unavailable: %w", err)
		}
		log.Infow("repository selected", "backend", "postgres")
		return pg, pg.Close, nil
	case config.BackendFile:
		log.Infow("repository selected", "backend", "file", "path", cfg.DataFile)
		return filestore.New(cfg.DataFile, log), nil, nil
	case config.BackendMemory:
		log.Infow("repository selected", "backend", "memory")
		return memory.New(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// openCache prefers Redis when configured and reachable. The in-process cache
// only helps within one invocation, so without Redis caching is off.
func openCache(ctx context.Context, cfg config.Config, log *logger.Logger) (cache.DashboardCache, func() error) {
	if cfg.RedisAddr == "" {
		log.Debugw("dashboard cache disabled")
		return cache.NoopDashboardCache{}, nil
	}
	redisCache := cache.NewRedisDashboardCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := redisCache.Ping(pingCtx); err != nil {
		log.Warnw("redis unavailable, dashboard cache disabled", "addr", cfg.RedisAddr, "error", err)
		_ = redisCache.Close()
		return cache.NoopDashboardCache{}, nil
	}
	log.Infow("dashboard cache selected", "backend", "redis", "addr", cfg.RedisAddr)
	return redisCache, redisCache.Close
}

func execute(ctx context.Context, svc *service.Service, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	logger.Debug(ctx, "running command", "command", cmd, "args", rest)

	switch cmd {
	case "health":
		status := svc.HealthCheck(ctx)
		if err := writeJSON(out, status); err != nil {
			return err
		}
		if status.Status == domain.HealthUnhealthy {
			return apperror.NewInternal(errors.New(status.Message))
		}
		return nil
	case "init":
		// bootstrap already initialized the backend.
		return writeJSON(out, map[string]string{"status": "initialized"})
	case "seed":
		if err := svc.SeedDemoData(ctx); err != nil {
			return err
		}
		return writeJSON(out, map[string]string{"status": "seeded"})
	case "cleanup":
		if err := svc.Cleanup(ctx); err != nil {
			return err
		}
		return writeJSON(out, map[string]string{"status": "cleaned"})
	case "items":
		q, err := parseItemQuery(rest)
		if err != nil {
			return err
		}
		page, err := svc.GetItems(ctx, q)
		if err != nil {
			return err
		}
		return writeJSON(out, page)
	case "alerts":
		alerts, err := svc.Alerts(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, alerts)
	case "low":
		fs := newFlagSet("low")
		threshold := fs.Int("threshold", -1, "shared threshold; items' own thresholds when unset")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		var items []domain.Item
		var err error
		if *threshold < 0 {
			items, err = svc.LowStockItems(ctx)
		} else {
			items, err = svc.LowStockItemsAt(ctx, *threshold)
		}
		if err != nil {
			return err
		}
		return writeJSON(out, items)
	case "dashboard":
		stats, err := svc.DashboardStats(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, stats)
	case "top":
		fs := newFlagSet("top")
		limit := fs.Int("limit", analytics.DefaultTopSellingLimit, "number of items")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		top, err := svc.TopSellingItems(ctx, *limit, nil, nil)
		if err != nil {
			return err
		}
		return writeJSON(out, top)
	case "report":
		from, to, err := parseReportRange(rest, svc.Analytics().Location())
		if err != nil {
			return err
		}
		report, err := svc.SalesReport(ctx, from, to)
		if err != nil {
			return err
		}
		return writeJSON(out, report)
	case "integrity":
		report, err := svc.IntegrityCheck(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, report)
	}
	return fmt.Errorf("%w\n\nunknown command %q", errUsage, cmd)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseItemQuery(args []string) (domain.ItemQuery, error) {
	var q domain.ItemQuery
	fs := newFlagSet("items")
	fs.StringVar(&q.Search, "search", "", "match name or code")
	fs.StringVar(&q.Category, "category", "", "exact category")
	fs.IntVar(&q.Page, "page", store.DefaultPage, "page number")
	fs.IntVar(&q.Limit, "limit", store.DefaultLimit, "page size")
	fs.StringVar(&q.SortBy, "sort", "", "name, createdAt, price or stockQuantity")
	fs.StringVar(&q.SortOrder, "order", "asc", "asc or desc")
	if err := fs.Parse(args); err != nil {
		return domain.ItemQuery{}, errUsage
	}
	return q, nil
}

// parseReportRange reads -from and -to as calendar dates in loc. The range
// covers the whole of the last day.
func parseReportRange(args []string, loc *time.Location) (time.Time, time.Time, error) {
	fs := newFlagSet("report")
	fromFlag := fs.String("from", "", "first day, YYYY-MM-DD")
	toFlag := fs.String("to", "", "last day, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil || *fromFlag == "" || *toFlag == "" {
		return time.Time{}, time.Time{}, errUsage
	}
	from, err := time.ParseInLocation(time.DateOnly, *fromFlag, loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperror.NewValidation("from must be a YYYY-MM-DD date").WithDetail("from", *fromFlag)
	}
	to, err := time.ParseInLocation(time.DateOnly, *toFlag, loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperror.NewValidation("to must be a YYYY-MM-DD date").WithDetail("to", *toFlag)
	}
	return from, to.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeError(w io.Writer, err error, development bool) {
	ae, ok := apperror.AsAppError(err)
	if !ok {
		ae = apperror.NewInternal(err)
	}
	_ = writeJSON(w, map[string]any{"error": ae.Public(development)})
}
