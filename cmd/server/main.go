// Package main runs the launch pipeline daemon: the detector, performance
// monitor, strategy gate, and opportunity executor on their own timers,
// sharing one process and one store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"launchlab/internal/config"
	"launchlab/internal/detector"
	"launchlab/internal/executor"
	"launchlab/internal/gate"
	"launchlab/internal/health"
	"launchlab/internal/marketdata"
	"launchlab/internal/monitor"
	"launchlab/internal/notify"
	"launchlab/internal/observability"
	"launchlab/internal/sched"
	"launchlab/internal/storage"
	chstore "launchlab/internal/storage/clickhouse"
	"launchlab/internal/storage/memory"
	"launchlab/internal/storage/migrations"
	pgstore "launchlab/internal/storage/postgres"
)

// stores holds the persistence backends the pipeline shares.
type stores struct {
	tokens     storage.TokenStore
	launches   storage.LaunchStore
	analyses   storage.LaunchAnalysisStore
	strategies storage.StrategyStore
	portfolios storage.PortfolioStore
	trades     storage.TradeStore
	archive    storage.SnapshotArchive
}

func main() {
	loadEnvFile()

	configPath := flag.String("config", os.Getenv("LAUNCHLAB_CONFIG"), "Path to YAML config file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	redisAddr := flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "Redis address for the feed cache")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	addr := flag.String("addr", "", "HTTP address for health/metrics/status (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickhouseDSN = *clickhouseDSN
	}
	if *redisAddr != "" {
		cfg.Storage.RedisAddr = *redisAddr
	}
	if *useMemory {
		cfg.Storage.UseMemory = true
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log := newLogger(cfg.Logging)

	if !cfg.Storage.UseMemory && (cfg.Storage.PostgresDSN == "" || cfg.Storage.ClickhouseDSN == "") {
		log.Fatal().Msg("postgres and clickhouse DSNs are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	if err := run(ctx, cancel, cfg, st, log); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("daemon failed")
	}
	log.Info().Msg("shutdown complete")
}

func newLogger(cfg config.Logging) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

// createStores builds the persistence layer and runs migrations.
func createStores(ctx context.Context, cfg config.Storage, log zerolog.Logger) (*stores, func(), error) {
	if cfg.UseMemory {
		log.Info().Msg("using in-memory storage")
		return &stores{
			tokens:     memory.NewTokenStore(),
			launches:   memory.NewLaunchStore(),
			analyses:   memory.NewLaunchAnalysisStore(),
			strategies: memory.NewStrategyStore(),
			portfolios: memory.NewPortfolioStore(),
			trades:     memory.NewTradeStore(),
			archive:    memory.NewSnapshotArchive(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		conn.Close()
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	st := &stores{
		tokens:     pgstore.NewTokenStore(pool),
		launches:   pgstore.NewLaunchStore(pool),
		analyses:   pgstore.NewLaunchAnalysisStore(pool),
		strategies: pgstore.NewStrategyStore(pool),
		portfolios: pgstore.NewPortfolioStore(pool),
		trades:     pgstore.NewTradeStore(pool),
		archive:    chstore.NewSnapshotArchive(conn),
	}
	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return st, cleanup, nil
}

func run(ctx context.Context, cancel context.CancelFunc, cfg config.Config, st *stores, log zerolog.Logger) error {
	// Feed client with cache
	var cache marketdata.Cache
	if cfg.Storage.RedisAddr != "" {
		redisCache := marketdata.NewRedisCache(cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
		defer redisCache.Close()
		cache = redisCache
	} else {
		cache = marketdata.NewMemoryCache()
	}

	feedConfig := marketdata.DefaultClientConfig()
	feedConfig.BaseURL = cfg.Feed.BaseURL
	feedConfig.SearchQuery = cfg.Feed.SearchQuery
	feedConfig.MinRequestSpacing = cfg.Feed.MinRequestSpacing.Std()
	feedConfig.CacheTTL = cfg.Feed.CacheTTL.Std()
	feedConfig.MaxRetries = cfg.Feed.MaxRetries
	gateway := marketdata.NewClient(feedConfig, cache, log)

	// Event bus: the monitor and the log sink consume pipeline events
	bus := notify.NewBus()
	defer bus.Close()
	sink := notify.NewLogSink(bus.Subscribe(64), log)

	healthSignal := health.NewMonitor(health.MonitorOptions{
		Gateway:                gateway,
		Logger:                 log,
		CacheTTL:               cfg.Health.CacheTTL.Std(),
		ConservativeMultiplier: cfg.Health.ConservativeMultiplier,
	})

	det := detector.New(detector.Options{
		Gateway:  gateway,
		Tokens:   st.tokens,
		Launches: st.launches,
		Notifier: bus,
		Config: detector.Config{
			MinMarketCap: cfg.Detector.MinMarketCap,
			MaxMarketCap: cfg.Detector.MaxMarketCap,
			MinAbsChange: cfg.Detector.MinAbsChange,
			MinVolume:    cfg.Detector.MinVolume,
			FirstSeenTTL: cfg.Detector.FirstSeenTTL.Std(),
		},
		Logger: log,
	})

	mon := monitor.New(monitor.Options{
		Tokens:   st.tokens,
		Launches: st.launches,
		Analyses: st.analyses,
		Archive:  st.archive,
		Config:   monitor.Config{Window: cfg.Monitor.Window.Std()},
		Logger:   log,
	})
	if err := mon.Rehydrate(ctx); err != nil {
		return fmt.Errorf("rehydrate monitor: %w", err)
	}

	// Feed detected launches from the bus into the monitor
	detectedEvents := bus.Subscribe(64)
	go func() {
		for event := range detectedEvents {
			mon.HandleDetected(ctx, event)
		}
	}()

	strategyGate := gate.New(st.strategies, log)

	exec := executor.New(executor.Options{
		Gate:       strategyGate,
		Launches:   st.launches,
		Portfolios: st.portfolios,
		Trades:     st.trades,
		Health:     healthSignal,
		Momentum:   mon,
		Notifier:   bus,
		Config: executor.Config{
			CandidateLimit:  cfg.Executor.CandidateLimit,
			MinTradeSize:    cfg.Executor.MinTradeSize,
			EntryConfidence: cfg.Executor.EntryConfidence,
		},
		Logger: log,
	})

	runners := []*sched.Runner{
		sched.NewRunner(sched.RunnerOptions{
			Name: "detector", Interval: cfg.Detector.Interval.Std(),
			RunImmediately: true, Logger: log,
		}, det.RunOnce),
		sched.NewRunner(sched.RunnerOptions{
			Name: "monitor", Interval: cfg.Monitor.Interval.Std(), Logger: log,
		}, mon.RunOnce),
		sched.NewRunner(sched.RunnerOptions{
			Name: "gate", Interval: cfg.Gate.Interval.Std(), Logger: log,
		}, func(ctx context.Context) error {
			decision, err := strategyGate.Evaluate(ctx)
			if err != nil {
				return err
			}
			log.Debug().Bool("ready", decision.Ready).Str("reason", decision.Reason).Msg("scheduled gate evaluation")
			return nil
		}),
		sched.NewRunner(sched.RunnerOptions{
			Name: "executor", Interval: cfg.Executor.Interval.Std(), Logger: log,
		}, exec.RunOnce),
	}
	for _, r := range runners {
		r.Start(ctx)
	}

	// Optional live pair stream keeps token state fresh between polls
	var stream *marketdata.PairStream
	if cfg.Feed.StreamEndpoint != "" {
		stream = marketdata.NewPairStream(cfg.Feed.StreamEndpoint, marketdata.DefaultStreamConfig(), log)
		stream.Start(ctx)
		go consumeTicks(ctx, stream, st.tokens, log)
	}

	httpServer := startHTTPServer(cfg.Server.Addr, det, mon, exec, runners, log)

	log.Info().Str("addr", cfg.Server.Addr).Msg("daemon started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	cancel()
	for _, r := range runners {
		r.Stop()
	}
	if stream != nil {
		stream.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	bus.Close()
	sink.Wait()
	return nil
}

// consumeTicks applies live stream updates to stored token state.
func consumeTicks(ctx context.Context, stream *marketdata.PairStream, tokens storage.TokenStore, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-stream.Ticks():
			if !ok {
				return
			}
			token, err := tokens.GetBySymbol(ctx, tick.Symbol)
			if err != nil {
				continue
			}
			token.Price = tick.PriceUSD
			token.MarketCap = tick.MarketCap
			token.Volume24h = tick.Volume24h
			token.Change24h = tick.Change24h
			token.UpdatedAt = time.Now().UnixMilli()
			if err := tokens.Upsert(ctx, token); err != nil {
				log.Warn().Err(err).Str("symbol", tick.Symbol).Msg("stream update failed")
			}
		}
	}
}

// statusResponse is the JSON body of the /status endpoint.
type statusResponse struct {
	Status   string          `json:"status"`
	Uptime   string          `json:"uptime"`
	Runners  map[string]bool `json:"runners"`
	Detector detector.Status `json:"detector"`
	Monitor  monitor.Status  `json:"monitor"`
	Executor executor.Status `json:"executor"`
}

func startHTTPServer(addr string, det *detector.Detector, mon *monitor.Monitor, exec *executor.Executor, runners []*sched.Runner, log zerolog.Logger) *http.Server {
	started := time.Now()
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		running := make(map[string]bool, len(runners))
		for i, name := range []string{"detector", "monitor", "gate", "executor"} {
			running[name] = runners[i].IsRunning()
		}
		resp := statusResponse{
			Status:   "running",
			Uptime:   time.Since(started).String(),
			Runners:  running,
			Detector: det.Status(),
			Monitor:  mon.Status(),
			Executor: exec.Status(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server")
		}
	}()
	return server
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
