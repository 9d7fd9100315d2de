package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/matchsim/params"
	"github.com/uhyunpark/matchsim/pkg/api"
	"github.com/uhyunpark/matchsim/pkg/broadcast"
	"github.com/uhyunpark/matchsim/pkg/history"
	"github.com/uhyunpark/matchsim/pkg/kernel"
	"github.com/uhyunpark/matchsim/pkg/market"
	"github.com/uhyunpark/matchsim/pkg/matching"
	"github.com/uhyunpark/matchsim/pkg/scenario"
	"github.com/uhyunpark/matchsim/pkg/storage"
	"github.com/uhyunpark/matchsim/pkg/util"
)

func main() {
	envPath := flag.String("env", "", "path to .env file (default: ./.env)")
	scenarioFile := flag.String("scenario", "", "scenario file, overrides SCENARIO_FILE")
	flag.Parse()

	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv(*envPath)
	if *scenarioFile != "" {
		cfg.Sim.ScenarioFile = *scenarioFile
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg params.Config) error {
	level := util.ParseLevel(cfg.Log.Level)
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Log.File != "" {
		logger, err = util.NewLoggerWithFile(cfg.Log.File, level)
	} else {
		logger, err = util.NewLogger(level)
	}
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	sc, err := scenario.Load(cfg.Sim.ScenarioFile)
	if err != nil {
		return err
	}

	// ---- Products ----
	registry := market.NewProductRegistry()
	for _, p := range sc.Products {
		if err := registry.Register(p); err != nil {
			return fmt.Errorf("scenario products: %w", err)
		}
	}

	// ---- History sinks ----
	var (
		sinks   history.Tee
		reader  history.Reader
		closers []io.Closer
	)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].Close(); cerr != nil {
				sugar.Warnw("close_failed", "err", cerr)
			}
		}
	}()

	switch cfg.History.Backend {
	case "pebble":
		store, err := storage.OpenPebbleHistory(cfg.History.Path)
		if err != nil {
			return err
		}
		closers = append(closers, store)
		sinks = append(sinks, store)
		reader = store
	case "memory", "":
		mem := history.NewMemory()
		sinks = append(sinks, mem)
		reader = mem
	default:
		return fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}

	if cfg.History.Journal != "" {
		journal, err := storage.OpenJournal(cfg.History.Journal)
		if err != nil {
			return err
		}
		closers = append(closers, journal)
		sinks = append(sinks, journal)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := broadcast.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		closers = append(closers, producer)
		sinks = append(sinks, producer)
		sugar.Infow("kafka_enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	// ---- Kernel ----
	kopts := []kernel.Option{
		kernel.WithLogger(sugar.Named("kernel")),
		kernel.WithStartTime(sc.StartMs),
		kernel.WithStepDelay(cfg.Sim.StepDelay),
	}
	if cfg.Sim.HoldAfterRun && cfg.API.Addr != "" {
		kopts = append(kopts, kernel.WithHold(50*time.Millisecond))
	}
	k := kernel.New(kopts...)

	feed := market.NewPeriodFeed()
	quotes := market.NewQuoteCache()
	feed.Subscribe(quotes.ObservePeriod)

	book := matching.NewBook(matching.WithValidator(registry))
	// sinks is a slice, so pass its address: the API server joins it below
	unit := matching.NewUnit(k, feed, quotes, &sinks,
		matching.WithBook(book),
		matching.WithLogger(sugar.Named("matching")),
		matching.WithQuoteFallback(cfg.Matching.QuoteFallback),
	)
	replay := scenario.NewReplay(sc, k, feed, quotes, book, sugar.Named("scenario"))

	// replay first: inputs due at a time land before that time's pass
	k.AddUnit(replay)
	k.AddUnit(unit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API (optional) ----
	if cfg.API.Addr != "" {
		srv := api.NewServer(k, unit, reader,
			api.WithLogger(sugar.Named("api")),
			api.WithAllowedOrigins(cfg.API.AllowedOrigins...),
		)
		sinks = append(sinks, srv)
		go func() {
			if err := srv.Start(cfg.API.Addr); err != nil {
				sugar.Errorw("api_failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	sugar.Infow("backtest_starting",
		"scenario", cfg.Sim.ScenarioFile,
		"products", registry.Count(),
		"history_backend", cfg.History.Backend,
		"start_ms", sc.StartMs,
		"hold", cfg.Sim.HoldAfterRun)

	start := time.Now()
	err = k.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	var (
		pending int
		simTime int64
		fills   uint64
	)
	k.Do(func() { pending, simTime, fills = book.Len(), k.Now(), unit.Fills() })
	sugar.Infow("backtest_summary",
		"sim_time_ms", simTime,
		"events", k.Processed(),
		"fills", fills,
		"pending", pending,
		"submitted", replay.Submitted(),
		"rejected", replay.Rejected(),
		"elapsed", time.Since(start))

	if err != nil {
		return fmt.Errorf("kernel: %w", err)
	}
	return nil
}
