package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"tradesim/internal/backtest"
	"tradesim/internal/clock"
	"tradesim/internal/config"
	"tradesim/internal/core"
	"tradesim/internal/execution"
	"tradesim/internal/logging"
	"tradesim/internal/model"
	"tradesim/internal/simulation"
	"tradesim/internal/storage"
	"tradesim/internal/strategy"
	"tradesim/pkg/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	dataPath := flag.String("data", "", "path to the tick data CSV")
	startArg := flag.String("start", "", "backtest start (RFC3339), defaults to the first tick")
	stopArg := flag.String("stop", "", "backtest stop (RFC3339), defaults to the last tick")
	flag.Parse()

	if err := run(*configPath, *dataPath, *startArg, *stopArg); err != nil {
		fmt.Fprintf(os.Stderr, "backtest failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, dataPath, startArg, stopArg string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewZapLoggerWithOptions(logging.Options{
		Level:     cfg.Logging.LevelConsole,
		Bypass:    cfg.Logging.Bypass,
		LogToFile: cfg.Logging.LogToFile,
		FilePath:  cfg.Logging.LogFilePath,
	})
	if err != nil {
		return err
	}

	if dataPath == "" {
		return fmt.Errorf("a tick data CSV is required (-data)")
	}
	ticks, err := backtest.LoadTicksCSV(dataPath)
	if err != nil {
		return err
	}
	if len(ticks) == 0 {
		return fmt.Errorf("tick data is empty")
	}

	start := ticks[0].Timestamp
	stop := ticks[len(ticks)-1].Timestamp
	if startArg != "" {
		if start, err = time.Parse(time.RFC3339, startArg); err != nil {
			return fmt.Errorf("parse start: %w", err)
		}
	}
	if stopArg != "" {
		if stop, err = time.Parse(time.RFC3339, stopArg); err != nil {
			return fmt.Errorf("parse stop: %w", err)
		}
	}

	traderID, err := model.NewTraderID(cfg.Trader.TraderID)
	if err != nil {
		return err
	}
	accountID, err := model.NewAccountID(cfg.Trader.AccountID)
	if err != nil {
		return err
	}
	currency, err := model.ParseCurrency(cfg.Venue.AccountCurrency)
	if err != nil {
		return err
	}

	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
	}
	var registerer prometheus.Registerer
	if registry != nil {
		registerer = registry
	}

	var db core.IExecutionDatabase
	switch cfg.Exec.DBType {
	case config.ExecDBExternalKV:
		store, err := storage.NewBoltStore(cfg.Exec.StorePath)
		if err != nil {
			return err
		}
		defer store.Close()
		kv := execution.NewKVDatabase(traderID, store, logger)
		if err := kv.LoadCache(); err != nil {
			return err
		}
		db = kv
	default:
		db = execution.NewInMemoryDatabase(traderID, logger)
	}

	uuidFactory := model.NewDeterministicUUIDFactory(uint64(cfg.Venue.FillModelSeed))
	fillModel, err := simulation.NewFillModel(cfg.Venue.FillProbAtLimit, cfg.Venue.FillProbSlippage, cfg.Venue.FillModelSeed)
	if err != nil {
		return err
	}
	venue, err := simulation.NewVenue(simulation.VenueConfig{
		Name:                   cfg.Venue.Name,
		TraderID:               traderID,
		AccountID:              accountID,
		Currency:               currency,
		StartingCapital:        decimal.NewFromFloat(cfg.Venue.StartingCapital),
		CommissionRateBp:       decimal.NewFromFloat(cfg.Venue.CommissionRateBp),
		RolloverInterestRateBp: decimal.NewFromFloat(cfg.Venue.RolloverInterestRateBp),
		FrozenAccount:          cfg.Venue.FrozenAccount,
	}, fillModel, uuidFactory, logger, telemetry.NewVenueMetrics(registerer))
	if err != nil {
		return err
	}

	portfolio := execution.NewPortfolio(logger)
	engine := execution.NewEngine(traderID, accountID, db, portfolio, uuidFactory, logger,
		telemetry.NewEngineMetrics(registerer))
	if err := engine.RegisterVenue(venue); err != nil {
		return err
	}
	venue.RegisterEventHandler(engine.HandleEvent)

	dataClient, err := backtest.NewDataClient(cfg.Data.TickCapacity, logger)
	if err != nil {
		return err
	}
	source, err := backtest.NewTickSource(ticks)
	if err != nil {
		return err
	}
	driver := backtest.NewDriver(source, dataClient, venue, engine, db, logger)

	// A pass-through strategy keeps the run observable end to end without
	// prescribing strategy content.
	strategyClock := clock.NewTestClock(start)
	passthrough := strategy.NewTradingStrategy("NOOP-001", strategy.Config{}, logger)
	passthrough.RegisterTrader(traderID, accountID, cfg.Trader.TraderTag, "001", strategyClock, uuidFactory)
	passthrough.RegisterExecution(engine, db)
	if err := driver.RegisterStrategy(passthrough, strategyClock); err != nil {
		return err
	}

	return driver.Run(start, stop)
}
