package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"busmate/internal/api"
	"busmate/internal/config"
	"busmate/internal/db"
	"busmate/internal/fleet"
	"busmate/internal/i18n"
	"busmate/internal/logger"
	"busmate/internal/metrics"
	"busmate/internal/publisher"
	"busmate/internal/sim"
	"busmate/internal/transit"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.DefaultConfig()).Error("config error", "error", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.LogLevel)
	logCfg.FilePath = cfg.LogFile
	log := logger.New(logCfg)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func run(cfg *config.Config, log logger.Logger) error {
	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	catalog, err := transit.Load(cfg.ReferenceDataFile)
	if err != nil {
		return err
	}
	log.Info("reference data loaded", "stops", len(catalog.Stops()), "routes", len(catalog.Routes()))

	tr, err := i18n.Default()
	if err != nil {
		return err
	}

	// Language preference lives in Postgres when one is configured.
	var prefStore i18n.PreferenceStore = i18n.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		sqlDB, store, err := openPreferenceStore(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		prefStore = store
	}
	prefs := i18n.NewPreferences(prefStore, cfg.DefaultLanguage)

	mcol := metrics.NewCollector(cfg.TickInterval, cfg.BusesPerRoute)
	if cfg.MetricsAddr != "" {
		srv := mcol.Serve(cfg.MetricsAddr, log)
		defer shutdown(srv.Shutdown)
	}

	gen, err := fleet.NewGenerator(catalog, fleet.Options{
		SlotsPerRoute: cfg.BusesPerRoute,
		Weights: fleet.StatusWeights{
			OnTime:    fleet.DefaultStatusWeights.OnTime,
			Delayed:   fleet.DefaultStatusWeights.Delayed,
			Cancelled: cfg.CancelledWeight,
		},
		Rand: fleet.NewRand(cfg.Seed),
		Now:  func() time.Time { return time.Now().In(cfg.Location) },
	})
	if err != nil {
		return err
	}
	store := sim.NewStore(gen, log.With("component", "store"), mcol)

	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, publisher.Options{
			Prefix:      cfg.NATSSubjectPrefix,
			LogSubjects: cfg.LogNATSSubjects,
			Catalog:     catalog,
			Metrics:     wrapPublisherMetrics(mcol),
			Log:         log.With("component", "nats"),
		})
		if err != nil {
			return err
		}
		defer pub.Close()
		unsubscribe := store.Subscribe(pub.Listener())
		defer unsubscribe()
		log.Info("publishing to nats", "url", cfg.NATSURL, "prefix", cfg.NATSSubjectPrefix)
	}

	mgr := sim.NewManager(store, cfg.TickInterval, log.With("component", "manager"))
	mgr.Start(ctx)
	defer mgr.Stop()

	apiSrv := api.NewServer(api.Deps{
		Store:       store,
		Translator:  tr,
		Preferences: prefs,
		Metrics:     mcol,
		Log:         log.With("component", "api"),
	}).Serve(cfg.HTTPAddr)
	defer shutdown(apiSrv.Shutdown)

	// Block until context cancelled
	<-ctx.Done()
	return nil
}

func openPreferenceStore(ctx context.Context, dsn string, log logger.Logger) (*sql.DB, *db.PreferenceStore, error) {
	sqlDB, err := db.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	store, err := db.NewPreferenceStore(ctx, sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	redacted, _ := db.Redact(dsn)
	log.Info("language preference stored in postgres", "dsn", redacted)
	return sqlDB, store, nil
}

func shutdown(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = fn(ctx)
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
