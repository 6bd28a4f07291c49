package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"corner-ranker/internal/api"
	"corner-ranker/internal/config"
	"corner-ranker/internal/dataset"
	"corner-ranker/internal/db"
	"corner-ranker/internal/metrics"
	"corner-ranker/internal/pipeline"
	"corner-ranker/internal/publisher"
	"corner-ranker/internal/sim"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, closeSrc, err := openSource(ctx, cfg)
	if err != nil {
		log.Fatalf("dataset source error: %v", err)
	}
	defer closeSrc()

	// Metrics setup
	var mcol *metrics.Collector
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.SpeedMultiplier, cfg.PublishInterval, cfg.RefreshInterval)
		metricsSrv = mcol.Serve(cfg.MetricsAddr)
	}

	// NATS is optional; without it the ranking is only served over HTTP
	var pub sim.Publisher
	if cfg.NATSURL != "" {
		np, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, publisherMetrics(mcol))
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer np.Close()
		pub = np
	}

	opts := pipeline.DefaultOptions()
	opts.TopK = cfg.TopK
	mgr := sim.NewManager(src, &pipeline.Store{}, pub, simMetrics(mcol), sim.Options{
		PublishInterval: cfg.PublishInterval,
		SpeedMultiplier: cfg.SpeedMultiplier,
		RefreshInterval: cfg.RefreshInterval,
		LoadTimeout:     cfg.LoadTimeout,
		Pipeline:        opts,
	})

	// A failed first load is not fatal: the API answers 503 until a reload
	// succeeds.
	if _, err := mgr.Reload(ctx); err != nil {
		log.Printf("initial dataset load failed: %v", err)
	}
	mgr.Start(ctx)
	mgr.StartRefresher(ctx)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.NewRouter(mgr)}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
			cancel()
		}
	}()
	log.Printf("http listening on %s", cfg.HTTPAddr)

	// Block until context cancelled
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	mgr.Stop()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	log.Println("shutdown complete")
}

// openSource builds the configured dataset source and a func releasing it.
func openSource(ctx context.Context, cfg *config.Config) (dataset.Source, func(), error) {
	if cfg.DatasetSource != config.SourcePostgres {
		log.Printf("datasets from %s (fallback %s) and %s", cfg.BuildingsURL, cfg.BuildingsFallbackURL, cfg.TripsURL)
		src := dataset.URISource{
			BuildingsURI:         cfg.BuildingsURL,
			FallbackBuildingsURI: cfg.BuildingsFallbackURL,
			TripsURI:             cfg.TripsURL,
			Client:               &http.Client{Timeout: cfg.LoadTimeout},
		}
		return src, func() {}, nil
	}

	var sqlDB *sql.DB
	if cfg.City != "" {
		// Import lookups run against the cluster's 'postgres' database
		metaDSN, err := db.WithDBName(cfg.DatabaseURL, "postgres")
		if err != nil {
			return nil, nil, err
		}
		conn, imp, err := db.OpenCity(ctx, metaDSN, cfg.City)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("using database %q for city %q (imported %s)", imp.DBName, cfg.City, imp.ImportedAt.Format(time.RFC3339))
		sqlDB = conn
	} else {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Ping(ctx, conn); err != nil {
			conn.Close()
			return nil, nil, err
		}
		log.Printf("using database %s", db.Redact(cfg.DatabaseURL))
		sqlDB = conn
	}
	return &db.Source{DB: sqlDB}, func() { sqlDB.Close() }, nil
}

// publisherMetrics and simMetrics keep a nil collector a nil interface.
func publisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return c
}

func simMetrics(c *metrics.Collector) sim.Metrics {
	if c == nil {
		return nil
	}
	return c
}
