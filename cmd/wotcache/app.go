package main

import (
	"fmt"
	"net/http"

	"wotcache/internal/config"
	"wotcache/internal/database"
	"wotcache/internal/database/repositories"
	"wotcache/internal/enrichment"
	"wotcache/internal/fetcher/mywot"
	"wotcache/internal/realtime"
	"wotcache/internal/reputation"
	"wotcache/internal/scoring"

	"github.com/pterm/pterm"
	"gorm.io/gorm"
)

// app holds the components shared by every command.
type app struct {
	db        *gorm.DB
	repo      repositories.DomainReputationRepository
	cache     *reputation.Cache
	calc      *scoring.Calculator
	geoIP     *enrichment.GeoIPEnricher
	collector *realtime.MetricsCollector
	logger    *pterm.Logger
}

func newApp(cfg *config.Config, logger *pterm.Logger) (*app, error) {
	tables, err := cfg.Scoring.Tables()
	if err != nil {
		return nil, err
	}
	calc, err := scoring.NewCalculator(tables)
	if err != nil {
		return nil, err
	}

	db, err := database.NewConnection(&database.Config{
		Path:               cfg.Database.Path,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLife:        cfg.Database.ConnMaxLife,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	repo := repositories.NewDomainReputationRepository(db)

	geoIP, err := enrichment.NewGeoIPEnricher(cfg.GeoIP.CityDB, cfg.GeoIP.CountryDB, cfg.GeoIP.ASNDB, logger, cfg.GeoIP.CacheSize)
	if err != nil {
		database.Close(db)
		return nil, fmt.Errorf("geoip: %w", err)
	}

	fetcher := mywot.NewClientWithURL(cfg.Fetcher.BaseURL, logger).
		WithHTTPClient(&http.Client{Timeout: cfg.Fetcher.Timeout}).
		WithUserAgent(cfg.Fetcher.UserAgent)
	collector := realtime.NewMetricsCollector(logger)

	opts := reputation.Options{
		Expiration:   cfg.Cache.Expiration(),
		FetchTimeout: cfg.Fetcher.Timeout,
		Normalizer:   reputation.Normalizer{RegistrableOnly: cfg.Cache.RegistrableOnly},
		Recorder:     collector,
	}
	if geoIP.IsEnabled() {
		opts.Enricher = geoIP
	}

	return &app{
		db:        db,
		repo:      repo,
		cache:     reputation.NewCache(repo, fetcher, logger, opts),
		calc:      calc,
		geoIP:     geoIP,
		collector: collector,
		logger:    logger,
	}, nil
}

func (a *app) Close() {
	a.collector.Stop()
	a.geoIP.Close()
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("Failed to close database", a.logger.Args("error", err))
	}
}
