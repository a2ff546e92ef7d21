package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SigNoz/freshmart-storefront/internal/api"
	"github.com/SigNoz/freshmart-storefront/internal/catalog"
	"github.com/SigNoz/freshmart-storefront/internal/content"
	"github.com/SigNoz/freshmart-storefront/internal/db"
	"github.com/SigNoz/freshmart-storefront/internal/events"
	"github.com/SigNoz/freshmart-storefront/internal/metrics"
	"github.com/SigNoz/freshmart-storefront/internal/services"
	"github.com/SigNoz/freshmart-storefront/internal/storage"
	"github.com/SigNoz/freshmart-storefront/pkg/config"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()
	log := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry metrics
	var (
		appMetrics *metrics.AppMetrics
		meter      metric.Meter
	)
	if cfg.MetricsEnabled {
		m, meterProvider, err := metrics.InitMetrics(ctx, cfg, log)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize metrics")
		}
		appMetrics, meter = m, meterProvider.Meter(cfg.OTELServiceName)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := meterProvider.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("error shutting down meter provider")
			}
		}()
	} else {
		meter = noop.NewMeterProvider().Meter(cfg.OTELServiceName)
		m, err := metrics.NewAppMetrics(meter, cfg.OTELServiceName)
		if err != nil {
			log.WithError(err).Fatal("failed to create metrics")
		}
		appMetrics = m
		log.Info("metrics export disabled")
	}

	// Storage
	store, poolStats, closeStore, err := openStorage(ctx, cfg, meter, log)
	if err != nil {
		log.WithError(err).WithField("backend", cfg.StorageBackend).Fatal("failed to open storage")
	}
	defer closeStore()
	log.WithField("backend", cfg.StorageBackend).Info("storage ready")

	// Catalog and help center content
	products, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load catalog")
	}
	faq, err := content.DefaultFAQ()
	if err != nil {
		log.WithError(err).Fatal("failed to load faq")
	}

	// Order and contact events
	var publisher events.Publisher = events.NewLog(log)
	if len(cfg.KafkaBrokers) > 0 {
		k, err := events.NewKafka(cfg.KafkaBrokers, log)
		if err != nil {
			log.WithError(err).Fatal("failed to create kafka publisher")
		}
		publisher = k
		log.WithField("brokers", cfg.KafkaBrokers).Info("publishing order events to kafka")
	}
	defer publisher.Close()

	// Sessions
	sessionStore := sessions.NewCookieStore(cfg.SessionKeyBytes(log))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}

	manager := services.NewSessionManager(services.SessionManagerConfig{
		Storage:      store,
		Catalog:      products,
		Publisher:    publisher,
		OrdersTopic:  cfg.KafkaOrdersTopic,
		ContactTopic: cfg.KafkaContactTopic,
		Metrics:      appMetrics,
		Log:          log,
		IdleTTL:      cfg.SessionIdleTTL,
		PoolStats:    poolStats,
	})
	go manager.Run(ctx)

	// Initialize app
	app := api.NewApp(appMetrics, products, faq, manager, sessionStore, log)

	// Setup router
	router := mux.NewRouter()
	app.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.GetAppPortInt()),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(logrus.Fields{
			"port":     cfg.GetAppPortInt(),
			"products": products.Len(),
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed to start")
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	log.Info("server exited")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

// openStorage opens the configured backend. poolStats is nil for backends
// without a connection pool.
func openStorage(ctx context.Context, cfg *config.Config, meter metric.Meter, log logrus.FieldLogger) (storage.Storage, func(context.Context), func(), error) {
	var (
		dialect db.Dialect
		dsn     string
	)
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return storage.NewMemory(), nil, func() {}, nil
	case config.StorageRedis:
		r, err := storage.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			return nil, nil, nil, err
		}
		return r, nil, func() { r.Close() }, nil
	case config.StorageSQLite:
		dialect, dsn = db.SQLite, cfg.SQLitePath
	case config.StorageMySQL:
		dialect, dsn = db.MySQL, cfg.GetMySQLDSN()
	case config.StoragePostgres:
		dialect, dsn = db.Postgres, cfg.PostgresDSN
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	database, err := db.NewDB(dialect, dsn, meter, cfg.OTELServiceName, log)
	if err != nil {
		return nil, nil, nil, err
	}
	s, err := storage.NewSQL(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, nil, err
	}
	return s, database.RecordPoolStats, func() { database.Close() }, nil
}

