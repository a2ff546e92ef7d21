package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SigNoz/freshmart-storefront/pkg/config"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// AppMetrics holds all application metrics
type AppMetrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Storage Metrics
	StorageOpsTotal   metric.Int64Counter
	StorageOpDuration metric.Float64Histogram
	StorageFallbacks  metric.Int64Counter

	// Business Metrics
	ProductsViewed        metric.Int64Counter
	CartItemsCount        metric.Int64Gauge
	WishlistAdds          metric.Int64Counter
	WishlistRejections    metric.Int64Counter
	OrdersCreated         metric.Int64Counter
	RevenueTotal          metric.Float64Counter
	RecommendationsServed metric.Int64Histogram
	SearchesTotal         metric.Int64Counter

	// Application Metrics
	ActiveSessionsCount metric.Int64Gauge
	ActiveCartsCount    metric.Int64Gauge

	// Service name for adding to all metrics
	serviceName string
}

// InitMetrics initializes the OTLP exporter and meter provider, then builds
// the application instruments on it
func InitMetrics(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*AppMetrics, *sdkmetric.MeterProvider, error) {
	// Explicit attributes take precedence over OTEL_RESOURCE_ATTRIBUTES
	envRes, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		envRes = resource.Empty()
	}

	explicitRes, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.OTELServiceName),
			semconv.ServiceVersion(cfg.OTELServiceVersion),
			attribute.String("deployment.environment", cfg.OTELDeploymentEnvironment),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create explicit resource: %w", err)
	}

	res, err := resource.Merge(envRes, explicitRes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to merge resources: %w", err)
	}

	serviceName, found := res.Set().Value(semconv.ServiceNameKey)
	if !found || serviceName.AsString() == "" {
		return nil, nil, fmt.Errorf("service.name is not set in resource attributes")
	}

	// WithEndpoint expects host:port without a scheme. Insecure is for
	// plain http collectors; omit it for https ingest endpoints.
	exporterOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.OTELExporterOTLPEndpoint),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}
	if cfg.OTELExporterOTLPHeaders != "" {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithHeaders(parseHeaders(cfg.OTELExporterOTLPHeaders)))
	}
	if cfg.OTELExporterOTLPInsecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	log.WithFields(logrus.Fields{
		"endpoint":     cfg.OTELExporterOTLPEndpoint,
		"path":         "/v1/metrics",
		"insecure":     cfg.OTELExporterOTLPInsecure,
		"service.name": serviceName.AsString(),
		"interval":     cfg.MetricsExportInterval.String(),
	}).Info("metrics exporter configured")

	reader := sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(cfg.MetricsExportInterval),
	)

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(meterProvider)

	appMetrics, err := NewAppMetrics(meterProvider.Meter(cfg.OTELServiceName), cfg.OTELServiceName)
	if err != nil {
		return nil, nil, err
	}
	return appMetrics, meterProvider, nil
}

// NewAppMetrics creates every application instrument on meter
func NewAppMetrics(meter metric.Meter, serviceName string) (*AppMetrics, error) {
	// SigNoz default histogram buckets in milliseconds, expanded to 60s
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000, 15000, 20000, 30000, 45000, 60000}

	m := &AppMetrics{serviceName: serviceName}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	if m.HTTPRequestsErrors, err = meter.Int64Counter(
		"http.server.request.error.count",
		metric.WithDescription("Total number of HTTP error requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http errors counter: %w", err)
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	if m.StorageOpsTotal, err = meter.Int64Counter(
		"storage.operations.count",
		metric.WithDescription("Total number of state storage operations"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create storage ops counter: %w", err)
	}

	if m.StorageOpDuration, err = meter.Float64Histogram(
		"storage.operations.duration",
		metric.WithDescription("State storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create storage duration histogram: %w", err)
	}

	if m.StorageFallbacks, err = meter.Int64Counter(
		"storage_fallbacks_total",
		metric.WithDescription("State loads or saves that failed and fell back to in-memory state"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create storage fallbacks counter: %w", err)
	}

	if m.ProductsViewed, err = meter.Int64Counter(
		"products_viewed_total",
		metric.WithDescription("Total number of product views"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create products viewed counter: %w", err)
	}

	if m.CartItemsCount, err = meter.Int64Gauge(
		"cart_items_count",
		metric.WithDescription("Current number of items in a session cart"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cart items gauge: %w", err)
	}

	if m.WishlistAdds, err = meter.Int64Counter(
		"wishlist_adds_total",
		metric.WithDescription("Total number of products added to wishlists"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create wishlist adds counter: %w", err)
	}

	if m.WishlistRejections, err = meter.Int64Counter(
		"wishlist_duplicate_rejections_total",
		metric.WithDescription("Total number of wishlist adds rejected as duplicates"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create wishlist rejections counter: %w", err)
	}

	if m.OrdersCreated, err = meter.Int64Counter(
		"orders_created_total",
		metric.WithDescription("Total number of orders created"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create orders counter: %w", err)
	}

	if m.RevenueTotal, err = meter.Float64Counter(
		"revenue_total",
		metric.WithDescription("Total revenue generated"),
		metric.WithUnit("INR"),
	); err != nil {
		return nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}

	if m.RecommendationsServed, err = meter.Int64Histogram(
		"recommendations_served",
		metric.WithDescription("Number of products returned per recommendation request"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 4, 5, 6),
	); err != nil {
		return nil, fmt.Errorf("failed to create recommendations histogram: %w", err)
	}

	if m.SearchesTotal, err = meter.Int64Counter(
		"catalog_searches_total",
		metric.WithDescription("Total number of catalog searches"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create searches counter: %w", err)
	}

	if m.ActiveSessionsCount, err = meter.Int64Gauge(
		"active_sessions_count",
		metric.WithDescription("Number of shopper sessions held in memory"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active sessions gauge: %w", err)
	}

	if m.ActiveCartsCount, err = meter.Int64Gauge(
		"active_carts_count",
		metric.WithDescription("Number of active carts with items"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active carts gauge: %w", err)
	}

	return m, nil
}

// WithServiceName adds service.name to attributes
func (m *AppMetrics) WithServiceName(attrs []attribute.KeyValue) []attribute.KeyValue {
	return append(attrs, attribute.String("service.name", m.serviceName))
}

// RecordStorageOp records a state storage operation on a logical key
func (m *AppMetrics) RecordStorageOp(ctx context.Context, operation, key string, start time.Time, success bool) {
	duration := time.Since(start).Milliseconds()

	status := "success"
	if !success {
		status = "error"
	}

	attrs := m.WithServiceName([]attribute.KeyValue{
		attribute.String("storage.operation", operation),
		attribute.String("storage.key", key),
		attribute.String("status", status),
	})

	m.StorageOpsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.StorageOpDuration.Record(ctx, float64(duration), metric.WithAttributes(attrs...))
}

// RecordFallback counts a load or save that was recovered in memory
func (m *AppMetrics) RecordFallback(ctx context.Context, key, reason string) {
	m.StorageFallbacks.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("storage.key", key),
		attribute.String("reason", reason),
	})...))
}

// parseHeaders parses header string in format "key1=value1,key2=value2"
// and returns a map of headers
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}

	pairs := strings.Split(headerStr, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
