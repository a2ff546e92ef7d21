package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	_ "modernc.org/sqlite"
)

// Dialect names a supported SQL backend
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// driverName returns the database/sql driver registered for d
func (d Dialect) driverName() (string, error) {
	switch d {
	case MySQL:
		return "mysql", nil
	case Postgres:
		return "postgres", nil
	case SQLite:
		return "sqlite", nil
	}
	return "", fmt.Errorf("unsupported SQL dialect %q", d)
}

// DB wraps the database connection with metrics
type DB struct {
	*sql.DB
	Dialect          Dialect
	connectionActive metric.Int64Gauge
	connectionIdle   metric.Int64Gauge
	serviceName      string
	log              logrus.FieldLogger
}

// NewDB opens a connection for dialect with OpenTelemetry instrumentation
func NewDB(dialect Dialect, dsn string, meter metric.Meter, serviceName string, log logrus.FieldLogger) (*DB, error) {
	baseDriver, err := dialect.driverName()
	if err != nil {
		return nil, err
	}

	// Register otelsql wrapper for the underlying driver
	driverName, err := otelsql.Register(baseDriver,
		otelsql.WithAttributes(
			attribute.String("db.system", string(dialect)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool. SQLite serialises writers, so a single
	// connection avoids SQLITE_BUSY under concurrent sessions.
	if dialect == SQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	connectionActive, err := meter.Int64Gauge(
		"db.client.connections.active",
		metric.WithDescription("Number of active database connections"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection active gauge: %w", err)
	}

	connectionIdle, err := meter.Int64Gauge(
		"db.client.connections.idle",
		metric.WithDescription("Number of idle database connections"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection idle gauge: %w", err)
	}

	dbWrapper := &DB{
		DB:               db,
		Dialect:          dialect,
		connectionActive: connectionActive,
		connectionIdle:   connectionIdle,
		serviceName:      serviceName,
		log:              log,
	}

	if err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(
		attribute.String("db.system", string(dialect)),
		attribute.String("service.name", serviceName),
	)); err != nil {
		log.WithError(err).Warn("failed to register otelsql stats metrics")
	}

	return dbWrapper, nil
}

// RecordPoolStats publishes the current pool usage on the connection gauges
func (db *DB) RecordPoolStats(ctx context.Context) {
	stats := db.Stats()
	attrs := metric.WithAttributes(
		attribute.String("db.system", string(db.Dialect)),
		attribute.String("service.name", db.serviceName),
	)
	db.connectionActive.Record(ctx, int64(stats.InUse), attrs)
	db.connectionIdle.Record(ctx, int64(stats.Idle), attrs)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// InitSchema initializes the database schema
// It splits the SQL into individual statements and executes them one by one
func (db *DB) InitSchema(ctx context.Context, schemaSQL string) error {
	statements := splitSQLStatements(schemaSQL)

	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement %d: %w\nStatement: %s", i+1, err, stmt)
		}
	}

	db.log.WithField("statements", len(statements)).Info("database schema initialized")
	return nil
}

// splitSQLStatements splits a SQL string into individual statements
func splitSQLStatements(sql string) []string {
	// Remove comments (lines starting with --)
	lines := strings.Split(sql, "\n")
	var cleanedLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
			cleanedLines = append(cleanedLines, line)
		}
	}

	cleanedSQL := strings.Join(cleanedLines, "\n")
	statements := strings.Split(cleanedSQL, ";")

	var result []string
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			result = append(result, stmt)
		}
	}

	return result
}
