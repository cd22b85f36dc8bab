package storage

import (
	"context"
	"fmt"
	"strings"

	"smp/internal/storage/memory"
	"smp/internal/storage/mongostore"
	"smp/internal/storage/sqlstore"
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongoDB  = "mongodb"
)

// Config selects and configures a backend.
type Config struct {
	Driver        string
	SQLitePath    string
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string
}

// Open returns the DocumentStore for cfg.Driver.
func Open(ctx context.Context, cfg Config) (DocumentStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverMemory:
		return memory.New(), nil
	case DriverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = "smp.db"
		}
		return sqlstore.Open(ctx, sqlstore.SQLite, path)
	case DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires a DSN")
		}
		return sqlstore.Open(ctx, sqlstore.Postgres, cfg.PostgresDSN)
	case DriverMongoDB:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("mongodb storage requires a URI")
		}
		return mongostore.Open(ctx, mongostore.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
