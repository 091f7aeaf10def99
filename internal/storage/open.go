package storage

import (
	"context"
	"fmt"

	"github.com/pdf-qa/backend/internal/config"
)

// Driver names accepted by Open.
const (
	DriverSQLite    = config.DriverSQLite
	DriverDuckDB    = config.DriverDuckDB
	DriverFirestore = config.DriverFirestore
)

// Open constructs the store selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg *config.AppConfig) (Store, error) {
	switch cfg.Storage.Driver {
	case DriverSQLite:
		return NewSQLite(cfg.Storage.DatabasePath)
	case DriverDuckDB:
		return NewDuckDB(cfg.Storage.DatabasePath, cfg.Storage.DuckDBThreads, cfg.Storage.DuckDBMemoryLimit)
	case DriverFirestore:
		return NewFirestore(ctx, cfg.FirestoreProject(), cfg.Storage.DocumentCollection, cfg.Storage.InteractionsCollection)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
