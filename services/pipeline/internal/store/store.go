// Package store persists whole tables. Replace swaps a table in atomically,
// so readers see either the previous contents or the new ones.
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"jobmart/common/database"
	"jobmart/services/pipeline/internal/config"
	"jobmart/services/pipeline/internal/errors"
	"jobmart/services/pipeline/internal/store/clickhouse"
	"jobmart/services/pipeline/internal/store/gormstore"
	"jobmart/services/pipeline/internal/store/memory"
	"jobmart/services/pipeline/internal/table"
)

type Store interface {
	// Replace drops the table's previous contents and writes t in their
	// place.
	Replace(ctx context.Context, t *table.Table) error
	// Read returns the table's rows ordered by its key. A table that was
	// never written yields a NOT_FOUND error.
	Read(ctx context.Context, schema table.Schema) (*table.Table, error)
	Close() error
}

// Migrator is implemented by stores whose namespaces must exist before use.
type Migrator interface {
	Migrate(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// New opens the backend selected by cfg.StoreBackend.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	namespaces := cfg.Namespaces()

	switch cfg.StoreBackend {
	case config.BackendClickHouse:
		db, err := database.New(ctx, database.Options{
			DSN:             cfg.ClickHouseDSN,
			MaxOpenConns:    cfg.ClickHouseMaxOpenConns,
			MaxIdleConns:    cfg.ClickHouseMaxIdleConns,
			ConnMaxLifetime: cfg.ClickHouseConnMaxLife,
			Username:        cfg.ClickHouseUsername,
			Password:        cfg.ClickHousePassword,
			Database:        cfg.ClickHouseDatabase,
		}, logger)
		if err != nil {
			return nil, errors.Unavailable("connecting to clickhouse", err)
		}
		return clickhouse.New(db, namespaces, cfg.InsertBatchSize, logger), nil

	case config.BackendSQLite, config.BackendPostgres:
		var (
			db  *gorm.DB
			err error
		)
		if cfg.StoreBackend == config.BackendSQLite {
			db, err = gormstore.OpenSQLite(cfg.SQLitePath)
		} else {
			db, err = gormstore.OpenPostgres(cfg.PostgresDSN)
		}
		if err != nil {
			return nil, errors.Unavailable(fmt.Sprintf("opening %s store", cfg.StoreBackend), err)
		}
		return gormstore.New(db, cfg.StoreBackend, namespaces, cfg.InsertBatchSize, logger)

	case config.BackendMemory:
		return memory.New(), nil
	}

	return nil, errors.InvalidInput(fmt.Sprintf("unknown store backend %q", cfg.StoreBackend), nil)
}

// ReadAll reads every schema in order.
func ReadAll(ctx context.Context, s Store, schemas []table.Schema) ([]*table.Table, error) {
	out := make([]*table.Table, 0, len(schemas))
	for _, schema := range schemas {
		t, err := s.Read(ctx, schema)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ReplaceAll validates every table before writing any of them, then
// replaces them in order.
func ReplaceAll(ctx context.Context, s Store, tables []*table.Table) error {
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return errors.Internal("invalid table", err)
		}
	}
	for _, t := range tables {
		if err := s.Replace(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
