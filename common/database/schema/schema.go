package schema

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"
)

type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

type Migrator struct {
	conn   clickhouse.Conn
	logger *zap.Logger
}

func NewMigrator(conn clickhouse.Conn, logger *zap.Logger) *Migrator {
	return &Migrator{
		conn:   conn,
		logger: logger,
	}
}

func (m *Migrator) CreateMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version Int32,
			description String,
			applied_at DateTime,
			PRIMARY KEY (version)
		) ENGINE = MergeTree()
	`

	if err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	return nil
}

func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, "SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int32
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[int(version)] = appliedAt
	}

	return applied, rows.Err()
}

func (m *Migrator) ApplyMigration(ctx context.Context, migration Migration) error {
	if err := m.conn.Exec(ctx, migration.Up); err != nil {
		return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
	}

	if err := m.conn.Exec(ctx, `
		INSERT INTO schema_migrations (version, description, applied_at)
		VALUES (?, ?, now())
	`, int32(migration.Version), migration.Description); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	return nil
}

func (m *Migrator) RollbackMigration(ctx context.Context, migration Migration) error {
	if err := m.conn.Exec(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %d: %w", migration.Version, err)
	}

	if err := m.conn.Exec(ctx, "DELETE FROM schema_migrations WHERE version = ?", int32(migration.Version)); err != nil {
		return fmt.Errorf("failed to remove migration record %d: %w", migration.Version, err)
	}

	return nil
}

// Migrate applies every pending migration in version order and returns how
// many were applied.
func (m *Migrator) Migrate(ctx context.Context, migrations []Migration) (int, error) {
	if err := m.CreateMigrationsTable(ctx); err != nil {
		return 0, err
	}
	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	todo := Pending(applied, migrations)
	for _, migration := range todo {
		m.logger.Info("applying migration",
			zap.Int("version", migration.Version),
			zap.String("description", migration.Description))

		if err := m.ApplyMigration(ctx, migration); err != nil {
			return 0, err
		}
	}
	return len(todo), nil
}

// Rollback reverts the most recently applied migration. It returns false
// when nothing is applied.
func (m *Migrator) Rollback(ctx context.Context, migrations []Migration) (bool, error) {
	if err := m.CreateMigrationsTable(ctx); err != nil {
		return false, err
	}
	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return false, err
	}

	migration, ok := Latest(applied, migrations)
	if !ok {
		return false, nil
	}
	m.logger.Info("rolling back migration",
		zap.Int("version", migration.Version),
		zap.String("description", migration.Description))

	return true, m.RollbackMigration(ctx, migration)
}

// Pending returns the migrations not yet applied, sorted by version.
func Pending(applied map[int]time.Time, migrations []Migration) []Migration {
	var out []Migration
	for _, migration := range migrations {
		if _, ok := applied[migration.Version]; !ok {
			out = append(out, migration)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// Latest returns the applied migration with the highest version.
func Latest(applied map[int]time.Time, migrations []Migration) (Migration, bool) {
	var latest Migration
	found := false
	for _, migration := range migrations {
		if _, ok := applied[migration.Version]; !ok {
			continue
		}
		if !found || migration.Version > latest.Version {
			latest, found = migration, true
		}
	}
	return latest, found
}
