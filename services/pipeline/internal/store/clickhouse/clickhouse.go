// Package clickhouse stores tables in ClickHouse. Each logical namespace is
// a database; each table is a MergeTree ordered by its key columns.
package clickhouse

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"jobmart/common/database"
	"jobmart/common/database/schema"
	"jobmart/common/database/schema/migrations"
	"jobmart/services/pipeline/internal/errors"
	"jobmart/services/pipeline/internal/table"
)

const stagingSuffix = "__staging"

type Store struct {
	db         *database.Database
	namespaces map[string]string
	batchSize  int
	logger     *zap.Logger
}

func New(db *database.Database, namespaces map[string]string, batchSize int, logger *zap.Logger) *Store {
	if batchSize <= 0 {
		batchSize = 10000
	}
	return &Store{
		db:         db,
		namespaces: namespaces,
		batchSize:  batchSize,
		logger:     logger,
	}
}

func (s *Store) database(ns string) string {
	if db, ok := s.namespaces[ns]; ok {
		return db
	}
	return ns
}

func (s *Store) migrations() []schema.Migration {
	return migrations.Namespaces(
		s.database("raw"),
		s.database("clean"),
		s.database("analytics"),
	)
}

func (s *Store) Migrate(ctx context.Context) error {
	n, err := schema.NewMigrator(s.db.Conn(), s.logger).Migrate(ctx, s.migrations())
	if err != nil {
		return errors.Storage("migrating clickhouse", err)
	}
	s.logger.Info("clickhouse migrations applied", zap.Int("applied", n))
	return nil
}

func (s *Store) Rollback(ctx context.Context) error {
	ok, err := schema.NewMigrator(s.db.Conn(), s.logger).Rollback(ctx, s.migrations())
	if err != nil {
		return errors.Storage("rolling back clickhouse", err)
	}
	if !ok {
		s.logger.Info("no clickhouse migration to roll back")
	}
	return nil
}

func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (s *Store) qualified(db, name string) string {
	return quote(db) + "." + quote(name)
}

// CreateTableSQL renders the DDL for a table under the given name.
func CreateTableSQL(qualifiedName string, sc table.Schema) string {
	cols := make([]string, len(sc.Columns))
	for i, c := range sc.Columns {
		cols[i] = quote(c.Name) + " " + c.Type.String()
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n) ENGINE = MergeTree()\nORDER BY %s",
		qualifiedName, strings.Join(cols, ",\n\t"), orderBy(sc.Key))
}

func orderBy(key []string) string {
	if len(key) == 0 {
		return "tuple()"
	}
	return "(" + keyList(key) + ")"
}

func keyList(key []string) string {
	quoted := make([]string, len(key))
	for i, k := range key {
		quoted[i] = quote(k)
	}
	return strings.Join(quoted, ", ")
}

// Replace writes t into a staging table, then exchanges it with the live
// table in one step.
func (s *Store) Replace(ctx context.Context, t *table.Table) error {
	db := s.database(t.Schema.Namespace)
	target := s.qualified(db, t.Schema.Name)
	staging := s.qualified(db, t.Schema.Name+stagingSuffix)

	if err := s.db.Exec(ctx, "DROP TABLE IF EXISTS "+staging); err != nil {
		return errors.Storage("dropping staging table", err)
	}
	if err := s.db.Exec(ctx, CreateTableSQL(staging, t.Schema)); err != nil {
		return errors.Storage(fmt.Sprintf("creating staging table for %s", t.Schema.FullName()), err)
	}
	if err := s.insert(ctx, staging, t); err != nil {
		return err
	}

	exists, err := s.exists(ctx, db, t.Schema.Name)
	if err != nil {
		return err
	}
	if exists {
		if err := s.db.Exec(ctx, fmt.Sprintf("EXCHANGE TABLES %s AND %s", staging, target)); err != nil {
			return errors.Storage(fmt.Sprintf("swapping %s", t.Schema.FullName()), err)
		}
		if err := s.db.Exec(ctx, "DROP TABLE IF EXISTS "+staging); err != nil {
			return errors.Storage("dropping previous table", err)
		}
	} else {
		if err := s.db.Exec(ctx, fmt.Sprintf("RENAME TABLE %s TO %s", staging, target)); err != nil {
			return errors.Storage(fmt.Sprintf("publishing %s", t.Schema.FullName()), err)
		}
	}

	s.logger.Info("table replaced",
		zap.String("table", db+"."+t.Schema.Name),
		zap.Int("rows", t.Len()))
	return nil
}

func (s *Store) insert(ctx context.Context, staging string, t *table.Table) error {
	for start := 0; start < len(t.Rows); start += s.batchSize {
		end := min(start+s.batchSize, len(t.Rows))

		batch, err := s.db.Conn().PrepareBatch(ctx, "INSERT INTO "+staging)
		if err != nil {
			return errors.Storage("preparing insert batch", err)
		}
		for _, row := range t.Rows[start:end] {
			if err := batch.Append(row...); err != nil {
				_ = batch.Abort()
				return errors.Storage(fmt.Sprintf("appending row to %s", t.Schema.FullName()), err)
			}
		}
		if err := batch.Send(); err != nil {
			return errors.Storage(fmt.Sprintf("sending batch to %s", t.Schema.FullName()), err)
		}
	}
	return nil
}

func (s *Store) exists(ctx context.Context, db, name string) (bool, error) {
	rows, err := s.db.Query(ctx, "SELECT count() FROM system.tables WHERE database = ? AND name = ?", db, name)
	if err != nil {
		return false, errors.Storage("checking table existence", err)
	}
	defer rows.Close()

	var n uint64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return false, errors.Storage("checking table existence", err)
		}
	}
	return n > 0, rows.Err()
}

func (s *Store) Read(ctx context.Context, sc table.Schema) (*table.Table, error) {
	db := s.database(sc.Namespace)

	exists, err := s.exists(ctx, db, sc.Name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NotFound(fmt.Sprintf("table %s.%s does not exist", db, sc.Name), nil)
	}

	cols := make([]string, len(sc.Columns))
	for i, c := range sc.Columns {
		cols[i] = quote(c.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), s.qualified(db, sc.Name))
	if len(sc.Key) > 0 {
		query += " ORDER BY " + keyList(sc.Key)
	}

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, errors.Storage(fmt.Sprintf("reading %s", sc.FullName()), err)
	}
	defer rows.Close()

	out := table.New(sc)
	for rows.Next() {
		dest := scanTargets(sc)
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Storage(fmt.Sprintf("scanning %s", sc.FullName()), err)
		}
		out.Rows = append(out.Rows, values(dest))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage(fmt.Sprintf("reading %s", sc.FullName()), err)
	}
	return out, nil
}

// scanTargets allocates one destination per column. Nullable columns scan
// into pointer-to-pointer so that NULL stays distinguishable.
func scanTargets(sc table.Schema) []any {
	dest := make([]any, len(sc.Columns))
	for i, c := range sc.Columns {
		switch c.Type {
		case table.String:
			dest[i] = new(string)
		case table.NullableString:
			dest[i] = new(*string)
		case table.Int64:
			dest[i] = new(int64)
		case table.NullableInt64:
			dest[i] = new(*int64)
		case table.NullableFloat64:
			dest[i] = new(*float64)
		case table.NullableBool:
			dest[i] = new(*bool)
		case table.StringArray:
			dest[i] = new([]string)
		}
	}
	return dest
}

func values(dest []any) []any {
	row := make([]any, len(dest))
	for i, d := range dest {
		switch v := d.(type) {
		case *string:
			row[i] = *v
		case **string:
			row[i] = *v
		case *int64:
			row[i] = *v
		case **int64:
			row[i] = *v
		case **float64:
			row[i] = *v
		case **bool:
			row[i] = *v
		case *[]string:
			if *v == nil {
				row[i] = []string{}
			} else {
				row[i] = *v
			}
		}
	}
	return row
}

func (s *Store) Close() error {
	return s.db.Close()
}
