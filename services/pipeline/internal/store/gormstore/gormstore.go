// Package gormstore stores tables in SQLite or PostgreSQL through gorm.
// SQLite has no schemas, so a namespace becomes a table-name prefix there;
// PostgreSQL keeps one schema per namespace.
package gormstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"jobmart/services/pipeline/internal/errors"
	"jobmart/services/pipeline/internal/table"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"

	stagingSuffix = "__staging"

	// maxBindVars keeps every INSERT under SQLite's historical limit of 999
	// parameters.
	maxBindVars = 900
)

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
}

func OpenSQLite(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), gormConfig())
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), gormConfig())
}

type Store struct {
	db         *gorm.DB
	dialect    string
	namespaces map[string]string
	batchSize  int
	logger     *zap.Logger
}

func New(db *gorm.DB, dialect string, namespaces map[string]string, batchSize int, logger *zap.Logger) (*Store, error) {
	if dialect != DialectSQLite && dialect != DialectPostgres {
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported dialect %q", dialect), nil)
	}
	if batchSize <= 0 {
		batchSize = 10000
	}
	return &Store{
		db:         db,
		dialect:    dialect,
		namespaces: namespaces,
		batchSize:  batchSize,
		logger:     logger,
	}, nil
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *Store) namespace(ns string) string {
	if n, ok := s.namespaces[ns]; ok {
		return n
	}
	return ns
}

// names resolves the physical names of a table: the quoted qualified name,
// the bare name used by RENAME, and the name HasTable understands.
type names struct {
	qualified string
	bare      string
	lookup    string
}

func (s *Store) names(sc table.Schema, suffix string) names {
	ns := s.namespace(sc.Namespace)
	if s.dialect == DialectSQLite {
		bare := ns + "_" + sc.Name + suffix
		return names{qualified: quote(bare), bare: bare, lookup: bare}
	}
	bare := sc.Name + suffix
	return names{qualified: quote(ns) + "." + quote(bare), bare: bare, lookup: ns + "." + bare}
}

func (s *Store) sqlType(t table.ColumnType) string {
	switch t {
	case table.String:
		return "TEXT NOT NULL"
	case table.Int64:
		if s.dialect == DialectPostgres {
			return "BIGINT NOT NULL"
		}
		return "INTEGER NOT NULL"
	case table.NullableInt64:
		if s.dialect == DialectPostgres {
			return "BIGINT"
		}
		return "INTEGER"
	case table.NullableFloat64:
		if s.dialect == DialectPostgres {
			return "DOUBLE PRECISION"
		}
		return "REAL"
	case table.NullableBool:
		return "BOOLEAN"
	case table.StringArray:
		// JSON-encoded.
		return "TEXT NOT NULL"
	default:
		return "TEXT"
	}
}

func (s *Store) createTableSQL(qualified string, sc table.Schema) string {
	cols := make([]string, len(sc.Columns))
	for i, c := range sc.Columns {
		cols[i] = quote(c.Name) + " " + s.sqlType(c.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", qualified, strings.Join(cols, ", "))
}

func (s *Store) Migrate(ctx context.Context) error {
	if s.dialect != DialectPostgres {
		return nil
	}
	for _, ns := range []string{"raw", "clean", "analytics"} {
		if err := s.db.WithContext(ctx).Exec("CREATE SCHEMA IF NOT EXISTS " + quote(s.namespace(ns))).Error; err != nil {
			return errors.Storage(fmt.Sprintf("creating schema %s", s.namespace(ns)), err)
		}
	}
	return nil
}

func (s *Store) Rollback(ctx context.Context) error {
	if s.dialect != DialectPostgres {
		return nil
	}
	for _, ns := range []string{"analytics", "clean", "raw"} {
		if err := s.db.WithContext(ctx).Exec("DROP SCHEMA IF EXISTS " + quote(s.namespace(ns)) + " CASCADE").Error; err != nil {
			return errors.Storage(fmt.Sprintf("dropping schema %s", s.namespace(ns)), err)
		}
	}
	return nil
}

// Replace builds the new contents in a staging table and renames it over
// the live table inside one transaction.
func (s *Store) Replace(ctx context.Context, t *table.Table) error {
	target := s.names(t.Schema, "")
	staging := s.names(t.Schema, stagingSuffix)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.dialect == DialectPostgres {
			if err := tx.Exec("CREATE SCHEMA IF NOT EXISTS " + quote(s.namespace(t.Schema.Namespace))).Error; err != nil {
				return fmt.Errorf("creating schema: %w", err)
			}
		}
		if err := tx.Exec("DROP TABLE IF EXISTS " + staging.qualified).Error; err != nil {
			return fmt.Errorf("dropping staging table: %w", err)
		}
		if err := tx.Exec(s.createTableSQL(staging.qualified, t.Schema)).Error; err != nil {
			return fmt.Errorf("creating staging table: %w", err)
		}
		if err := s.insert(tx, staging.qualified, t); err != nil {
			return err
		}
		if err := tx.Exec("DROP TABLE IF EXISTS " + target.qualified).Error; err != nil {
			return fmt.Errorf("dropping previous table: %w", err)
		}
		if err := tx.Exec(fmt.Sprintf("ALTER TABLE %s RENAME TO %s", staging.qualified, quote(target.bare))).Error; err != nil {
			return fmt.Errorf("renaming staging table: %w", err)
		}
		if len(t.Schema.Key) > 0 {
			if err := tx.Exec(fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
				quote("idx_"+target.bare), target.qualified, keyList(t.Schema.Key))).Error; err != nil {
				return fmt.Errorf("indexing table: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return errors.Storage(fmt.Sprintf("replacing %s", t.Schema.FullName()), err)
	}

	s.logger.Info("table replaced",
		zap.String("table", target.lookup),
		zap.Int("rows", t.Len()))
	return nil
}

func keyList(key []string) string {
	quoted := make([]string, len(key))
	for i, k := range key {
		quoted[i] = quote(k)
	}
	return strings.Join(quoted, ", ")
}

func (s *Store) rowsPerStatement(width int) int {
	n := maxBindVars / max(width, 1)
	return max(1, min(n, s.batchSize))
}

func (s *Store) insert(tx *gorm.DB, qualified string, t *table.Table) error {
	if len(t.Rows) == 0 {
		return nil
	}

	cols := make([]string, len(t.Schema.Columns))
	for i, c := range t.Schema.Columns {
		cols[i] = quote(c.Name)
	}
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", qualified, strings.Join(cols, ", "))

	step := s.rowsPerStatement(len(cols))
	for start := 0; start < len(t.Rows); start += step {
		end := min(start+step, len(t.Rows))

		tuples := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*len(cols))
		for _, row := range t.Rows[start:end] {
			tuples = append(tuples, placeholder)
			for j, v := range row {
				a, err := bindValue(t.Schema.Columns[j].Type, v)
				if err != nil {
					return err
				}
				args = append(args, a)
			}
		}
		if err := tx.Exec(prefix+strings.Join(tuples, ", "), args...).Error; err != nil {
			return fmt.Errorf("inserting rows: %w", err)
		}
	}
	return nil
}

// bindValue converts a row value to a driver argument. Nil pointers become
// SQL NULL and arrays are stored as JSON text, since gorm expands slice
// arguments into value lists.
func bindValue(t table.ColumnType, v any) (any, error) {
	switch x := v.(type) {
	case *string:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case *int64:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case *float64:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case *bool:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case []string:
		if x == nil {
			x = []string{}
		}
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	if t == table.StringArray {
		return nil, fmt.Errorf("unexpected value %T for %s", v, t)
	}
	return v, nil
}

func (s *Store) Read(ctx context.Context, sc table.Schema) (*table.Table, error) {
	n := s.names(sc, "")
	db := s.db.WithContext(ctx)

	if !db.Migrator().HasTable(n.lookup) {
		return nil, errors.NotFound(fmt.Sprintf("table %s does not exist", n.lookup), nil)
	}

	cols := make([]string, len(sc.Columns))
	for i, c := range sc.Columns {
		cols[i] = quote(c.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), n.qualified)
	if len(sc.Key) > 0 {
		query += " ORDER BY " + s.orderBy(sc)
	}

	rows, err := db.Raw(query).Rows()
	if err != nil {
		return nil, errors.Storage(fmt.Sprintf("reading %s", n.lookup), err)
	}
	defer rows.Close()

	out := table.New(sc)
	for rows.Next() {
		dest := scanTargets(sc)
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Storage(fmt.Sprintf("scanning %s", n.lookup), err)
		}
		row, err := values(sc, dest)
		if err != nil {
			return nil, errors.Storage(fmt.Sprintf("decoding %s", n.lookup), err)
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage(fmt.Sprintf("reading %s", n.lookup), err)
	}
	return out, nil
}

// orderBy sorts text keys bytewise on PostgreSQL so the order matches the
// other backends regardless of the database collation.
func (s *Store) orderBy(sc table.Schema) string {
	parts := make([]string, len(sc.Key))
	for i, k := range sc.Key {
		parts[i] = quote(k)
		if s.dialect == DialectPostgres {
			if idx := sc.Index(k); idx >= 0 && sc.Columns[idx].Type == table.String {
				parts[i] += ` COLLATE "C"`
			}
		}
	}
	return strings.Join(parts, ", ")
}

func scanTargets(sc table.Schema) []any {
	dest := make([]any, len(sc.Columns))
	for i, c := range sc.Columns {
		switch c.Type {
		case table.Int64, table.NullableInt64:
			dest[i] = new(sql.NullInt64)
		case table.NullableFloat64:
			dest[i] = new(sql.NullFloat64)
		case table.NullableBool:
			dest[i] = new(sql.NullBool)
		default:
			dest[i] = new(sql.NullString)
		}
	}
	return dest
}

func values(sc table.Schema, dest []any) ([]any, error) {
	row := make([]any, len(dest))
	for i, c := range sc.Columns {
		switch c.Type {
		case table.String:
			row[i] = dest[i].(*sql.NullString).String
		case table.NullableString:
			var v *string
			if ns := dest[i].(*sql.NullString); ns.Valid {
				v = &ns.String
			}
			row[i] = v
		case table.Int64:
			row[i] = dest[i].(*sql.NullInt64).Int64
		case table.NullableInt64:
			var v *int64
			if ni := dest[i].(*sql.NullInt64); ni.Valid {
				v = &ni.Int64
			}
			row[i] = v
		case table.NullableFloat64:
			var v *float64
			if nf := dest[i].(*sql.NullFloat64); nf.Valid {
				v = &nf.Float64
			}
			row[i] = v
		case table.NullableBool:
			var v *bool
			if nb := dest[i].(*sql.NullBool); nb.Valid {
				v = &nb.Bool
			}
			row[i] = v
		case table.StringArray:
			arr := []string{}
			if ns := dest[i].(*sql.NullString); ns.Valid && ns.String != "" {
				if err := json.Unmarshal([]byte(ns.String), &arr); err != nil {
					return nil, fmt.Errorf("column %s: %w", c.Name, err)
				}
			}
			row[i] = arr
		}
	}
	return row, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
