package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

type Options struct {
	DSN              string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	DialTimeout      time.Duration
	MaxExecutionTime int
	Username         string
	Password         string
	Database         string
}

type Database struct {
	conn   clickhouse.Conn
	logger *zap.Logger
}

// New opens a native-protocol connection. DSN is host:port, optionally
// followed by a query string that is ignored.
func New(ctx context.Context, opts Options, logger *zap.Logger) (*Database, error) {
	host, _, _ := strings.Cut(opts.DSN, "?")

	dialTimeout := opts.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 30 * time.Second
	}
	maxExecution := opts.MaxExecutionTime
	if maxExecution == 0 {
		maxExecution = 600
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Protocol: clickhouse.Native,
		Addr:     []string{host},
		Settings: clickhouse.Settings{
			"max_execution_time": maxExecution,
		},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		DialTimeout:     dialTimeout,
		MaxOpenConns:    opts.MaxOpenConns,
		MaxIdleConns:    opts.MaxIdleConns,
		ConnMaxLifetime: opts.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create clickhouse connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	logger.Info("connected to clickhouse", zap.String("addr", host), zap.String("database", opts.Database))

	return &Database{
		conn:   conn,
		logger: logger,
	}, nil
}

func (db *Database) Close() error {
	return db.conn.Close()
}

func (db *Database) Conn() clickhouse.Conn {
	return db.conn
}

// Exec runs a statement and logs it at debug level.
func (db *Database) Exec(ctx context.Context, query string, args ...any) error {
	db.logger.Debug("clickhouse exec", zap.String("query", query))
	if err := db.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("clickhouse exec: %w", err)
	}
	return nil
}

func (db *Database) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	db.logger.Debug("clickhouse query", zap.String("query", query))
	rows, err := db.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("clickhouse query: %w", err)
	}
	return rows, nil
}
