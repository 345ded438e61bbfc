// Package database is a plugin exposing SQL queries, statements and batches
// against a single database/sql pool.
//
// The sqlite driver (modernc.org/sqlite) and the postgres driver
// (github.com/lib/pq) are registered by this package.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/creasty/defaults"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/zero-day-ai/bolt/health"
	"github.com/zero-day-ai/bolt/input"
	"github.com/zero-day-ai/bolt/plugin"
	"github.com/zero-day-ai/bolt/pluginerr"
	"github.com/zero-day-ai/bolt/types"
)

const (
	// ID is the plugin id.
	ID = "database-plugin"
	// Version is the plugin version.
	Version = "1.0.0"
)

// Error codes returned by the database actions.
const (
	CodeConnectionFailed = "CONNECTION_FAILED"
	CodeQueryFailed      = "QUERY_FAILED"
	CodeExecuteFailed    = "EXECUTE_FAILED"
	CodeUpdateFailed     = "UPDATE_FAILED"
	CodeBatchFailed      = "BATCH_FAILED"
	CodeTestFailed       = "TEST_FAILED"
)

// Settings are the database plugin properties.
type Settings struct {
	Driver          string        `json:"driver" default:"sqlite" validate:"oneof=sqlite postgres"`
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"maxOpenConns" default:"25" validate:"gte=0"`
	MaxIdleConns    int           `json:"maxIdleConns" default:"5" validate:"gte=0"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" default:"5m"`
	PingTimeout     time.Duration `json:"pingTimeout" default:"5s"`
	// SlowPing marks the instance degraded when a health ping takes longer.
	SlowPing time.Duration `json:"slowPing" default:"1s"`
}

// DefaultSettings returns the settings used for absent properties.
func DefaultSettings() Settings {
	var s Settings
	defaults.MustSet(&s)
	return s
}

type dbPlugin struct {
	settings Settings
	db       *sql.DB
	checks   []health.Check
	logger   *slog.Logger
}

// Definition returns the database plugin definition.
func Definition(logger *slog.Logger) *plugin.Definition {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("plugin_id", ID)

	def := plugin.NewDefinition()
	def.SetID(ID)
	def.SetVersion(Version)
	def.SetName("Database")
	def.SetDescription("Runs SQL queries and statements against a configured database")
	def.SetAuthor("Bolt Team")
	def.SetType(types.PluginTypeDatasource)
	def.SetDefaultConfig(`{"driver":"sqlite","dsn":"bolt.db"}`)
	def.SetInstanceFunc(func(inst *plugin.Definition) {
		d := &dbPlugin{logger: logger}
		inst.SetInitFunc(d.init)
		inst.SetDestroyFunc(d.destroy)
		inst.SetHealthFunc(d.health)
		inst.AddActionWithDesc("query", "Run a SELECT and return its rows", d.query)
		inst.AddActionWithDesc("execute", "Run a statement without parameters, such as DDL", d.execute)
		inst.AddActionWithDesc("update", "Run an INSERT, UPDATE or DELETE with parameters", d.update)
		inst.AddActionWithDesc("batch", "Run one statement for each parameter list in a transaction", d.batch)
		inst.AddActionWithDesc("test", "Check the connection and report the server version", d.test)
	})
	return def
}

// New builds a database plugin instance.
func New(logger *slog.Logger, opts ...plugin.Option) (*plugin.Runtime, error) {
	if logger != nil {
		opts = append([]plugin.Option{plugin.WithLogger(logger)}, opts...)
	}
	return plugin.New(Definition(logger), opts...)
}

func (d *dbPlugin) init(ctx context.Context, cfg *types.Config, ec *types.ExecutionContext) error {
	var settings Settings
	if err := cfg.Decode(&settings); err != nil {
		return err
	}
	if settings.DSN == "" {
		return pluginerr.ConfigMissing("dsn").WithPlugin(ID)
	}

	db, err := sql.Open(settings.Driver, settings.DSN)
	if err != nil {
		return pluginerr.New(CodeConnectionFailed, "failed to open database").WithPlugin(ID).WithCause(err)
	}
	db.SetMaxOpenConns(settings.MaxOpenConns)
	db.SetMaxIdleConns(settings.MaxIdleConns)
	db.SetConnMaxLifetime(settings.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, settings.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return pluginerr.New(CodeConnectionFailed, "failed to connect to database").WithPlugin(ID).WithCause(err)
	}

	d.settings = settings
	d.db = db
	d.checks = []health.Check{health.PingCheck("database", db.PingContext, settings.SlowPing)}
	if path := sqliteFile(settings); path != "" {
		d.checks = append(d.checks, health.PathCheck("database file", path))
	}

	d.logger.Info("database connected", "driver", settings.Driver)
	return nil
}

// destroy closes the pool but keeps d.db, so calls already past dispatch
// fail with "sql: database is closed".
func (d *dbPlugin) destroy(ctx context.Context) error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *dbPlugin) health(ctx context.Context) types.HealthStatus {
	return health.Run(ctx, d.checks...)
}

// sqliteFile returns the database file behind a sqlite DSN, or "" for
// in-memory databases and other drivers.
func sqliteFile(s Settings) string {
	if s.Driver != "sqlite" {
		return ""
	}
	dsn, query, _ := strings.Cut(s.DSN, "?")
	dsn = strings.TrimPrefix(dsn, "file:")
	if dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.Contains(query, "mode=memory") {
		return ""
	}
	return dsn
}

func (d *dbPlugin) query(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
	query, err := input.RequireString(params, "sql")
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, query, input.GetSlice(params, "params")...)
	if err != nil {
		return nil, failed(CodeQueryFailed, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, failed(CodeQueryFailed, err)
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		row, err := scanRow(columns, rows)
		if err != nil {
			return nil, failed(CodeQueryFailed, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, failed(CodeQueryFailed, err)
	}

	return types.Success(map[string]any{
		"rows":    out,
		"count":   len(out),
		"columns": columns,
	}), nil
}

func (d *dbPlugin) execute(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
	stmt, err := input.RequireString(params, "sql")
	if err != nil {
		return nil, err
	}

	res, err := d.db.ExecContext(ctx, stmt)
	if err != nil {
		return nil, failed(CodeExecuteFailed, err)
	}

	data := map[string]any{"hasResultSet": false}
	if n, err := res.RowsAffected(); err == nil {
		data["updateCount"] = n
	}
	return types.Success(data), nil
}

func (d *dbPlugin) update(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
	stmt, err := input.RequireString(params, "sql")
	if err != nil {
		return nil, err
	}

	res, err := d.db.ExecContext(ctx, stmt, input.GetSlice(params, "params")...)
	if err != nil {
		return nil, failed(CodeUpdateFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, failed(CodeUpdateFailed, err)
	}

	data := map[string]any{"affectedRows": n}
	if id, err := res.LastInsertId(); err == nil {
		data["lastInsertId"] = id
	}
	return types.Success(data), nil
}

// batch runs the statement once per parameter list inside one transaction.
// Any failure rolls back the whole batch.
func (d *dbPlugin) batch(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
	stmt, err := input.RequireString(params, "sql")
	if err != nil {
		return nil, err
	}
	raw := input.GetSlice(params, "batchParams")
	if len(raw) == 0 {
		return nil, pluginerr.InvalidParam("batchParams", "must not be empty")
	}
	batches := make([][]any, 0, len(raw))
	for i, entry := range raw {
		args, ok := entry.([]any)
		if !ok {
			return nil, pluginerr.InvalidParam("batchParams", fmt.Sprintf("entry %d is %T, not a list", i, entry))
		}
		batches = append(batches, args)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, failed(CodeBatchFailed, err)
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return nil, failed(CodeBatchFailed, err)
	}
	defer prepared.Close()

	results := make([]int64, 0, len(batches))
	var total int64
	for _, args := range batches {
		res, err := prepared.ExecContext(ctx, args...)
		if err != nil {
			return nil, failed(CodeBatchFailed, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = -1
		}
		results = append(results, n)
		if n > 0 {
			total += n
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, failed(CodeBatchFailed, err)
	}

	return types.Success(map[string]any{
		"batchSize":     len(batches),
		"results":       results,
		"totalAffected": total,
	}), nil
}

func (d *dbPlugin) test(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
	if err := d.db.PingContext(ctx); err != nil {
		return nil, failed(CodeTestFailed, err)
	}

	versionQuery := "SELECT version()"
	if d.settings.Driver == "sqlite" {
		versionQuery = "SELECT sqlite_version()"
	}
	var version string
	if err := d.db.QueryRowContext(ctx, versionQuery).Scan(&version); err != nil {
		return nil, failed(CodeTestFailed, err)
	}

	stats := d.db.Stats()
	return types.Success(map[string]any{
		"connected":       true,
		"driverName":      d.settings.Driver,
		"databaseVersion": version,
		"openConnections": stats.OpenConnections,
		"inUse":           stats.InUse,
		"idle":            stats.Idle,
	}), nil
}

func failed(code string, err error) *pluginerr.Error {
	return pluginerr.New(code, err.Error()).WithPlugin(ID)
}

// scanRow reads the current row into a column-keyed map. Byte slices become
// strings so rows encode cleanly as JSON.
func scanRow(columns []string, rows *sql.Rows) (map[string]any, error) {
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := make(map[string]any, len(columns))
	for i, col := range columns {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = values[i]
	}
	return row, nil
}
