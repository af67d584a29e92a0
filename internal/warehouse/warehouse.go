// Package warehouse is the façade over the star-schema database: it
// owns the only connection pool in this system, seeds and consults
// the surrogate-key bank, and turns schema-generated SQL into
// committed rows.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"golang.org/x/sync/errgroup"

	"energylabel-log-server/internal/keybank"
	"energylabel-log-server/internal/schema"
	"energylabel-log-server/internal/sqlgen"
)

// errNoSuchTable is MySQL/MariaDB's error number for "table doesn't
// exist", returned when a dimension hasn't been created yet.
const errNoSuchTable = 1146

// Config is the subset of the operator's settings the warehouse needs
// to dial MariaDB.
type Config struct {
	User        string
	Password    string
	Database    string
	Host        string
	Port        int
	ConnLimit   int
	ColumnStore bool
}

// Warehouse is the façade described by spec.md §4.8. It is the only
// component in this system that holds a *sql.DB.
type Warehouse struct {
	db          *sql.DB
	exec        *executor
	bank        *keybank.Bank
	columnStore bool
}

// New opens the pool, pings it, and seeds the surrogate-key bank from
// the current MAX(child_key) of every dimension table.
func New(ctx context.Context, cfg Config) (*Warehouse, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, &DriverError{Err: fmt.Errorf("open: %w", err)}
	}
	db.SetMaxOpenConns(cfg.ConnLimit)
	db.SetMaxIdleConns(cfg.ConnLimit)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &DriverError{Err: fmt.Errorf("ping: %w", err)}
	}

	bank, err := keybank.New()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("warehouse: %w", err)
	}

	w := &Warehouse{db: db, exec: newExecutor(db), bank: bank, columnStore: cfg.ColumnStore}
	if err := w.initKeys(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

// Close releases the pool. Intended for shutdown and tests only; the
// HTTP server's lifetime otherwise owns the Warehouse.
func (w *Warehouse) Close() error {
	return w.db.Close()
}

// initKeys seeds the surrogate-key bank from the current MAX(child_key)
// of every dimension. On a database that hasn't been bootstrapped yet
// — the state Init itself must run against — the dimension tables
// don't exist; that's not a failure, it just means every table starts
// at 0, exactly as if MAX(child_key) had returned NULL.
func (w *Warehouse) initKeys(ctx context.Context) error {
	for _, t := range schema.Tables() {
		if !t.IsDimension() {
			continue
		}
		q := fmt.Sprintf("SELECT MAX(%s) FROM %s;", sqlgen.QuoteIdentifier(t.ChildKey), sqlgen.QuoteIdentifier(t.Name))

		var max sql.NullInt64
		if err := w.db.QueryRowContext(ctx, q).Scan(&max); err != nil {
			if isMissingTable(err) {
				w.bank.Set(t.Name, 0)
				continue
			}
			return &DriverError{Err: fmt.Errorf("init keys for %s: %w", t.Name, err)}
		}

		var next uint64
		if max.Valid && max.Int64 > 0 {
			next = uint64(max.Int64)
		}
		w.bank.Set(t.Name, next)
	}
	return nil
}

// Init runs the DDL map. MariaDB itself rejects a CREATE TABLE over an
// existing table, which surfaces here as a DriverError.
func (w *Warehouse) Init(ctx context.Context) error {
	return w.exec.execMap(ctx, sqlgen.DDL(schema.Fact, w.columnStore))
}

// isMissingTable reports whether err is MariaDB's "table doesn't
// exist" error, the expected condition on a database that hasn't been
// bootstrapped with Init yet.
func isMissingTable(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == errNoSuchTable
	}
	return false
}

// DropTables runs the DROP map. Destructive; gating this behind an
// explicit operator flag is the caller's responsibility.
func (w *Warehouse) DropTables(ctx context.Context) error {
	return w.exec.execMap(ctx, sqlgen.DropTables(schema.Fact))
}

// InsertRuns ingests records. Records are independent of one another
// and run concurrently; within one record, lookup strictly precedes
// insert (spec.md §4.8's state machine).
func (w *Warehouse) InsertRuns(ctx context.Context, records []*schema.Record) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			return w.insertRun(gctx, rec)
		})
	}
	return g.Wait()
}

func (w *Warehouse) insertRun(ctx context.Context, rec *schema.Record) error {
	lookupQueries := sqlgen.Lookup(schema.Fact, rec)

	validate := func(rows *sql.Rows) bool {
		return rows.Next()
	}
	mapRow := func(rows *sql.Rows) (any, error) {
		var id sql.NullInt64
		if err := rows.Scan(&id); err != nil {
			return nil, &DriverError{Err: fmt.Errorf("scan lookup row: %w", err)}
		}
		return id, nil
	}

	raw, err := w.exec.queryMap(ctx, lookupQueries, validate, mapRow)
	if err != nil {
		return err
	}

	resolved := make(map[string]uint64, len(raw))
	for table, v := range raw {
		id, ok := v.(sql.NullInt64)
		if ok && id.Valid {
			resolved[table] = uint64(id.Int64)
		}
	}

	insertStatements := sqlgen.Insert(schema.Fact, rec, resolved, w.bank.RequestKey)
	return w.exec.execMap(ctx, insertStatements)
}
