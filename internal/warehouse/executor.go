package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RowValidator reports whether a query's result row is shaped as
// expected. A false return is not fatal: the caller treats the table
// as having produced no usable row (spec.md §4.8, "validator
// rejection of a lookup row").
type RowValidator func(*sql.Rows) bool

// RowMapper extracts the Go value a query's row maps to, once
// RowValidator has accepted it.
type RowMapper func(*sql.Rows) (any, error)

// executor is the only component in this system that ever holds a
// live connection or transaction (spec.md §4.7); everything upstream
// of it only produces SQL text keyed by table name.
type executor struct {
	db *sql.DB
}

func newExecutor(db *sql.DB) *executor {
	return &executor{db: db}
}

// queryMap runs one SELECT per entry of queries, concurrently, on a
// single pooled connection inside one transaction, then commits. The
// driver serializes the concurrent statements onto the wire; this
// executor only fans the calls out and joins them.
func (e *executor) queryMap(ctx context.Context, queries map[string]string, validate RowValidator, mapRow RowMapper) (map[string]any, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, &DriverError{Err: fmt.Errorf("acquire connection: %w", err)}
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, &DriverError{Err: fmt.Errorf("begin transaction: %w", err)}
	}

	var mu sync.Mutex
	results := make(map[string]any, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for table, q := range queries {
		table, q := table, q
		g.Go(func() error {
			rows, err := tx.QueryContext(gctx, q)
			if err != nil {
				return &DriverError{Err: fmt.Errorf("query %s: %w", table, err)}
			}
			defer rows.Close()

			if validate != nil && !validate(rows) {
				mu.Lock()
				results[table] = nil
				mu.Unlock()
				return nil
			}

			mapped, err := mapRow(rows)
			if err != nil {
				return err
			}
			mu.Lock()
			results[table] = mapped
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, &DriverError{Err: fmt.Errorf("commit: %w", err)}
	}
	return results, nil
}

// execMap runs every statement in statements as an exec, concurrently,
// on a single pooled connection inside one transaction, then commits.
// Empty statements (a table the caller decided not to touch) are
// skipped.
func (e *executor) execMap(ctx context.Context, statements map[string]string) error {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return &DriverError{Err: fmt.Errorf("acquire connection: %w", err)}
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return &DriverError{Err: fmt.Errorf("begin transaction: %w", err)}
	}

	g, gctx := errgroup.WithContext(ctx)
	for table, stmt := range statements {
		table, stmt := table, stmt
		if stmt == "" {
			continue
		}
		g.Go(func() error {
			if _, err := tx.ExecContext(gctx, stmt); err != nil {
				return &DriverError{Err: fmt.Errorf("exec %s: %w", table, err)}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return &DriverError{Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}
