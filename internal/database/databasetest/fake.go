// Package databasetest provides an in-memory stand-in for the pgx pool so
// service tests can script query results without a live database.
package databasetest

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Row satisfies pgx.Row with a scripted Scan.
type Row struct {
	ScanFunc func(dest ...any) error
}

func (r Row) Scan(dest ...any) error { return r.ScanFunc(dest...) }

// NoRow is a Row whose Scan reports pgx.ErrNoRows.
func NoRow() Row {
	return Row{ScanFunc: func(...any) error { return pgx.ErrNoRows }}
}

// Rows satisfies pgx.Rows, yielding one scripted Scan per row.
type Rows struct {
	scans []func(dest ...any) error
	idx   int
}

func NewRows(scans ...func(dest ...any) error) *Rows {
	return &Rows{scans: scans}
}

func (r *Rows) Next() bool {
	if r.idx >= len(r.scans) {
		return false
	}
	r.idx++
	return true
}

func (r *Rows) Scan(dest ...any) error { return r.scans[r.idx-1](dest...) }

func (r *Rows) Close()                                       {}
func (r *Rows) Err() error                                   { return nil }
func (r *Rows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *Rows) Values() ([]any, error)                       { return nil, nil }
func (r *Rows) RawValues() [][]byte                          { return nil }
func (r *Rows) Conn() *pgx.Conn                              { return nil }

// DB dispatches on the SQL text of each call and records every statement in
// Statements, in order, so tests can assert what ran and what did not.
type DB struct {
	QueryRowFunc func(sql string, args []any) pgx.Row
	QueryFunc    func(sql string, args []any) (pgx.Rows, error)
	ExecFunc     func(sql string, args []any) (pgconn.CommandTag, error)

	Statements []string
}

func (d *DB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	d.Statements = append(d.Statements, sql)
	if d.QueryRowFunc == nil {
		return NoRow()
	}
	return d.QueryRowFunc(sql, args)
}

func (d *DB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	d.Statements = append(d.Statements, sql)
	if d.QueryFunc == nil {
		return NewRows(), nil
	}
	return d.QueryFunc(sql, args)
}

func (d *DB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.Statements = append(d.Statements, sql)
	if d.ExecFunc == nil {
		return pgconn.NewCommandTag("OK 1"), nil
	}
	return d.ExecFunc(sql, args)
}

func (d *DB) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("transactions not supported by fake")
}
