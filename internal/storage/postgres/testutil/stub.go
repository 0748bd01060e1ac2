// Package testutil provides a stub database/sql driver emulating the state
// table used by the postgres storage backend, so store tests run without a
// server.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

var stubSeq uint64

// StubConn emulates the state(kind,payload) table in memory and records every
// executed statement. Failure toggles let tests exercise error paths.
type StubConn struct {
	Execs    []string
	State    map[string]string
	FailPing bool
	FailExec bool
	FailQry  bool
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{State: make(map[string]string)}
	name := fmt.Sprintf("stubpg%d", atomic.AddUint64(&stubSeq, 1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return nil, fmt.Errorf("not implemented") }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	up := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(up, "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(up, "INSERT INTO"):
		if len(args) != 2 {
			return nil, fmt.Errorf("insert expects 2 args, got %d", len(args))
		}
		kind, ok1 := args[0].Value.(string)
		payload, ok2 := args[1].Value.(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("insert args must be strings")
		}
		c.State[kind] = payload
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(up, "DELETE FROM"):
		if len(args) != 1 {
			return nil, fmt.Errorf("delete expects 1 arg, got %d", len(args))
		}
		kind, _ := args[0].Value.(string)
		if _, ok := c.State[kind]; !ok {
			return driver.RowsAffected(0), nil
		}
		delete(c.State, kind)
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(up, "TRUNCATE TABLE"):
		c.State = make(map[string]string)
		return driver.RowsAffected(0), nil
	}
	return nil, fmt.Errorf("unexpected exec: %s", query)
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if c.FailQry {
		return nil, fmt.Errorf("query fail")
	}
	lower := strings.ToLower(strings.TrimSpace(query))
	col := "kind"
	if strings.HasPrefix(lower, "select payload") {
		col = "payload"
	}
	var rows [][]driver.Value
	if strings.Contains(lower, "where") {
		if len(args) != 1 {
			return nil, fmt.Errorf("select expects 1 arg, got %d", len(args))
		}
		kind, _ := args[0].Value.(string)
		if payload, ok := c.State[kind]; ok {
			if col == "payload" {
				rows = append(rows, []driver.Value{payload})
			} else {
				rows = append(rows, []driver.Value{kind})
			}
		}
	} else {
		for kind, payload := range c.State {
			if col == "payload" {
				rows = append(rows, []driver.Value{payload})
			} else {
				rows = append(rows, []driver.Value{kind})
			}
		}
	}
	return &stubRows{cols: []string{col}, rows: rows}, nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
