package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"statecore/internal/storage/core"
	"statecore/internal/storage/postgres/testutil"
)

func newStubStore(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = func(string, string) (*sql.DB, error) { return db, nil }
	openMu.Unlock()
	t.Cleanup(func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	})

	s, err := New(context.Background(), "postgres://stub/state")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, conn
}

func TestNewEnsuresStateTable(t *testing.T) {
	_, conn := newStubStore(t)
	if len(conn.Execs) == 0 || !strings.HasPrefix(strings.TrimSpace(conn.Execs[0]), "CREATE TABLE") {
		t.Fatalf("expected table creation, got %v", conn.Execs)
	}
}

func TestNewFailsWhenPingFails(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = func(string, string) (*sql.DB, error) { return db, nil }
	openMu.Unlock()
	defer func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}()

	if _, err := New(context.Background(), ""); err == nil {
		t.Fatal("expected ping failure")
	}
}

func TestRoundTrip(t *testing.T) {
	s, conn := newStubStore(t)
	ctx := context.Background()

	if ok, err := s.Exists(ctx, "app::profile"); err != nil || ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if _, err := s.Read(ctx, "app::profile"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Write(ctx, "app::profile", `{"name":"ada"}`); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := conn.State["app::profile"]; got != `{"name":"ada"}` {
		t.Fatalf("stored payload %q", got)
	}
	if ok, err := s.Exists(ctx, "app::profile"); err != nil || !ok {
		t.Fatalf("Exists after write = %v, %v", ok, err)
	}
	got, err := s.Read(ctx, "app::profile")
	if err != nil || got != `{"name":"ada"}` {
		t.Fatalf("read = %q, %v", got, err)
	}

	if err := s.Write(ctx, "app::profile", `{"name":"grace"}`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _ := s.Read(ctx, "app::profile"); got != `{"name":"grace"}` {
		t.Fatalf("read after overwrite = %q", got)
	}
}

func TestDeleteAndClear(t *testing.T) {
	s, conn := newStubStore(t)
	ctx := context.Background()
	if ok, err := s.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("delete missing = %v, %v", ok, err)
	}
	conn.State["a"] = "{}"
	conn.State["b"] = "{}"
	if ok, err := s.Delete(ctx, "a"); err != nil || !ok {
		t.Fatalf("delete = %v, %v", ok, err)
	}
	n, err := s.Clear(ctx)
	if err != nil || n != 1 {
		t.Fatalf("clear = %d, %v", n, err)
	}
	if len(conn.State) != 0 {
		t.Fatalf("state not truncated: %v", conn.State)
	}
}

func TestWriteFailureSurfaces(t *testing.T) {
	s, conn := newStubStore(t)
	conn.FailExec = true
	if err := s.Write(context.Background(), "profile", "{}"); err == nil {
		t.Fatal("expected write failure")
	}
}

func TestDiagnostics(t *testing.T) {
	s, _ := newStubStore(t)
	if s.Driver() != core.DriverPostgres {
		t.Fatalf("driver = %s", s.Driver())
	}
	if got := s.PathFor("profile"); got != "postgres://state/profile" {
		t.Fatalf("PathFor = %q", got)
	}
	if err := s.EnsureDir(context.Background()); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
}
