package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"statecore/internal/storage/memory"
	"statecore/pkg/storage"
)

// countingBackend wraps a backend and records write traffic, optionally
// failing writes for selected kinds.
type countingBackend struct {
	storage.Backend

	mu        sync.Mutex
	writes    map[string]int
	failKinds map[string]error
}

func newCountingBackend(inner storage.Backend) *countingBackend {
	return &countingBackend{
		Backend:   inner,
		writes:    make(map[string]int),
		failKinds: make(map[string]error),
	}
}

func (b *countingBackend) Write(ctx context.Context, kind, text string) error {
	b.mu.Lock()
	b.writes[kind]++
	err := b.failKinds[kind]
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.Backend.Write(ctx, kind, text)
}

func (b *countingBackend) writeCount(kind string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes[kind]
}

func newCountingVault(t *testing.T) (*Vault, *countingBackend, *memory.Store) {
	t.Helper()
	inner := memory.New(".json")
	backend := newCountingBackend(inner)
	v, err := New(WithBackend(backend))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v, backend, inner
}

func TestSavePersistsOnlyWhenDirty(t *testing.T) {
	v, backend, inner := newCountingVault(t)
	if err := Register(v, func() *profile { return &profile{} }); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := context.Background()
	inst, err := Get[*profile](ctx, v)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// Clean instance: no write at all.
	if err := v.Save(ctx, inst.Kind()); err != nil {
		t.Fatalf("save clean: %v", err)
	}
	if n := backend.writeCount(inst.Kind()); n != 0 {
		t.Fatalf("clean save wrote %d times", n)
	}

	inst.SetName("ada")
	if err := v.Save(ctx, inst.Kind()); err != nil {
		t.Fatalf("save dirty: %v", err)
	}
	if inst.Dirty() {
		t.Fatal("successful save must mark the instance clean")
	}
	if n := backend.writeCount(inst.Kind()); n != 1 {
		t.Fatalf("dirty save wrote %d times, want 1", n)
	}

	// Saving again without changes must not touch storage.
	if err := v.Save(ctx, inst.Kind()); err != nil {
		t.Fatalf("save again: %v", err)
	}
	if n := backend.writeCount(inst.Kind()); n != 1 {
		t.Fatalf("repeat save wrote %d times, want 1", n)
	}

	text, err := inner.Read(ctx, inst.Kind())
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(text, "\n  \"name\": \"ada\"") {
		t.Fatalf("expected indented JSON encoding, got %q", text)
	}
}

func TestSaveUnknownKind(t *testing.T) {
	v, _, _ := newCountingVault(t)
	if err := v.Save(context.Background(), "app::nope"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestSaveRegisteredButNeverLoaded(t *testing.T) {
	v, backend, _ := newCountingVault(t)
	if err := Register(v, func() *profile { return &profile{} }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := v.Save(context.Background(), "app::profile"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if n := backend.writeCount("app::profile"); n != 0 {
		t.Fatalf("never-loaded kind wrote %d times", n)
	}
}

func TestSaveAllContinuesPastFailures(t *testing.T) {
	v, backend, inner := newCountingVault(t)
	if err := Register(v, func() *profile { return &profile{} }); err != nil {
		t.Fatalf("register profile: %v", err)
	}
	if err := Register(v, func() *session { return &session{} }); err != nil {
		t.Fatalf("register session: %v", err)
	}
	ctx := context.Background()
	p, err := Get[*profile](ctx, v)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	s, err := Get[*session](ctx, v)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	p.SetName("ada")
	s.SetToken("tok-1")

	wantErr := errors.New("disk full")
	backend.failKinds["app::profile"] = wantErr

	err = v.SaveAll(ctx)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected joined write failure, got %v", err)
	}
	if !p.Dirty() {
		t.Fatal("failed kind must stay dirty")
	}
	if s.Dirty() {
		t.Fatal("succeeding kind must be saved and cleaned despite the failure")
	}
	if _, err := inner.Read(ctx, "app::session"); err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
}

func TestSaveAllSkipsClean(t *testing.T) {
	v, backend, _ := newCountingVault(t)
	if err := Register(v, func() *profile { return &profile{} }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := Get[*profile](context.Background(), v); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := v.SaveAll(context.Background()); err != nil {
		t.Fatalf("save all: %v", err)
	}
	if n := backend.writeCount("app::profile"); n != 0 {
		t.Fatalf("clean instance wrote %d times", n)
	}
}

func TestSaveAsyncReportsResult(t *testing.T) {
	v, _, _ := newCountingVault(t)
	if err := Register(v, func() *profile { return &profile{} }); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := Get[*profile](context.Background(), v)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	inst.SetName("grace")

	done := make(chan error, 1)
	v.SaveAsync(inst.Kind(), func(err error) { done <- err })
	if err := <-done; err != nil {
		t.Fatalf("async save: %v", err)
	}
	if inst.Dirty() {
		t.Fatal("async save must clean the instance")
	}

	v.SaveAllAsync(func(err error) { done <- err })
	if err := <-done; err != nil {
		t.Fatalf("async save all: %v", err)
	}
}

func TestClearPersistedLeavesCacheAlone(t *testing.T) {
	v, _, inner := newCountingVault(t)
	if err := Register(v, func() *profile { return &profile{} }); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := context.Background()
	inst, err := Get[*profile](ctx, v)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	inst.SetName("ada")
	if err := v.Save(ctx, inst.Kind()); err != nil {
		t.Fatalf("save: %v", err)
	}
	inst.SetCount(5)

	v.ClearPersisted(ctx)

	if kinds := inner.Kinds(); len(kinds) != 0 {
		t.Fatalf("expected empty storage, got %v", kinds)
	}
	got, err := Get[*profile](ctx, v)
	if err != nil {
		t.Fatalf("get after clear: %v", err)
	}
	if got != inst {
		t.Fatal("clear must not evict cached instances")
	}
	if !got.Dirty() {
		t.Fatal("clear must not touch dirty flags")
	}
}
