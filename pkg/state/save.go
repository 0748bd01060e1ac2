package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"statecore/internal/storage/core"
)

// loadOrDefault resolves the initial instance for a kind: decode the persisted
// encoding when one exists and is usable, otherwise construct a default. Any
// read or decode failure collapses to default construction so startup never
// fails on a damaged file.
func (v *Vault) loadOrDefault(ctx context.Context, kind string, construct func() Persistable) Persistable {
	start := time.Now()
	inst, loaded := v.load(ctx, kind, construct)
	v.metrics.Observe(ctx, "load", true, time.Since(start))
	if loaded {
		v.log.Debug("loaded persisted state", "kind", kind, "path", v.backend.PathFor(kind))
	}
	return inst
}

func (v *Vault) load(ctx context.Context, kind string, construct func() Persistable) (Persistable, bool) {
	ok, err := v.exists(ctx, kind)
	if err != nil {
		v.log.Warn("state existence check failed, using defaults", "kind", kind, "error", err)
		return construct(), false
	}
	if !ok {
		return construct(), false
	}

	v.ioMu.Lock()
	text, err := v.backend.Read(ctx, kind)
	v.ioMu.Unlock()
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			v.log.Warn("state read failed, using defaults", "kind", kind, "error", err)
		}
		return construct(), false
	}
	if text == "" {
		return construct(), false
	}

	inst := construct()
	if err := v.codec.Decode([]byte(text), inst); err != nil {
		v.log.Warn("state decode failed, using defaults", "kind", kind, "error", err)
		// Never hand out a partially decoded record.
		return construct(), false
	}
	inst.MarkClean()
	return inst, true
}

func (v *Vault) exists(ctx context.Context, kind string) (bool, error) {
	v.ioMu.Lock()
	defer v.ioMu.Unlock()
	return v.backend.Exists(ctx, kind)
}

// Save persists the kind's instance when it is dirty. A clean or never-loaded
// instance is a no-op, so repeated saves do not rewrite unchanged files.
// Unregistered kinds fail with ErrUnknownKind.
func (v *Vault) Save(ctx context.Context, kind string) error {
	start := time.Now()
	ctx, span := v.tracer.Start(ctx, "save")
	err := v.saveKind(ctx, kind)
	span.End(err)
	v.metrics.Observe(ctx, "save", err == nil, time.Since(start))
	return err
}

func (v *Vault) saveKind(ctx context.Context, kind string) error {
	v.mu.Lock()
	_, registered := v.factories[kind]
	inst := v.cache[kind]
	v.mu.Unlock()
	if !registered {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if inst == nil || !inst.Dirty() {
		return nil
	}
	// Snapshot the encoding before taking the I/O lock.
	data, err := v.codec.Encode(inst)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	if err := v.write(ctx, kind, string(data)); err != nil {
		return err
	}
	inst.MarkClean()
	v.log.Debug("saved state", "kind", kind, "path", v.backend.PathFor(kind))
	return nil
}

func (v *Vault) write(ctx context.Context, kind, text string) error {
	if err := v.backend.EnsureDir(ctx); err != nil {
		return fmt.Errorf("ensure storage for %s: %w", kind, err)
	}
	v.ioMu.Lock()
	defer v.ioMu.Unlock()
	if err := v.backend.Write(ctx, kind, text); err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	return nil
}

// SaveAll persists every dirty cached instance, continuing past individual
// failures and returning them joined. Clean instances are skipped. All
// serialization snapshots are taken before any I/O begins; mutations landing
// after a kind's snapshot are picked up by the next save.
func (v *Vault) SaveAll(ctx context.Context) error {
	start := time.Now()
	ctx, span := v.tracer.Start(ctx, "save_all")
	batch := uuid.NewString()

	type snapshot struct {
		kind string
		inst Persistable
		text string
	}
	var snaps []snapshot
	var errs []error
	for _, kind := range v.CachedKinds() {
		v.mu.Lock()
		inst := v.cache[kind]
		v.mu.Unlock()
		if inst == nil || !inst.Dirty() {
			continue
		}
		data, err := v.codec.Encode(inst)
		if err != nil {
			v.log.Error("save failed", "kind", kind, "batch", batch, "error", err)
			errs = append(errs, fmt.Errorf("encode %s: %w", kind, err))
			continue
		}
		snaps = append(snaps, snapshot{kind: kind, inst: inst, text: string(data)})
	}
	for _, s := range snaps {
		if err := v.write(ctx, s.kind, s.text); err != nil {
			v.log.Error("save failed", "kind", s.kind, "batch", batch, "error", err)
			errs = append(errs, err)
			continue
		}
		s.inst.MarkClean()
		v.log.Debug("saved state", "kind", s.kind, "batch", batch, "path", v.backend.PathFor(s.kind))
	}

	err := errors.Join(errs...)
	span.End(err)
	v.metrics.Observe(ctx, "save_all", err == nil, time.Since(start))
	return err
}

// SaveAsync persists the kind on a background goroutine. The optional done
// callback receives the save result.
func (v *Vault) SaveAsync(kind string, done func(error)) {
	go func() {
		err := v.Save(context.Background(), kind)
		if done != nil {
			done(err)
		}
	}()
}

// SaveAllAsync persists all dirty instances on a background goroutine. The
// optional done callback receives the joined result.
func (v *Vault) SaveAllAsync(done func(error)) {
	go func() {
		err := v.SaveAll(context.Background())
		if done != nil {
			done(err)
		}
	}()
}

// ClearPersisted removes every persisted encoding from the backend. Cached
// instances and their dirty flags are untouched, so in-memory state survives
// and will be re-persisted on the next save. Failures are logged, not
// returned.
func (v *Vault) ClearPersisted(ctx context.Context) {
	start := time.Now()
	v.ioMu.Lock()
	n, err := v.backend.Clear(ctx)
	v.ioMu.Unlock()
	v.metrics.Observe(ctx, "clear", err == nil, time.Since(start))
	if err != nil {
		v.log.Error("clear persisted state failed", "error", err)
		return
	}
	v.log.Info("cleared persisted state", "removed", n)
}
