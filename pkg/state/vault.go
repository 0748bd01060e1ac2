// Package state provides a typed, file-backed persistence cache for
// application state. Each registered kind has exactly one live instance,
// obtained through Get; instances track their own modification status via
// the track protocol and are flushed to a storage backend on demand or by
// the autosaver.
//
// Access discipline: field mutations and registry calls are expected from a
// single application goroutine. The registry map itself is guarded so the
// autosave goroutine can enumerate cached kinds, and all backend I/O is
// serialized behind one coarse mutex.
package state

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"statecore/pkg/codec"
	"statecore/pkg/storage"
	"statecore/pkg/track"
)

// Persistable is a unit of application state that a Vault can cache and
// persist: a trackable record with a stable kind identifier.
type Persistable interface {
	track.Trackable
	// Kind returns the identifier distinguishing this category of state.
	// It determines the storage file name; exactly one live instance per
	// kind is cached.
	Kind() string
}

// ErrUnknownKind reports a persistence request for a kind that was never
// registered. This is the one error class that surfaces synchronously as a
// hard failure instead of collapsing into a fallback.
var ErrUnknownKind = errors.New("state: kind not registered")

// Vault owns the kind registry, the live instance cache, and the persistence
// pipeline. Construct with New and pass it explicitly to consumers.
type Vault struct {
	backend storage.Backend
	codec   codec.Codec
	log     Logger
	metrics MetricsRecorder
	tracer  Tracer

	// ioMu is the single process-wide lock serializing every backend
	// read, write, and clear. It is held only for the I/O call itself.
	ioMu sync.Mutex

	// mu guards the registry maps. Instance field mutation remains
	// single-goroutine by contract.
	mu        sync.Mutex
	factories map[string]func() Persistable
	kinds     map[reflect.Type]string
	cache     map[string]Persistable

	saver *Autosaver

	cbMu       sync.Mutex
	onAutosave []func(ok bool)
}

// Register declares a kind as serialization-eligible, keyed by the kind name
// of a freshly constructed instance. Registering the same kind or an empty
// kind name fails.
func Register[T Persistable](v *Vault, construct func() T) error {
	if construct == nil {
		return fmt.Errorf("state: construct function required")
	}
	sample := construct()
	kind := sample.Kind()
	if strings.TrimSpace(kind) == "" {
		return fmt.Errorf("state: empty kind name for %T", sample)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, dup := v.factories[kind]; dup {
		return fmt.Errorf("state: kind %s already registered", kind)
	}
	v.factories[kind] = func() Persistable { return construct() }
	v.kinds[reflect.TypeOf((*T)(nil)).Elem()] = kind
	return nil
}

// Get returns the live instance for T, loading it from storage on first
// access and falling back to default construction when no usable encoding
// exists. Repeated calls return the same instance. Unregistered types fail
// with ErrUnknownKind.
func Get[T Persistable](ctx context.Context, v *Vault) (T, error) {
	var zero T
	v.mu.Lock()
	kind, ok := v.kinds[reflect.TypeOf((*T)(nil)).Elem()]
	v.mu.Unlock()
	if !ok {
		return zero, fmt.Errorf("%w: %T", ErrUnknownKind, zero)
	}
	inst, err := v.instance(ctx, kind)
	if err != nil {
		return zero, err
	}
	t, ok := inst.(T)
	if !ok {
		// Possible only if Override cached a different concrete type
		// under the same kind.
		return zero, fmt.Errorf("state: cached instance for %s is %T, want %T", kind, inst, zero)
	}
	return t, nil
}

// Override replaces the cached instance for the kind. When the replacement
// is a different object than the incumbent it is marked changed before
// caching so the next save persists it. The kind must be registered.
func Override[T Persistable](v *Vault, inst T) error {
	kind := inst.Kind()
	v.mu.Lock()
	_, registered := v.factories[kind]
	prev := v.cache[kind]
	v.mu.Unlock()
	if !registered {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if prev == nil || prev != Persistable(inst) {
		inst.NotifyChanged()
	}
	v.mu.Lock()
	v.cache[kind] = inst
	v.mu.Unlock()
	return nil
}

// instance returns the cached instance for kind, loading or constructing it
// on first access.
func (v *Vault) instance(ctx context.Context, kind string) (Persistable, error) {
	v.mu.Lock()
	if inst, ok := v.cache[kind]; ok {
		v.mu.Unlock()
		return inst, nil
	}
	construct := v.factories[kind]
	v.mu.Unlock()
	if construct == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	inst := v.loadOrDefault(ctx, kind, construct)

	v.mu.Lock()
	defer v.mu.Unlock()
	if existing, ok := v.cache[kind]; ok {
		return existing, nil
	}
	v.cache[kind] = inst
	return inst, nil
}

// CachedKinds returns the kinds with a live instance, sorted. Save-all
// batches enumerate in this order.
func (v *Vault) CachedKinds() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, 0, len(v.cache))
	for kind := range v.cache {
		out = append(out, kind)
	}
	sort.Strings(out)
	return out
}

// Backend returns the configured storage backend.
func (v *Vault) Backend() storage.Backend { return v.backend }

// OnAutosave subscribes to the autosave-completed event; ok reports whether
// the whole save-all batch succeeded.
func (v *Vault) OnAutosave(fn func(ok bool)) {
	if fn == nil {
		return
	}
	v.cbMu.Lock()
	v.onAutosave = append(v.onAutosave, fn)
	v.cbMu.Unlock()
}

func (v *Vault) notifyAutosave(ok bool) {
	v.cbMu.Lock()
	cbs := make([]func(bool), len(v.onAutosave))
	copy(cbs, v.onAutosave)
	v.cbMu.Unlock()
	for _, fn := range cbs {
		fn(ok)
	}
}
