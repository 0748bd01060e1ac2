package state

import (
	"context"
	"reflect"
	"time"

	"statecore/pkg/codec"
	"statecore/pkg/storage"
)

// Option configures a Vault during construction.
type Option func(*Vault)

// WithBackend sets the storage backend. Without it, New opens one from the
// environment (filesystem by default).
func WithBackend(b storage.Backend) Option {
	return func(v *Vault) { v.backend = b }
}

// WithCodec sets the text codec. The default is pretty-printed JSON.
func WithCodec(c codec.Codec) Option {
	return func(v *Vault) {
		if c != nil {
			v.codec = c
		}
	}
}

// WithLogger sets the structured log sink. The default is silent.
func WithLogger(l Logger) Option {
	return func(v *Vault) {
		if l != nil {
			v.log = l
		}
	}
}

// WithMetrics sets the metrics recorder for pipeline operations.
func WithMetrics(m MetricsRecorder) Option {
	return func(v *Vault) {
		if m != nil {
			v.metrics = m
		}
	}
}

// WithTracer sets the tracer for pipeline operations.
func WithTracer(t Tracer) Option {
	return func(v *Vault) {
		if t != nil {
			v.tracer = t
		}
	}
}

// WithAutosaveInterval sets the cadence used when the autosaver starts
// without an explicit interval.
func WithAutosaveInterval(d time.Duration) Option {
	return func(v *Vault) {
		if d > 0 {
			v.saver.interval = d
		}
	}
}

// New constructs a Vault. Without WithBackend, the backend is opened from the
// environment with the codec's extension.
func New(opts ...Option) (*Vault, error) {
	v := &Vault{
		codec:     codec.JSON{},
		log:       noopLogger{},
		metrics:   noopMetrics{},
		tracer:    noopTracer{},
		factories: make(map[string]func() Persistable),
		kinds:     make(map[reflect.Type]string),
		cache:     make(map[string]Persistable),
	}
	v.saver = newAutosaver(v)
	for _, opt := range opts {
		opt(v)
	}
	if v.backend == nil {
		backend, err := storage.Open(context.Background(), storage.Config{Ext: v.codec.Ext()})
		if err != nil {
			return nil, err
		}
		v.backend = backend
	}
	return v, nil
}
