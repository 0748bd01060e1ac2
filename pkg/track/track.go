// Package track provides the change-tracking protocol shared by persisted
// state records: a dirty flag, change notification, and clean transitions.
// Records embed Record and funnel every field mutation through Set or
// NotifyChanged; nested containers combine their own flag with their
// elements' flags by delegation.
package track

// Trackable is the capability of reporting and clearing a dirty status and
// notifying observers of changes. It is implemented by leaf records (via the
// embeddable Record) and by collections of trackable elements.
type Trackable interface {
	// Dirty reports whether the value holds changes not yet persisted.
	Dirty() bool
	// NotifyChanged marks the value dirty and fires change observers.
	NotifyChanged()
	// MarkClean resets the dirty flag after a confirmed persist.
	MarkClean()
}

// Record is the embeddable change-tracking base for a persisted state type.
// The zero value is clean with no observers. Record never fails; it is pure
// in-memory bookkeeping and performs no synchronization of its own (records
// are mutated from a single application goroutine).
type Record struct {
	dirty    bool
	onChange []func()
	onDirty  []func()
}

// Dirty reports the current modification status.
func (r *Record) Dirty() bool { return r.dirty }

// NotifyChanged sets the dirty flag. Dirty observers fire only on the
// clean-to-dirty edge; change observers fire on every call.
func (r *Record) NotifyChanged() {
	wasClean := !r.dirty
	r.dirty = true
	if wasClean {
		for _, fn := range r.onDirty {
			fn()
		}
	}
	for _, fn := range r.onChange {
		fn()
	}
}

// MarkClean resets the dirty flag. Wrapper types that own trackable elements
// layer recursive cleaning on top of this.
func (r *Record) MarkClean() { r.dirty = false }

// OnChange registers fn to run on every NotifyChanged call.
func (r *Record) OnChange(fn func()) {
	if fn != nil {
		r.onChange = append(r.onChange, fn)
	}
}

// OnDirty registers fn to run when the record transitions from clean to dirty.
func (r *Record) OnDirty(fn func()) {
	if fn != nil {
		r.onDirty = append(r.onDirty, fn)
	}
}

// Set assigns value to field when it differs from the current value and marks
// the record dirty. Equal values are a no-op. When the record is already
// dirty and no change observers are registered the comparison is skipped:
// cleanliness is already lost, so detecting this particular change is
// unobservable.
func Set[T comparable](r *Record, field *T, value T) {
	if r.dirty && len(r.onChange) == 0 {
		*field = value
		return
	}
	if *field == value {
		return
	}
	*field = value
	r.NotifyChanged()
}
