package state

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultAutosaveInterval is the cadence between save-all batches when
	// none is configured.
	DefaultAutosaveInterval = 300 * time.Second
	// autosaveRetryDelay is the shortened wait after a failed batch.
	autosaveRetryDelay = 2 * time.Second
	// autosaveRetryCeiling caps consecutive fast retries before the loop
	// falls back to the normal cadence.
	autosaveRetryCeiling = 10
)

// AutosaveState reports what the autosave loop is currently doing.
type AutosaveState int32

const (
	AutosaveStopped AutosaveState = iota
	AutosaveWaiting
	AutosaveSaving
)

func (s AutosaveState) String() string {
	switch s {
	case AutosaveStopped:
		return "stopped"
	case AutosaveWaiting:
		return "waiting"
	case AutosaveSaving:
		return "saving"
	default:
		return "unknown"
	}
}

// Autosaver runs periodic save-all batches on a background goroutine.
// Failed batches are retried on a short delay until a ceiling of consecutive
// failures, after which the loop resumes the normal cadence. Stop is
// cooperative: a batch in flight finishes before the loop exits.
type Autosaver struct {
	vault *Vault

	mu         sync.Mutex
	interval   time.Duration
	retryDelay time.Duration
	// stopC is non-nil exactly while the loop is enabled. Each loop holds
	// the channel it was started with and exits when the vault's current
	// channel is no longer its own.
	stopC chan struct{}

	state atomic.Int32
}

func newAutosaver(v *Vault) *Autosaver {
	return &Autosaver{
		vault:      v,
		interval:   DefaultAutosaveInterval,
		retryDelay: autosaveRetryDelay,
	}
}

// Start launches the autosave loop. A non-positive interval keeps the
// previously configured one. Starting an already running autosaver only
// updates the interval.
func (a *Autosaver) Start(interval time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if interval > 0 {
		a.interval = interval
	}
	if a.stopC != nil {
		return
	}
	stopC := make(chan struct{})
	a.stopC = stopC
	go a.loop(stopC)
}

// Stop signals the loop to exit at its next wait boundary. A save in flight
// completes first. Stopping an idle autosaver is a no-op.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopC == nil {
		return
	}
	close(a.stopC)
	a.stopC = nil
}

// State returns the loop's current phase.
func (a *Autosaver) State() AutosaveState {
	return AutosaveState(a.state.Load())
}

// Interval returns the configured save cadence.
func (a *Autosaver) Interval() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interval
}

func (a *Autosaver) loop(stopC chan struct{}) {
	defer func() {
		// A replacement loop may already be running after a quick
		// Stop/Start; only publish Stopped when no loop is enabled.
		a.mu.Lock()
		if a.stopC == nil {
			a.state.Store(int32(AutosaveStopped))
		}
		a.mu.Unlock()
	}()

	retries := 0
	// First batch runs immediately; subsequent waits use the cadence or
	// the retry delay.
	var delay time.Duration
	for {
		if delay > 0 {
			a.state.Store(int32(AutosaveWaiting))
			timer := time.NewTimer(delay)
			select {
			case <-stopC:
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		select {
		case <-stopC:
			return
		default:
		}

		a.state.Store(int32(AutosaveSaving))
		err := a.vault.SaveAll(context.Background())
		a.vault.notifyAutosave(err == nil)

		switch {
		case err == nil:
			retries = 0
			delay = a.Interval()
		case retries >= autosaveRetryCeiling-1:
			a.vault.log.Warn("autosave retry ceiling reached, resuming normal cadence",
				"failures", retries+1, "error", err)
			retries = 0
			delay = a.Interval()
		default:
			retries++
			a.mu.Lock()
			delay = a.retryDelay
			a.mu.Unlock()
		}
	}
}

// StartAutosave launches periodic save-all batches. A non-positive interval
// keeps the configured one (DefaultAutosaveInterval unless overridden).
func (v *Vault) StartAutosave(interval time.Duration) {
	v.saver.Start(interval)
}

// StopAutosave asks the autosave loop to exit. A batch in flight completes
// before the loop stops.
func (v *Vault) StopAutosave() {
	v.saver.Stop()
}

// AutosaveState reports the autosave loop's current phase.
func (v *Vault) AutosaveState() AutosaveState {
	return v.saver.State()
}
