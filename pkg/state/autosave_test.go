package state

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitForState(t *testing.T, v *Vault, want AutosaveState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v.AutosaveState() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("autosave state never reached %s, still %s", want, v.AutosaveState())
}

func nextResult(t *testing.T, results <-chan bool) bool {
	t.Helper()
	select {
	case ok := <-results:
		return ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for autosave callback")
		return false
	}
}

func TestAutosavePersistsDirtyState(t *testing.T) {
	v, _, inner := newCountingVault(t)
	if err := Register(v, func() *profile { return &profile{} }); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := Get[*profile](context.Background(), v)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	inst.SetName("ada")

	results := make(chan bool, 16)
	v.OnAutosave(func(ok bool) { results <- ok })

	v.StartAutosave(time.Hour)
	defer v.StopAutosave()

	if ok := nextResult(t, results); !ok {
		t.Fatal("first autosave batch should succeed")
	}
	if inst.Dirty() {
		t.Fatal("autosave must clean the saved instance")
	}
	if _, err := inner.Read(context.Background(), "app::profile"); err != nil {
		t.Fatalf("autosave did not persist: %v", err)
	}
}

func TestAutosaveRetriesFailedBatches(t *testing.T) {
	v, backend, _ := newCountingVault(t)
	if err := Register(v, func() *profile { return &profile{} }); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := Get[*profile](context.Background(), v)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	inst.SetName("ada")

	writeErr := errors.New("disk full")
	backend.mu.Lock()
	backend.failKinds["app::profile"] = writeErr
	backend.mu.Unlock()

	results := make(chan bool, 64)
	v.OnAutosave(func(ok bool) { results <- ok })

	v.saver.retryDelay = time.Millisecond
	v.StartAutosave(time.Hour)
	defer v.StopAutosave()

	// The failing batch is retried on the short delay, not the cadence.
	for i := 0; i < 3; i++ {
		if ok := nextResult(t, results); ok {
			t.Fatalf("batch %d should have failed", i)
		}
	}

	backend.mu.Lock()
	delete(backend.failKinds, "app::profile")
	backend.mu.Unlock()

	for {
		if ok := nextResult(t, results); ok {
			break
		}
	}
	if inst.Dirty() {
		t.Fatal("recovered autosave must clean the instance")
	}
}

func TestAutosaveSurvivesRetryCeiling(t *testing.T) {
	v, backend, _ := newCountingVault(t)
	if err := Register(v, func() *profile { return &profile{} }); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := Get[*profile](context.Background(), v)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	inst.SetName("ada")

	backend.mu.Lock()
	backend.failKinds["app::profile"] = errors.New("disk full")
	backend.mu.Unlock()

	results := make(chan bool, 64)
	v.OnAutosave(func(ok bool) { results <- ok })

	v.saver.retryDelay = time.Millisecond
	v.StartAutosave(5 * time.Millisecond)
	defer v.StopAutosave()

	// Past the ceiling the loop keeps running on the normal cadence
	// instead of stopping or spinning.
	for i := 0; i < autosaveRetryCeiling+2; i++ {
		if ok := nextResult(t, results); ok {
			t.Fatalf("batch %d should have failed", i)
		}
	}
	if got := v.AutosaveState(); got == AutosaveStopped {
		t.Fatal("autosave must not stop on persistent failure")
	}
}

func TestAutosaveStopIsCooperative(t *testing.T) {
	v, _, _ := newCountingVault(t)
	v.StartAutosave(time.Hour)
	waitForState(t, v, AutosaveWaiting)

	v.StopAutosave()
	waitForState(t, v, AutosaveStopped)

	// Stopping twice is harmless.
	v.StopAutosave()
	if got := v.AutosaveState(); got != AutosaveStopped {
		t.Fatalf("state after double stop = %s", got)
	}
}

func TestAutosaveRestart(t *testing.T) {
	v, _, _ := newCountingVault(t)
	v.StartAutosave(time.Hour)
	waitForState(t, v, AutosaveWaiting)
	v.StopAutosave()
	waitForState(t, v, AutosaveStopped)

	results := make(chan bool, 4)
	v.OnAutosave(func(ok bool) { results <- ok })
	v.StartAutosave(time.Hour)
	defer v.StopAutosave()

	if ok := nextResult(t, results); !ok {
		t.Fatal("restarted autosave should run a batch")
	}
}

func TestAutosaveStateString(t *testing.T) {
	cases := map[AutosaveState]string{
		AutosaveStopped:   "stopped",
		AutosaveWaiting:   "waiting",
		AutosaveSaving:    "saving",
		AutosaveState(99): "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("state %d = %q, want %q", state, got, want)
		}
	}
}
