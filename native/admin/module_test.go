package admin

import (
	"bytes"
	"errors"
	"testing"

	"custodia/core/events"
)

type mockState struct {
	state *State
}

func (m *mockState) AdminStatePut(s *State) error {
	m.state = s.Clone()
	return nil
}

func (m *mockState) AdminStateGet() (*State, bool, error) {
	if m.state == nil {
		return nil, false, nil
	}
	return m.state.Clone(), true, nil
}

type rejectAuth struct{}

func (rejectAuth) Authenticate([20]byte) error { return errors.New("no proof of control") }

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func newTestModule() (*Module, *mockState, *events.Recorder) {
	state := &mockState{}
	recorder := &events.Recorder{}
	module := NewModule()
	module.SetState(state)
	module.SetEmitter(recorder)
	return module, state, recorder
}

func TestInitializeIsOneShot(t *testing.T) {
	module, _, _ := newTestModule()
	adminAddr := newTestAddress(0xA1)

	if _, ok, err := module.Admin(); err != nil || ok {
		t.Fatalf("Admin before init = (%v, %v), want absent", ok, err)
	}

	if err := module.Initialize(adminAddr); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	got, ok, err := module.Admin()
	if err != nil || !ok || got != adminAddr {
		t.Fatalf("Admin after init = (%x, %v, %v)", got, ok, err)
	}
	paused, err := module.Paused()
	if err != nil || paused {
		t.Fatalf("fresh module paused = (%v, %v), want false", paused, err)
	}

	if err := module.Initialize(newTestAddress(0xA2)); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second initialize err = %v, want ErrAlreadyInitialized", err)
	}
}

func TestGatedOperationsRequireCurrentAdmin(t *testing.T) {
	module, _, _ := newTestModule()
	adminAddr := newTestAddress(0xA1)
	stranger := newTestAddress(0xB2)

	// Before initialization every gate fails identically.
	if err := module.SetPaused(stranger, true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("uninitialized SetPaused err = %v, want ErrUnauthorized", err)
	}
	if err := module.SetAdmin(stranger, stranger); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("uninitialized SetAdmin err = %v, want ErrUnauthorized", err)
	}

	if err := module.Initialize(adminAddr); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if err := module.SetPaused(stranger, true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("stranger SetPaused err = %v, want ErrUnauthorized", err)
	}
	if err := module.SetPaused(adminAddr, true); err != nil {
		t.Fatalf("admin SetPaused failed: %v", err)
	}
	paused, err := module.Paused()
	if err != nil || !paused {
		t.Fatalf("paused = (%v, %v), want true", paused, err)
	}
	if err := module.SetPaused(adminAddr, false); err != nil {
		t.Fatalf("admin unpause failed: %v", err)
	}
	paused, err = module.Paused()
	if err != nil || paused {
		t.Fatalf("paused = (%v, %v), want false", paused, err)
	}
}

func TestAdminTransferRevokesOldAdmin(t *testing.T) {
	module, _, recorder := newTestModule()
	oldAdmin := newTestAddress(0xA1)
	newAdmin := newTestAddress(0xA2)

	if err := module.Initialize(oldAdmin); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if err := module.SetAdmin(oldAdmin, newAdmin); err != nil {
		t.Fatalf("SetAdmin failed: %v", err)
	}

	if err := module.SetPaused(oldAdmin, true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old admin SetPaused err = %v, want ErrUnauthorized", err)
	}
	if err := module.SetPaused(newAdmin, true); err != nil {
		t.Fatalf("new admin SetPaused failed: %v", err)
	}

	var changed int
	for _, evt := range recorder.Events {
		if evt.EventType() == EventTypeAdminChanged {
			changed++
		}
	}
	if changed != 1 {
		t.Fatalf("admin changed events = %d, want 1", changed)
	}
}

func TestSetPausedEmitsUnconditionally(t *testing.T) {
	module, _, recorder := newTestModule()
	adminAddr := newTestAddress(0xA1)
	if err := module.Initialize(adminAddr); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	// Writing the value already in place still emits: the event tracks the
	// authorized call, not the flip.
	if err := module.SetPaused(adminAddr, false); err != nil {
		t.Fatalf("SetPaused failed: %v", err)
	}
	if err := module.SetPaused(adminAddr, false); err != nil {
		t.Fatalf("SetPaused failed: %v", err)
	}

	var pauseEvents int
	for _, evt := range recorder.Events {
		if evt.EventType() == EventTypePauseChanged {
			pauseEvents++
		}
	}
	if pauseEvents != 2 {
		t.Fatalf("pause events = %d, want 2", pauseEvents)
	}

	// Unauthorized calls emit nothing.
	_ = module.SetPaused(newTestAddress(0xB2), true)
	for _, evt := range recorder.Events[2:] {
		if evt.EventType() == EventTypePauseChanged {
			t.Fatalf("unauthorized call emitted a pause event")
		}
	}
}

func TestAuthenticatorFailureSurfacesUnauthorized(t *testing.T) {
	module, _, _ := newTestModule()
	adminAddr := newTestAddress(0xA1)
	if err := module.Initialize(adminAddr); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	module.SetAuthenticator(rejectAuth{})
	if err := module.SetPaused(adminAddr, true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestRequireNotPaused(t *testing.T) {
	module, _, _ := newTestModule()
	adminAddr := newTestAddress(0xA1)
	if err := module.RequireNotPaused(); err != nil {
		t.Fatalf("uninitialized module must not be paused: %v", err)
	}
	if err := module.Initialize(adminAddr); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if err := module.SetPaused(adminAddr, true); err != nil {
		t.Fatalf("SetPaused failed: %v", err)
	}
	if err := module.RequireNotPaused(); !errors.Is(err, ErrPaused) {
		t.Fatalf("err = %v, want ErrPaused", err)
	}
}
