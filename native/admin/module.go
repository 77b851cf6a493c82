package admin

import (
	"errors"

	"custodia/core/events"
	"custodia/core/types"
)

var (
	errNilState = errors.New("admin module: state not configured")

	// ErrAlreadyInitialized is returned when Initialize is called after an
	// admin has been seeded.
	ErrAlreadyInitialized = errors.New("admin: already initialized")
	// ErrUnauthorized is returned for any failed admin gate. "No admin set"
	// and "wrong admin" surface identically so unauthorized callers cannot
	// probe the initialization state.
	ErrUnauthorized = errors.New("admin: unauthorized")
	// ErrPaused is returned by RequireNotPaused while the pause flag is set.
	ErrPaused = errors.New("admin: contract paused")
)

// State holds the global admin identity and pause flag. Admin is nil until
// Initialize seeds it exactly once; afterwards it changes only through an
// authorized SetAdmin.
type State struct {
	Admin  *[20]byte `json:"admin,omitempty"`
	Paused bool      `json:"paused"`
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := &State{Paused: s.Paused}
	if s.Admin != nil {
		admin := *s.Admin
		clone.Admin = &admin
	}
	return clone
}

type moduleState interface {
	AdminStatePut(*State) error
	AdminStateGet() (*State, bool, error)
}

// Authenticator proves that a caller controls the identity it asserts.
type Authenticator interface {
	Authenticate(addr [20]byte) error
}

type allowAll struct{}

func (allowAll) Authenticate([20]byte) error { return nil }

type adminEvent struct {
	evt *types.Event
}

func (e adminEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e adminEvent) Event() *types.Event { return e.evt }

// Module gates privileged state transitions behind the single global admin
// identity and owns the pause flag consulted by the custody engine.
type Module struct {
	state   moduleState
	emitter events.Emitter
	auth    Authenticator
}

// NewModule creates an admin module with a no-op emitter and an
// accept-everything authenticator.
func NewModule() *Module {
	return &Module{
		emitter: events.NoopEmitter{},
		auth:    allowAll{},
	}
}

// SetState configures the state backend used by the module.
func (m *Module) SetState(state moduleState) { m.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (m *Module) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		m.emitter = events.NoopEmitter{}
		return
	}
	m.emitter = emitter
}

// SetAuthenticator configures the authentication oracle. Passing nil restores
// the accept-everything default.
func (m *Module) SetAuthenticator(auth Authenticator) {
	if auth == nil {
		m.auth = allowAll{}
		return
	}
	m.auth = auth
}

func (m *Module) emit(event *types.Event) {
	if m == nil || m.emitter == nil || event == nil {
		return
	}
	m.emitter.Emit(adminEvent{evt: event})
}

func (m *Module) load() (*State, error) {
	if m == nil || m.state == nil {
		return nil, errNilState
	}
	state, ok, err := m.state.AdminStateGet()
	if err != nil {
		return nil, err
	}
	if !ok || state == nil {
		return &State{}, nil
	}
	return state, nil
}

// Initialize seeds the admin identity and an unpaused flag. It succeeds at
// most once; any later call fails with ErrAlreadyInitialized.
func (m *Module) Initialize(admin [20]byte) error {
	state, err := m.load()
	if err != nil {
		return err
	}
	if state.Admin != nil {
		return ErrAlreadyInitialized
	}
	return m.state.AdminStatePut(&State{Admin: &admin, Paused: false})
}

// Admin returns the current admin identity, or false when the module has not
// been initialized.
func (m *Module) Admin() ([20]byte, bool, error) {
	state, err := m.load()
	if err != nil {
		return [20]byte{}, false, err
	}
	if state.Admin == nil {
		return [20]byte{}, false, nil
	}
	return *state.Admin, true, nil
}

// requireAdmin authenticates the caller and checks it against the stored
// admin. Both "no admin yet" and "wrong admin" collapse into ErrUnauthorized.
func (m *Module) requireAdmin(caller [20]byte) (*State, error) {
	if err := m.auth.Authenticate(caller); err != nil {
		return nil, ErrUnauthorized
	}
	state, err := m.load()
	if err != nil {
		return nil, err
	}
	if state.Admin == nil || *state.Admin != caller {
		return nil, ErrUnauthorized
	}
	return state, nil
}

// SetAdmin transfers the admin identity. Only the current admin may call it;
// the old admin loses all gated capabilities immediately.
func (m *Module) SetAdmin(caller, newAdmin [20]byte) error {
	state, err := m.requireAdmin(caller)
	if err != nil {
		return err
	}
	old := *state.Admin
	state.Admin = &newAdmin
	if err := m.state.AdminStatePut(state); err != nil {
		return err
	}
	m.emit(NewAdminChangedEvent(old, newAdmin))
	return nil
}

// SetPaused sets the pause flag. The pause-changed event is emitted on every
// authorized call, including ones that write the value already in place.
func (m *Module) SetPaused(caller [20]byte, paused bool) error {
	state, err := m.requireAdmin(caller)
	if err != nil {
		return err
	}
	state.Paused = paused
	if err := m.state.AdminStatePut(state); err != nil {
		return err
	}
	m.emit(NewPauseChangedEvent(caller, paused))
	return nil
}

// Paused reports the current pause flag. An uninitialized module is unpaused.
func (m *Module) Paused() (bool, error) {
	state, err := m.load()
	if err != nil {
		return false, err
	}
	return state.Paused, nil
}

// RequireNotPaused is a guard usable by any gated operation.
func (m *Module) RequireNotPaused() error {
	paused, err := m.Paused()
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}
	return nil
}
