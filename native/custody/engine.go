package custody

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"custodia/core/events"
	"custodia/core/types"
)

var (
	errNilState = errors.New("custody engine: state not configured")
)

// engineState is the persistence surface consumed by the engine. EntrySpend
// must run the pending check, the amount check and the flip to Spent as one
// atomic operation against the commitment key: that is what serialises
// concurrent withdrawals of the same commitment, so only one caller can ever
// observe Pending and flip it.
type engineState interface {
	EntryPut(*Entry) error
	EntryGet(commitment [32]byte) (*Entry, bool, error)
	EntrySpend(commitment [32]byte, amount *big.Int) (*Entry, error)
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	VaultAddress(token string) ([20]byte, error)
}

// Authenticator proves that a caller controls the identity it asserts. It is
// consulted before any caller-supplied address is trusted.
type Authenticator interface {
	Authenticate(addr [20]byte) error
}

// Pauser reports whether privileged operations have been suspended. The
// admin module satisfies this interface.
type Pauser interface {
	Paused() (bool, error)
}

// PausePolicy selects which engine operations honour the pause flag. The
// flag itself is owned by the admin module; whether deposits or withdrawals
// consult it is a deployment decision.
type PausePolicy struct {
	Deposits    bool
	Withdrawals bool
}

type custodyEvent struct {
	evt *types.Event
}

func (e custodyEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e custodyEvent) Event() *types.Event { return e.evt }

type allowAll struct{}

func (allowAll) Authenticate([20]byte) error { return nil }

// Engine validates deposits and withdrawals against the entry store and the
// commitment function, enforcing the Pending to Spent state machine. State,
// emitter, authenticator and pauser are injected so the engine can be tested
// in isolation.
type Engine struct {
	// mu serialises mutating calls so the duplicate-deposit check and the
	// balance read-modify-writes in transferToken run against a consistent
	// snapshot even when the RPC layer dispatches requests concurrently.
	mu      sync.Mutex
	state   engineState
	emitter events.Emitter
	auth    Authenticator
	pauser  Pauser
	policy  PausePolicy
	nowFn   func() int64
}

// NewEngine creates a custody engine with a no-op emitter and an
// accept-everything authenticator. Callers override both via the setters.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		auth:    allowAll{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetAuthenticator configures the authentication oracle consulted before any
// caller-asserted identity is trusted. Passing nil restores the
// accept-everything default.
func (e *Engine) SetAuthenticator(auth Authenticator) {
	if auth == nil {
		e.auth = allowAll{}
		return
	}
	e.auth = auth
}

// SetPauser configures the pause probe consulted by gated operations.
func (e *Engine) SetPauser(pauser Pauser) { e.pauser = pauser }

// SetPausePolicy selects which operations honour the pause flag.
func (e *Engine) SetPausePolicy(policy PausePolicy) { e.policy = policy }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(custodyEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) authenticate(addr [20]byte) error {
	if e == nil || e.auth == nil {
		return nil
	}
	if err := e.auth.Authenticate(addr); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return nil
}

func (e *Engine) requireNotPaused(gated bool) error {
	if !gated || e == nil || e.pauser == nil {
		return nil
	}
	paused, err := e.pauser.Paused()
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}
	return nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (e *Engine) transferToken(from, to [20]byte, token string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("custody: negative transfer amount")
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = types.NormalizeAccount(fromAcc)
	toAcc = types.NormalizeAccount(toAcc)
	fromBal := fromAcc.Balance(token)
	if fromBal.Cmp(amt) < 0 {
		return fmt.Errorf("custody: insufficient balance")
	}
	fromAcc.SetBalance(token, new(big.Int).Sub(fromBal, amt))
	toAcc.SetBalance(token, new(big.Int).Add(toAcc.Balance(token), amt))
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

// Deposit escrows amount of token from the depositor into custody under the
// supplied commitment digest. The commitment is computed off-process by the
// depositor so the intended recipient is never revealed on deposit. A deposit
// onto an existing commitment is rejected rather than merged, regardless of
// whether the existing entry is pending or spent.
func (e *Engine) Deposit(depositor [20]byte, commitment [32]byte, token string, amount *big.Int) (*Entry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	normalizedToken, err := NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	if err := e.requireNotPaused(e.policy.Deposits); err != nil {
		return nil, err
	}
	if err := e.authenticate(depositor); err != nil {
		return nil, err
	}
	// A read failure must not pass for "no entry": overwriting an existing
	// commitment would merge distinct funding events.
	_, exists, err := e.state.EntryGet(commitment)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateCommitment
	}
	vault, err := e.state.VaultAddress(normalizedToken)
	if err != nil {
		return nil, err
	}
	if err := e.transferToken(depositor, vault, normalizedToken, amount); err != nil {
		return nil, err
	}
	entry := &Entry{
		Commitment: commitment,
		Token:      normalizedToken,
		Amount:     cloneBigInt(amount),
		Status:     StatusPending,
		Depositor:  depositor,
		CreatedAt:  e.now(),
	}
	if err := e.state.EntryPut(entry); err != nil {
		return nil, err
	}
	e.emit(NewDepositedEvent(entry))
	return entry.Clone(), nil
}

// Withdraw releases a pending entry to the recipient that reveals the
// (recipient, amount, salt) triple behind its commitment. The pending check
// and the flip to Spent run as one atomic state operation, and the flip is
// persisted before the value transfer, so neither a concurrent attempt nor a
// transfer-failure retry can ever be paid twice. Exactly one withdrawal can
// succeed per commitment; later attempts observe Spent and fail.
func (e *Engine) Withdraw(recipient [20]byte, amount *big.Int, salt []byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if amount == nil || amount.Sign() <= 0 {
		return false, ErrInvalidAmount
	}
	if err := e.requireNotPaused(e.policy.Withdrawals); err != nil {
		return false, err
	}
	if err := e.authenticate(recipient); err != nil {
		return false, err
	}
	commitment, err := ComputeCommitment(recipient, amount, salt)
	if err != nil {
		return false, err
	}
	entry, err := e.state.EntrySpend(commitment, amount)
	if err != nil {
		return false, err
	}
	vault, err := e.state.VaultAddress(entry.Token)
	if err != nil {
		return false, err
	}
	if err := e.transferToken(vault, recipient, entry.Token, entry.Amount); err != nil {
		return false, err
	}
	e.emit(NewWithdrawnEvent(recipient, commitment))
	return true, nil
}

// StatusOf reports the status of the entry stored under the commitment. The
// second return value is false when no entry exists.
func (e *Engine) StatusOf(commitment [32]byte) (Status, bool, error) {
	if e == nil || e.state == nil {
		return 0, false, errNilState
	}
	entry, ok, err := e.state.EntryGet(commitment)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	return entry.Status, true, nil
}

// Get returns the full entry stored under the commitment, or false when
// absent.
func (e *Engine) Get(commitment [32]byte) (*Entry, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	entry, ok, err := e.state.EntryGet(commitment)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return entry.Clone(), true, nil
}

// VerifyProof recomputes the commitment for the supplied triple and reports
// whether a matching pending entry exists. It never mutates state and never
// errors: any non-match, including an absent or spent entry, yields false.
func (e *Engine) VerifyProof(recipient [20]byte, amount *big.Int, salt []byte) bool {
	if e == nil || e.state == nil {
		return false
	}
	if amount == nil || amount.Sign() <= 0 {
		return false
	}
	commitment, err := ComputeCommitment(recipient, amount, salt)
	if err != nil {
		return false
	}
	entry, ok, err := e.state.EntryGet(commitment)
	if err != nil || !ok {
		return false
	}
	if entry.Status != StatusPending {
		return false
	}
	return entry.Amount != nil && entry.Amount.Cmp(amount) == 0
}
