package core

import (
	"math/big"

	"custodia/core/events"
	"custodia/core/identity"
	"custodia/native/admin"
	"custodia/native/custody"
	"custodia/native/privacy"
	"custodia/state"
	"custodia/storage"
)

// NodeConfig carries the deployment knobs consumed when wiring a node.
type NodeConfig struct {
	// PausePolicy selects which custody operations honour the admin pause
	// flag.
	PausePolicy custody.PausePolicy
	// PrivacyHistoryLimit caps per-account privacy history; zero disables
	// the cap.
	PrivacyHistoryLimit int
	// Authenticator vouches for caller identities. Nil defaults to
	// identity.AllowAll, which assumes the transport verified signatures.
	Authenticator identity.Authenticator
}

// Node owns the engine instances and the shared state manager, and is the
// facade the RPC layer calls into. Every operation is synchronous and runs to
// completion against a consistent snapshot before the next one observes its
// effects.
type Node struct {
	db      storage.Database
	manager *state.Manager
	custody *custody.Engine
	admin   *admin.Module
	privacy *privacy.Tracker
}

// NewNode wires the custody engine, admin module and privacy tracker over a
// shared state manager backed by db.
func NewNode(db storage.Database, cfg NodeConfig) *Node {
	manager := state.NewManager(db)

	auth := cfg.Authenticator
	if auth == nil {
		auth = identity.AllowAll{}
	}

	adminModule := admin.NewModule()
	adminModule.SetState(manager)
	adminModule.SetAuthenticator(auth)

	engine := custody.NewEngine()
	engine.SetState(manager)
	engine.SetAuthenticator(auth)
	engine.SetPauser(adminModule)
	engine.SetPausePolicy(cfg.PausePolicy)

	tracker := privacy.NewTracker()
	tracker.SetState(manager)
	if cfg.PrivacyHistoryLimit >= 0 {
		tracker.SetHistoryLimit(cfg.PrivacyHistoryLimit)
	}

	return &Node{
		db:      db,
		manager: manager,
		custody: engine,
		admin:   adminModule,
		privacy: tracker,
	}
}

// SetEmitter routes engine events to the supplied emitter.
func (n *Node) SetEmitter(emitter events.Emitter) {
	n.custody.SetEmitter(emitter)
	n.admin.SetEmitter(emitter)
}

// SetNowFunc overrides the engine time source, for deterministic tests.
func (n *Node) SetNowFunc(now func() int64) {
	n.custody.SetNowFunc(now)
}

// --- custody ---

// Deposit escrows amount of token from the depositor under the commitment.
func (n *Node) Deposit(depositor [20]byte, commitment [32]byte, token string, amount *big.Int) (*custody.Entry, error) {
	return n.custody.Deposit(depositor, commitment, token, amount)
}

// Withdraw releases the entry bound to the revealed (recipient, amount, salt)
// triple.
func (n *Node) Withdraw(recipient [20]byte, amount *big.Int, salt []byte) (bool, error) {
	return n.custody.Withdraw(recipient, amount, salt)
}

// CommitmentState reports the status stored under a commitment.
func (n *Node) CommitmentState(commitment [32]byte) (custody.Status, bool, error) {
	return n.custody.StatusOf(commitment)
}

// EscrowDetails returns the full entry stored under a commitment.
func (n *Node) EscrowDetails(commitment [32]byte) (*custody.Entry, bool, error) {
	return n.custody.Get(commitment)
}

// VerifyProof reports whether the triple matches a pending entry. Read-only,
// never errors.
func (n *Node) VerifyProof(recipient [20]byte, amount *big.Int, salt []byte) bool {
	return n.custody.VerifyProof(recipient, amount, salt)
}

// --- admin ---

// InitializeAdmin seeds the one-shot admin identity.
func (n *Node) InitializeAdmin(adminAddr [20]byte) error {
	return n.admin.Initialize(adminAddr)
}

// Admin returns the current admin identity, if initialized.
func (n *Node) Admin() ([20]byte, bool, error) {
	return n.admin.Admin()
}

// SetAdmin transfers the admin identity; current-admin only.
func (n *Node) SetAdmin(caller, newAdmin [20]byte) error {
	return n.admin.SetAdmin(caller, newAdmin)
}

// SetPaused flips the global pause flag; current-admin only.
func (n *Node) SetPaused(caller [20]byte, paused bool) error {
	return n.admin.SetPaused(caller, paused)
}

// IsPaused reports the global pause flag.
func (n *Node) IsPaused() (bool, error) {
	return n.admin.Paused()
}

// --- privacy ---

// EnablePrivacy records a new privacy level for the account.
func (n *Node) EnablePrivacy(account [20]byte, level uint32) (bool, error) {
	return n.privacy.Enable(account, level)
}

// PrivacyStatus returns the account's current privacy level.
func (n *Node) PrivacyStatus(account [20]byte) (uint32, bool, error) {
	return n.privacy.Status(account)
}

// PrivacyHistory returns the account's most-recent-first level history.
func (n *Node) PrivacyHistory(account [20]byte) ([]uint32, error) {
	return n.privacy.History(account)
}

// Health reports liveness for probes.
func (n *Node) Health() bool {
	return n != nil && n.db != nil
}

// --- funding ---

// Credit adds balance to an account. Intended for genesis funding and tests;
// production funding arrives through the external value-transfer service.
func (n *Node) Credit(addr [20]byte, token string, amount *big.Int) error {
	account, err := n.manager.GetAccount(addr[:])
	if err != nil {
		return err
	}
	account.SetBalance(token, new(big.Int).Add(account.Balance(token), amount))
	return n.manager.PutAccount(addr[:], account)
}

// Balance reads an account balance for a token.
func (n *Node) Balance(addr [20]byte, token string) (*big.Int, error) {
	account, err := n.manager.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	return account.Balance(token), nil
}
