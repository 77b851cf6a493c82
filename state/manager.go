package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"custodia/core/types"
	"custodia/native/admin"
	"custodia/native/custody"
	"custodia/native/privacy"
	"custodia/storage"
)

const (
	entryPrefix   = "custody/entry/"
	adminKey      = "custody/admin"
	accountPrefix = "account/"
	privacyPrefix = "privacy/"
	vaultSeed     = "custodia/vault/"
)

// Manager persists engine state as JSON documents in a key-value store. A
// single mutex serialises every operation; compound transitions that must be
// atomic across a read and a write, like the withdraw check-and-flip, run as
// one Manager method under that mutex (see EntrySpend).
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func entryKey(commitment [32]byte) []byte {
	return []byte(entryPrefix + hex.EncodeToString(commitment[:]))
}

func accountKey(addr []byte) []byte {
	return []byte(accountPrefix + hex.EncodeToString(addr))
}

func privacyKey(account [20]byte) []byte {
	return []byte(privacyPrefix + hex.EncodeToString(account[:]))
}

func (m *Manager) getJSON(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: corrupt record %q: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putJSON(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, raw)
}

// --- custody engine state ---

// EntryPut validates and persists a custody entry keyed by its commitment.
func (m *Manager) EntryPut(entry *custody.Entry) error {
	sanitized, err := custody.SanitizeEntry(entry)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(entryKey(sanitized.Commitment), sanitized)
}

// EntryGet loads the custody entry stored under the commitment. Backend and
// decode failures surface as errors rather than posing as absent entries.
func (m *Manager) EntryGet(commitment [32]byte) (*custody.Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entryGet(commitment)
}

func (m *Manager) entryGet(commitment [32]byte) (*custody.Entry, bool, error) {
	var entry custody.Entry
	ok, err := m.getJSON(entryKey(commitment), &entry)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &entry, true, nil
}

// EntrySpend performs the withdraw check-and-flip as one atomic operation:
// lookup, pending check, amount check and the flip to Spent all happen under
// the manager's mutex, so at most one concurrent caller can ever spend a
// given commitment. The amount check guards against drift between the deposit
// and withdraw encodings; it is unreachable while the commitment hash binds
// the amount.
func (m *Manager) EntrySpend(commitment [32]byte, amount *big.Int) (*custody.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok, err := m.entryGet(commitment)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, custody.ErrCommitmentNotFound
	}
	if entry.Status != custody.StatusPending {
		return nil, custody.ErrAlreadySpent
	}
	if entry.Amount == nil || amount == nil || entry.Amount.Cmp(amount) != 0 {
		return nil, custody.ErrInvalidCommitment
	}
	entry.Status = custody.StatusSpent
	if err := m.putJSON(entryKey(commitment), entry); err != nil {
		return nil, err
	}
	return entry.Clone(), nil
}

// GetAccount loads the account for the address, returning an empty account
// when none exists yet.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var account types.Account
	ok, err := m.getJSON(accountKey(addr), &account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NormalizeAccount(nil), nil
	}
	return types.NormalizeAccount(&account), nil
}

// PutAccount persists the account for the address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(accountKey(addr), types.NormalizeAccount(account))
}

// VaultAddress derives the deterministic custody vault address for a token.
// The vault is an ordinary account whose key no party controls.
func (m *Manager) VaultAddress(token string) ([20]byte, error) {
	normalized, err := custody.NormalizeToken(token)
	if err != nil {
		return [20]byte{}, err
	}
	digest := ethcrypto.Keccak256([]byte(vaultSeed + normalized))
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr, nil
}

// --- admin module state ---

// AdminStatePut persists the global admin state.
func (m *Manager) AdminStatePut(state *admin.State) error {
	if state == nil {
		return fmt.Errorf("state: nil admin state")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON([]byte(adminKey), state)
}

// AdminStateGet loads the global admin state.
func (m *Manager) AdminStateGet() (*admin.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var state admin.State
	ok, err := m.getJSON([]byte(adminKey), &state)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &state, true, nil
}

// --- privacy tracker state ---

// PrivacyPut persists the privacy record for an account.
func (m *Manager) PrivacyPut(account [20]byte, record *privacy.Record) error {
	if record == nil {
		return fmt.Errorf("state: nil privacy record")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(privacyKey(account), record)
}

// PrivacyGet loads the privacy record for an account.
func (m *Manager) PrivacyGet(account [20]byte) (*privacy.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var record privacy.Record
	ok, err := m.getJSON(privacyKey(account), &record)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &record, true, nil
}
