package custody

import (
	"fmt"
	"math/big"
	"strings"
)

// Status represents the lifecycle of a custody entry. The machine is
// monotonic: Pending transitions to Spent exactly once and never back.
type Status uint8

const (
	StatusPending Status = iota
	StatusSpent
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSpent:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSpent:
		return "spent"
	default:
		return "unknown"
	}
}

// Entry captures a single escrowed deposit keyed by its commitment digest.
// Amount and depositor are immutable after creation; only the status flips.
// Entries are never deleted, a spent entry remains as an audit record.
type Entry struct {
	Commitment [32]byte `json:"commitment"`
	Token      string   `json:"token"`
	Amount     *big.Int `json:"amount"`
	Status     Status   `json:"status"`
	Depositor  [20]byte `json:"depositor"`
	CreatedAt  int64    `json:"createdAt"`
}

// Clone returns a deep copy of the entry so callers can safely mutate the
// copy without affecting the stored instance.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Amount != nil {
		clone.Amount = new(big.Int).Set(e.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// NormalizeToken validates the opaque token identifier, returning the trimmed
// form. Tokens are treated as opaque handles to the transfer collaborator;
// the only requirement is that they are non-empty.
func NormalizeToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", ErrInvalidToken
	}
	return trimmed, nil
}

// SanitizeEntry validates and normalises the supplied entry, returning a
// cloned instance. The function does not mutate the original value.
func SanitizeEntry(e *Entry) (*Entry, error) {
	if e == nil {
		return nil, fmt.Errorf("custody: nil entry")
	}
	clone := e.Clone()
	token, err := NormalizeToken(clone.Token)
	if err != nil {
		return nil, err
	}
	clone.Token = token
	if clone.Amount == nil || clone.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("custody: invalid entry status: %d", clone.Status)
	}
	return clone, nil
}
