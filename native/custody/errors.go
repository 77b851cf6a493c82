package custody

import "errors"

var (
	// ErrInvalidAmount rejects deposits and withdrawals whose amount is zero
	// or negative.
	ErrInvalidAmount = errors.New("custody: amount must be positive")
	// ErrCommitmentNotFound is returned when no entry exists for the
	// recomputed commitment digest.
	ErrCommitmentNotFound = errors.New("custody: commitment not found")
	// ErrAlreadySpent is returned when the entry for a commitment has been
	// withdrawn before.
	ErrAlreadySpent = errors.New("custody: commitment already spent")
	// ErrInvalidCommitment is returned when the entry exists but its stored
	// amount does not match the revealed amount.
	ErrInvalidCommitment = errors.New("custody: invalid commitment")
	// ErrDuplicateCommitment rejects a deposit onto a commitment that already
	// has an entry, whether pending or spent.
	ErrDuplicateCommitment = errors.New("custody: commitment already exists")
	// ErrPaused is returned when the engine is paused and the pause policy
	// gates the attempted operation.
	ErrPaused = errors.New("custody: paused")
	// ErrInvalidToken rejects empty token identifiers.
	ErrInvalidToken = errors.New("custody: invalid token")
	// ErrUnauthenticated is returned when the caller identity cannot be
	// authenticated.
	ErrUnauthenticated = errors.New("custody: caller authentication failed")
)
