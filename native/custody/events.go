package custody

import (
	"encoding/hex"
	"strconv"

	"custodia/core/types"
)

const (
	EventTypeDeposited = "custody.deposited"
	EventTypeWithdrawn = "custody.withdrawn"
)

// NewDepositedEvent returns the canonical event payload for a newly escrowed
// deposit. The recipient is deliberately absent: only the commitment is
// public at deposit time.
func NewDepositedEvent(e *Entry) *types.Event {
	attrs := make(map[string]string)
	if e == nil {
		return &types.Event{Type: EventTypeDeposited, Attributes: attrs}
	}
	sanitized, err := SanitizeEntry(e)
	if err != nil {
		return &types.Event{Type: EventTypeDeposited, Attributes: attrs}
	}
	attrs["commitment"] = hex.EncodeToString(sanitized.Commitment[:])
	attrs["token"] = sanitized.Token
	attrs["amount"] = sanitized.Amount.String()
	attrs["depositor"] = hex.EncodeToString(sanitized.Depositor[:])
	attrs["createdAt"] = strconv.FormatInt(sanitized.CreatedAt, 10)
	return &types.Event{Type: EventTypeDeposited, Attributes: attrs}
}

// NewWithdrawnEvent returns the canonical event payload emitted after a
// successful withdrawal, carrying the recipient and the spent commitment for
// external indexers.
func NewWithdrawnEvent(recipient [20]byte, commitment [32]byte) *types.Event {
	return &types.Event{
		Type: EventTypeWithdrawn,
		Attributes: map[string]string{
			"to":         hex.EncodeToString(recipient[:]),
			"commitment": hex.EncodeToString(commitment[:]),
		},
	}
}
