package admin

import (
	"encoding/hex"
	"strconv"

	"custodia/core/types"
)

const (
	EventTypeAdminChanged = "admin.changed"
	EventTypePauseChanged = "admin.pause_changed"
)

// NewAdminChangedEvent returns the canonical event payload emitted when the
// admin identity is transferred, carrying both the old and new identities.
func NewAdminChangedEvent(old, next [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeAdminChanged,
		Attributes: map[string]string{
			"oldAdmin": hex.EncodeToString(old[:]),
			"newAdmin": hex.EncodeToString(next[:]),
		},
	}
}

// NewPauseChangedEvent returns the canonical event payload emitted on every
// authorized SetPaused call, whether or not the flag actually flipped.
func NewPauseChangedEvent(caller [20]byte, paused bool) *types.Event {
	return &types.Event{
		Type: EventTypePauseChanged,
		Attributes: map[string]string{
			"caller": hex.EncodeToString(caller[:]),
			"paused": strconv.FormatBool(paused),
		},
	}
}
