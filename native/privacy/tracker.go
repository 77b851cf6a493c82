package privacy

import "errors"

var errNilState = errors.New("privacy tracker: state not configured")

// DefaultHistoryLimit bounds per-account history growth while preserving
// recent audit context.
const DefaultHistoryLimit = 256

// Record holds the latest privacy level for an account together with the
// most-recent-first history of every level it has set.
type Record struct {
	Level   uint32   `json:"level"`
	History []uint32 `json:"history"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := &Record{Level: r.Level}
	if r.History != nil {
		clone.History = append([]uint32(nil), r.History...)
	}
	return clone
}

type trackerState interface {
	PrivacyPut(account [20]byte, record *Record) error
	PrivacyGet(account [20]byte) (*Record, bool, error)
}

// Tracker maintains per-account privacy levels. Levels carry no range
// validation; any uint32 is accepted.
type Tracker struct {
	state        trackerState
	historyLimit int
}

// NewTracker creates a tracker with the default history retention limit.
func NewTracker() *Tracker {
	return &Tracker{historyLimit: DefaultHistoryLimit}
}

// SetState configures the state backend used by the tracker.
func (t *Tracker) SetState(state trackerState) { t.state = state }

// SetHistoryLimit overrides the retention cap. Zero disables the cap and
// lets history grow without bound.
func (t *Tracker) SetHistoryLimit(limit int) {
	if limit < 0 {
		limit = 0
	}
	t.historyLimit = limit
}

// Enable unconditionally sets the account's current privacy level and
// prepends it to the history. It always reports success once state is
// reachable.
func (t *Tracker) Enable(account [20]byte, level uint32) (bool, error) {
	if t == nil || t.state == nil {
		return false, errNilState
	}
	record, ok, err := t.state.PrivacyGet(account)
	if err != nil {
		return false, err
	}
	if !ok || record == nil {
		record = &Record{}
	}
	record.Level = level
	record.History = append([]uint32{level}, record.History...)
	if t.historyLimit > 0 && len(record.History) > t.historyLimit {
		record.History = record.History[:t.historyLimit]
	}
	if err := t.state.PrivacyPut(account, record); err != nil {
		return false, err
	}
	return true, nil
}

// Status returns the account's current privacy level, or false when the
// account has never set one.
func (t *Tracker) Status(account [20]byte) (uint32, bool, error) {
	if t == nil || t.state == nil {
		return 0, false, errNilState
	}
	record, ok, err := t.state.PrivacyGet(account)
	if err != nil {
		return 0, false, err
	}
	if !ok || record == nil {
		return 0, false, nil
	}
	return record.Level, true, nil
}

// History returns the most-recent-first level history for the account. An
// account with no record yields an empty slice.
func (t *Tracker) History(account [20]byte) ([]uint32, error) {
	if t == nil || t.state == nil {
		return nil, errNilState
	}
	record, ok, err := t.state.PrivacyGet(account)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return []uint32{}, nil
	}
	return append([]uint32(nil), record.History...), nil
}
