package privacy

import (
	"bytes"
	"reflect"
	"testing"
)

type mockState struct {
	records map[[20]byte]*Record
}

func newMockState() *mockState {
	return &mockState{records: make(map[[20]byte]*Record)}
}

func (m *mockState) PrivacyPut(account [20]byte, record *Record) error {
	m.records[account] = record.Clone()
	return nil
}

func (m *mockState) PrivacyGet(account [20]byte) (*Record, bool, error) {
	record, ok := m.records[account]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func newTestTracker() (*Tracker, *mockState) {
	state := newMockState()
	tracker := NewTracker()
	tracker.SetState(state)
	return tracker, state
}

func TestEnableRecordsMostRecentFirst(t *testing.T) {
	tracker, _ := newTestTracker()
	account := newTestAddress(0x01)

	for _, level := range []uint32{1, 2, 3} {
		ok, err := tracker.Enable(account, level)
		if err != nil || !ok {
			t.Fatalf("enable(%d) = (%v, %v)", level, ok, err)
		}
	}

	level, ok, err := tracker.Status(account)
	if err != nil || !ok || level != 3 {
		t.Fatalf("status = (%d, %v, %v), want (3, true, nil)", level, ok, err)
	}
	history, err := tracker.History(account)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !reflect.DeepEqual(history, []uint32{3, 2, 1}) {
		t.Fatalf("history = %v, want [3 2 1]", history)
	}
}

func TestStatusAndHistoryForUnsetAccount(t *testing.T) {
	tracker, _ := newTestTracker()
	account := newTestAddress(0x02)

	if _, ok, err := tracker.Status(account); err != nil || ok {
		t.Fatalf("status for unset account = (%v, %v), want absent", ok, err)
	}
	history, err := tracker.History(account)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("history = %v, want empty", history)
	}
}

func TestLevelsAreNotValidated(t *testing.T) {
	tracker, _ := newTestTracker()
	account := newTestAddress(0x03)
	for _, level := range []uint32{0, 1, 4294967295} {
		ok, err := tracker.Enable(account, level)
		if err != nil || !ok {
			t.Fatalf("enable(%d) = (%v, %v)", level, ok, err)
		}
	}
}

func TestHistoryLimitDropsOldest(t *testing.T) {
	tracker, _ := newTestTracker()
	tracker.SetHistoryLimit(3)
	account := newTestAddress(0x04)

	for level := uint32(1); level <= 5; level++ {
		if _, err := tracker.Enable(account, level); err != nil {
			t.Fatalf("enable(%d) failed: %v", level, err)
		}
	}
	history, err := tracker.History(account)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !reflect.DeepEqual(history, []uint32{5, 4, 3}) {
		t.Fatalf("history = %v, want [5 4 3]", history)
	}
}

func TestZeroLimitIsUnbounded(t *testing.T) {
	tracker, _ := newTestTracker()
	tracker.SetHistoryLimit(0)
	account := newTestAddress(0x05)

	for level := uint32(1); level <= 300; level++ {
		if _, err := tracker.Enable(account, level); err != nil {
			t.Fatalf("enable(%d) failed: %v", level, err)
		}
	}
	history, err := tracker.History(account)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 300 {
		t.Fatalf("history length = %d, want 300", len(history))
	}
	if history[0] != 300 || history[299] != 1 {
		t.Fatalf("history order wrong: first=%d last=%d", history[0], history[299])
	}
}
