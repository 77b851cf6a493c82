package state

import (
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"custodia/native/admin"
	"custodia/native/custody"
	"custodia/native/privacy"
	"custodia/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func testCommitment(fill byte) [32]byte {
	var commitment [32]byte
	for i := range commitment {
		commitment[i] = fill
	}
	return commitment
}

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestEntryRoundtrip(t *testing.T) {
	manager := newTestManager(t)
	entry := &custody.Entry{
		Commitment: testCommitment(0x01),
		Token:      "TOK",
		Amount:     big.NewInt(1234),
		Status:     custody.StatusPending,
		Depositor:  testAddress(0xCC),
		CreatedAt:  42,
	}
	require.NoError(t, manager.EntryPut(entry))

	loaded, ok, err := manager.EntryGet(entry.Commitment)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry.Commitment, loaded.Commitment)
	require.Equal(t, "TOK", loaded.Token)
	require.Zero(t, loaded.Amount.Cmp(big.NewInt(1234)))
	require.Equal(t, custody.StatusPending, loaded.Status)
	require.Equal(t, entry.Depositor, loaded.Depositor)
	require.Equal(t, int64(42), loaded.CreatedAt)

	_, ok, err = manager.EntryGet(testCommitment(0x02))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEntryPutRejectsInvalidEntries(t *testing.T) {
	manager := newTestManager(t)
	require.Error(t, manager.EntryPut(nil))
	require.Error(t, manager.EntryPut(&custody.Entry{
		Commitment: testCommitment(0x01),
		Token:      "TOK",
		Amount:     big.NewInt(0),
	}))
	require.Error(t, manager.EntryPut(&custody.Entry{
		Commitment: testCommitment(0x01),
		Token:      "  ",
		Amount:     big.NewInt(10),
	}))
}

func TestEntryStatusFlipPersists(t *testing.T) {
	manager := newTestManager(t)
	entry := &custody.Entry{
		Commitment: testCommitment(0x03),
		Token:      "TOK",
		Amount:     big.NewInt(10),
		Status:     custody.StatusPending,
		Depositor:  testAddress(0x01),
		CreatedAt:  1,
	}
	require.NoError(t, manager.EntryPut(entry))
	entry.Status = custody.StatusSpent
	require.NoError(t, manager.EntryPut(entry))

	loaded, ok, err := manager.EntryGet(entry.Commitment)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, custody.StatusSpent, loaded.Status)
}

func TestEntrySpend(t *testing.T) {
	manager := newTestManager(t)
	entry := &custody.Entry{
		Commitment: testCommitment(0x04),
		Token:      "TOK",
		Amount:     big.NewInt(1000),
		Status:     custody.StatusPending,
		Depositor:  testAddress(0x01),
		CreatedAt:  1,
	}
	require.NoError(t, manager.EntryPut(entry))

	_, err := manager.EntrySpend(testCommitment(0x05), big.NewInt(1000))
	require.ErrorIs(t, err, custody.ErrCommitmentNotFound)

	_, err = manager.EntrySpend(entry.Commitment, big.NewInt(999))
	require.ErrorIs(t, err, custody.ErrInvalidCommitment)

	spent, err := manager.EntrySpend(entry.Commitment, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, custody.StatusSpent, spent.Status)

	loaded, ok, err := manager.EntryGet(entry.Commitment)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, custody.StatusSpent, loaded.Status)

	_, err = manager.EntrySpend(entry.Commitment, big.NewInt(1000))
	require.ErrorIs(t, err, custody.ErrAlreadySpent)
}

func TestEntrySpendConcurrentSingleWinner(t *testing.T) {
	manager := newTestManager(t)
	entry := &custody.Entry{
		Commitment: testCommitment(0x06),
		Token:      "TOK",
		Amount:     big.NewInt(1000),
		Status:     custody.StatusPending,
		Depositor:  testAddress(0x01),
		CreatedAt:  1,
	}
	require.NoError(t, manager.EntryPut(entry))

	const attempts = 8
	start := make(chan struct{})
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := manager.EntrySpend(entry.Commitment, big.NewInt(1000))
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, custody.ErrAlreadySpent)
	}
	require.Equal(t, 1, succeeded)
}

type failingDB struct {
	err error
}

func (d failingDB) Put([]byte, []byte) error   { return d.err }
func (d failingDB) Get([]byte) ([]byte, error) { return nil, d.err }
func (d failingDB) Has([]byte) (bool, error)   { return false, d.err }
func (d failingDB) Close() error               { return nil }

func TestEntryReadFailuresSurfaceAsErrors(t *testing.T) {
	manager := NewManager(failingDB{err: errors.New("i/o error")})

	_, _, err := manager.EntryGet(testCommitment(0x01))
	require.Error(t, err)

	// A backend failure must not read as a definitive miss.
	_, err = manager.EntrySpend(testCommitment(0x01), big.NewInt(1))
	require.Error(t, err)
	require.NotErrorIs(t, err, custody.ErrCommitmentNotFound)
}

func TestEntryGetRejectsCorruptRecords(t *testing.T) {
	db := storage.NewMemDB()
	require.NoError(t, db.Put(entryKey(testCommitment(0x01)), []byte("{not json")))

	manager := NewManager(db)
	_, _, err := manager.EntryGet(testCommitment(0x01))
	require.Error(t, err)
}

func TestAccountRoundtrip(t *testing.T) {
	manager := newTestManager(t)
	addr := testAddress(0x07)

	account, err := manager.GetAccount(addr[:])
	require.NoError(t, err)
	require.Zero(t, account.Balance("TOK").Sign())

	account.SetBalance("TOK", big.NewInt(777))
	require.NoError(t, manager.PutAccount(addr[:], account))

	loaded, err := manager.GetAccount(addr[:])
	require.NoError(t, err)
	require.Zero(t, loaded.Balance("TOK").Cmp(big.NewInt(777)))
}

func TestVaultAddressDeterministicPerToken(t *testing.T) {
	manager := newTestManager(t)

	first, err := manager.VaultAddress("TOK")
	require.NoError(t, err)
	second, err := manager.VaultAddress("TOK")
	require.NoError(t, err)
	require.Equal(t, first, second)

	other, err := manager.VaultAddress("OTHER")
	require.NoError(t, err)
	require.NotEqual(t, first, other)

	_, err = manager.VaultAddress("   ")
	require.Error(t, err)
}

func TestAdminStateRoundtrip(t *testing.T) {
	manager := newTestManager(t)

	_, ok, err := manager.AdminStateGet()
	require.NoError(t, err)
	require.False(t, ok)

	adminAddr := testAddress(0xA1)
	require.NoError(t, manager.AdminStatePut(&admin.State{Admin: &adminAddr, Paused: true}))

	loaded, ok, err := manager.AdminStateGet()
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, loaded.Admin)
	require.Equal(t, adminAddr, *loaded.Admin)
	require.True(t, loaded.Paused)

	require.Error(t, manager.AdminStatePut(nil))
}

func TestPrivacyRecordRoundtrip(t *testing.T) {
	manager := newTestManager(t)
	account := testAddress(0x09)

	_, ok, err := manager.PrivacyGet(account)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, manager.PrivacyPut(account, &privacy.Record{Level: 3, History: []uint32{3, 2, 1}}))

	loaded, ok, err := manager.PrivacyGet(account)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(3), loaded.Level)
	require.Equal(t, []uint32{3, 2, 1}, loaded.History)

	require.Error(t, manager.PrivacyPut(account, nil))
}

func TestManagerSatisfiesEngineWiring(t *testing.T) {
	manager := newTestManager(t)

	engine := custody.NewEngine()
	engine.SetState(manager)

	module := admin.NewModule()
	module.SetState(manager)

	tracker := privacy.NewTracker()
	tracker.SetState(manager)

	adminAddr := testAddress(0xA1)
	require.NoError(t, module.Initialize(adminAddr))

	depositor := testAddress(0x01)
	account, err := manager.GetAccount(depositor[:])
	require.NoError(t, err)
	account.SetBalance("TOK", big.NewInt(1000))
	require.NoError(t, manager.PutAccount(depositor[:], account))

	recipient := testAddress(0x02)
	commitment, err := custody.ComputeCommitment(recipient, big.NewInt(1000), []byte("salt123"))
	require.NoError(t, err)

	_, err = engine.Deposit(depositor, commitment, "TOK", big.NewInt(1000))
	require.NoError(t, err)

	ok, err := engine.Withdraw(recipient, big.NewInt(1000), []byte("salt123"))
	require.NoError(t, err)
	require.True(t, ok)

	recipientAcc, err := manager.GetAccount(recipient[:])
	require.NoError(t, err)
	require.Zero(t, recipientAcc.Balance("TOK").Cmp(big.NewInt(1000)))
}
