package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testBackend(t *testing.T, db Database) {
	t.Helper()

	_, err := db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrKeyNotFound)

	ok, err := db.Has([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, db.Put([]byte("key"), []byte("value")))

	value, err := db.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)

	ok, err = db.Has([]byte("key"))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, db.Put([]byte("key"), []byte("updated")))
	value, err = db.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("updated"), value)
}

func TestMemDB(t *testing.T) {
	db := NewMemDB()
	defer func() {
		require.NoError(t, db.Close())
	}()
	testBackend(t, db)
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	value := []byte("original")
	require.NoError(t, db.Put([]byte("key"), value))
	value[0] = 'X'

	stored, err := db.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), stored)
}

func TestBoltDB(t *testing.T) {
	db, err := NewBoltDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()
	testBackend(t, db)
}

func TestLevelDB(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()
	testBackend(t, db)
}
