package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelDBBatchPersists(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewLevelDB(dir)
	require.NoError(t, err)
	require.NoError(t, db1.Put([]byte("stale"), []byte("x")))
	require.NoError(t, db1.WriteBatch([]Write{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("stale")},
	}))
	db1.Close()

	db2, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	got, err := db2.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), got)

	_, err = db2.Get([]byte("stale"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	value := []byte("abc")
	require.NoError(t, db.Put([]byte("k"), value))
	value[0] = 'z'

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), got)

	require.NoError(t, db.Delete([]byte("k")))
	_, err = db.Get([]byte("k"))
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 0, db.Len())
}
