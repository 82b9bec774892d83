package badgerdb_test

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaekwang-park/taskscribe/internal/storage/badgerdb"
)

func TestOpenInMemory(t *testing.T) {
	db, err := badgerdb.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("key"), []byte("value"))
	})
	require.NoError(t, err)

	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("key"))
		require.NoError(t, err)
		return item.Value(func(val []byte) error {
			assert.Equal(t, []byte("value"), val)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db, err := badgerdb.Open(badgerdb.Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("k"), []byte("v"))
	}))
	require.NoError(t, db.Close())

	db2, err := badgerdb.Open(badgerdb.Config{Path: dir})
	require.NoError(t, err)
	defer db2.Close()

	require.NoError(t, db2.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("k"))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		assert.Equal(t, "v", string(val))
		return err
	}))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := badgerdb.Open(badgerdb.Config{})
	assert.Error(t, err)
}
