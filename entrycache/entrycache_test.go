package entrycache

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/tz-validation/valdata"
)

func testEntry() valdata.TestEntry {
	return valdata.TestEntry{
		Transitions: []valdata.TestItem{
			{Epoch: -100, TotalOffset: -18000, Year: 2049, Month: 12, Day: 31, Hour: 18, Abbrev: valdata.Abbrev("EST"), Type: valdata.TypeBefore},
			{Epoch: -99, TotalOffset: -14400, DstOffset: 3600, Year: 2049, Month: 12, Day: 31, Hour: 19, Abbrev: valdata.Abbrev("EDT"), Type: valdata.TypeAfter},
		},
		Samples: []valdata.TestItem{
			{Epoch: 5, Year: 2050, Month: 1, Day: 1, Type: valdata.TypeSample},
		},
	}
}

func TestPutGet(t *testing.T) {
	c, err := OpenInMemory()
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get("gotime|go1.24|America/New_York")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put("gotime|go1.24|America/New_York", testEntry()))
	got, ok, err := c.Get("gotime|go1.24|America/New_York")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testEntry(), got)
	assert.Nil(t, got.Samples[0].Abbrev)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, c.Put("k", testEntry()))
	require.NoError(t, c.Close())

	c, err = Open(dir)
	require.NoError(t, err)
	defer c.Close()
	got, ok, err := c.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testEntry(), got)
}

func TestGetRejectsCorruptValue(t *testing.T) {
	c, err := OpenInMemory()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+"bad"), []byte("not zstd"))
	}))
	_, ok, err := c.Get("bad")
	require.Error(t, err)
	assert.False(t, ok)
}
