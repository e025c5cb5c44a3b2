package index

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odvcencio/tinygot/pkg/object"
)

const (
	oid1 object.Hash = "1111111111111111111111111111111111111111"
	oid2 object.Hash = "2222222222222222222222222222222222222222"
)

func tempIndex(t *testing.T) *File {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "index"))
}

func TestMissingIndexIsEmpty(t *testing.T) {
	f := tempIndex(t)
	entries, err := f.Read()
	require.NoError(t, err)
	require.Empty(t, entries)

	require.NoError(t, f.Update(func(tx *Tx) error {
		require.Equal(t, 0, tx.Len())
		return nil
	}))
}

func TestIndexPersistence(t *testing.T) {
	f := tempIndex(t)
	require.NoError(t, f.Update(func(tx *Tx) error {
		return tx.Set("a.txt", oid1)
	}))

	require.NoError(t, f.Update(func(tx *Tx) error {
		h, ok := tx.Get("a.txt")
		require.True(t, ok)
		require.Equal(t, oid1, h)
		return nil
	}))

	// A fresh File over the same path sees the same content.
	entries, err := New(f.Path()).Read()
	require.NoError(t, err)
	require.Equal(t, map[string]object.Hash{"a.txt": oid1}, entries)
}

func TestIndexFileIsJSONObject(t *testing.T) {
	f := tempIndex(t)
	require.NoError(t, f.Update(func(tx *Tx) error {
		require.NoError(t, tx.Set("dir/b.txt", oid2))
		return tx.Set("a.txt", oid1)
	}))

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, map[string]string{"a.txt": string(oid1), "dir/b.txt": string(oid2)}, decoded)
}

func TestIndexReadsForeignJSON(t *testing.T) {
	f := tempIndex(t)
	require.NoError(t, os.WriteFile(f.Path(), []byte(`{"x/y.go": "`+string(oid2)+`"}`), 0o644))

	entries, err := f.Read()
	require.NoError(t, err)
	require.Equal(t, oid2, entries["x/y.go"])
}

func TestIndexFailedScopeDoesNotPersist(t *testing.T) {
	f := tempIndex(t)
	require.NoError(t, f.Update(func(tx *Tx) error {
		return tx.Set("keep.txt", oid1)
	}))
	before, err := os.ReadFile(f.Path())
	require.NoError(t, err)

	boom := errors.New("boom")
	err = f.Update(func(tx *Tx) error {
		require.NoError(t, tx.Set("new.txt", oid2))
		tx.Delete("keep.txt")
		return boom
	})
	require.ErrorIs(t, err, boom)

	after, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	require.Equal(t, before, after)

	entries, err := f.Read()
	require.NoError(t, err)
	require.NotContains(t, entries, "new.txt")
	require.Contains(t, entries, "keep.txt")
}

func TestIndexPanicDoesNotPersist(t *testing.T) {
	f := tempIndex(t)
	require.Panics(t, func() {
		_ = f.Update(func(tx *Tx) error {
			require.NoError(t, tx.Set("a.txt", oid1))
			panic("staging blew up")
		})
	})

	_, err := os.Stat(f.Path())
	require.True(t, os.IsNotExist(err))

	// The transaction was released, so the index can be opened again.
	tx, err := f.Begin()
	require.NoError(t, err)
	tx.Discard()
}

func TestIndexCommitReplacesWholesale(t *testing.T) {
	f := tempIndex(t)
	require.NoError(t, f.Update(func(tx *Tx) error {
		require.NoError(t, tx.Set("a.txt", oid1))
		return tx.Set("b.txt", oid2)
	}))
	require.NoError(t, f.Update(func(tx *Tx) error {
		require.True(t, tx.Delete("a.txt"))
		require.False(t, tx.Delete("missing.txt"))
		return nil
	}))

	entries, err := f.Read()
	require.NoError(t, err)
	require.Equal(t, map[string]object.Hash{"b.txt": oid2}, entries)
}

func TestIndexNotReentrant(t *testing.T) {
	f := tempIndex(t)
	tx, err := f.Begin()
	require.NoError(t, err)

	_, err = f.Begin()
	require.ErrorIs(t, err, ErrIndexBusy)
	require.ErrorIs(t, f.Update(func(*Tx) error { return nil }), ErrIndexBusy)

	require.NoError(t, tx.Commit())
	require.ErrorIs(t, tx.Commit(), ErrTxDone)
	require.ErrorIs(t, tx.Set("a.txt", oid1), ErrTxDone)

	tx2, err := f.Begin()
	require.NoError(t, err)
	tx2.Discard()
	tx2.Discard()
}

func TestTxExplicitDiscard(t *testing.T) {
	f := tempIndex(t)
	tx, err := f.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Set("a.txt", oid1))
	tx.Discard()

	entries, err := f.Read()
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestTxSetValidation(t *testing.T) {
	f := tempIndex(t)
	tx, err := f.Begin()
	require.NoError(t, err)
	defer tx.Discard()

	require.ErrorIs(t, tx.Set("", oid1), ErrInvalidEntry)
	require.ErrorIs(t, tx.Set("/etc/passwd", oid1), ErrInvalidEntry)
	require.ErrorIs(t, tx.Set("a.txt", "abc"), ErrInvalidEntry)

	require.NoError(t, tx.Set("b.txt", oid2))
	require.NoError(t, tx.Set("a.txt", oid1))
	require.Equal(t, []string{"a.txt", "b.txt"}, tx.Paths())

	snapshot := tx.Entries()
	snapshot["c.txt"] = oid1
	_, ok := tx.Get("c.txt")
	require.False(t, ok)
}

func TestCorruptIndex(t *testing.T) {
	f := tempIndex(t)
	for _, body := range []string{"{not json", "null", "[]", `"a.txt"`} {
		require.NoError(t, os.WriteFile(f.Path(), []byte(body), 0o644))

		_, err := f.Begin()
		require.ErrorIs(t, err, ErrCorruptIndex, body)
		_, err = f.Read()
		require.ErrorIs(t, err, ErrCorruptIndex, body)
		err = f.Update(func(tx *Tx) error { return tx.Set("a.txt", oid1) })
		require.ErrorIs(t, err, ErrCorruptIndex, body)
	}

	// A failed Begin does not leave the index busy.
	require.NoError(t, os.WriteFile(f.Path(), nil, 0o644))
	tx, err := f.Begin()
	require.NoError(t, err)
	require.Equal(t, 0, tx.Len())
	tx.Discard()
}

func TestCommitWithoutDirectory(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "gone", "index"))
	err := f.Update(func(tx *Tx) error { return tx.Set("a.txt", oid1) })
	require.ErrorIs(t, err, object.ErrStorageUnavailable)

	_, err = f.Begin()
	require.NoError(t, err, "failed commit must release the transaction")
}
