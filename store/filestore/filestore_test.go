package filestore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/syntopia/go-syntopia-client/store"
	"github.com/syntopia/go-syntopia-client/store/filestore"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	fs, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.Save(store.KeySession, []byte(`{"hello":"world"}`)))

	value, err := fs.Load(store.KeySession)
	require.NoError(t, err)
	require.JSONEq(t, `{"hello":"world"}`, string(value))
}

func TestLoadMissingKey(t *testing.T) {
	fs, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	_, err = fs.Load("never_written")
	require.ErrorIs(t, err, store.ErrKeyNotFound)
}

func TestRemove(t *testing.T) {
	fs, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.Save(store.KeySacredMetrics, []byte(`{}`)))
	require.NoError(t, fs.Remove(store.KeySacredMetrics))

	_, err = fs.Load(store.KeySacredMetrics)
	require.ErrorIs(t, err, store.ErrKeyNotFound)

	// Removing an absent key is not an error.
	require.NoError(t, fs.Remove(store.KeySacredMetrics))
}

func TestSaveOverwrites(t *testing.T) {
	fs, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.Save(store.KeyConsciousnessLevel, []byte(`"AWAKENING"`)))
	require.NoError(t, fs.Save(store.KeyConsciousnessLevel, []byte(`"EXPANDING"`)))

	value, err := fs.Load(store.KeyConsciousnessLevel)
	require.NoError(t, err)
	require.Equal(t, `"EXPANDING"`, string(value))
}

func TestKeysCannotEscapeDataDir(t *testing.T) {
	dir := t.TempDir()
	fs, err := filestore.New(dir)
	require.NoError(t, err)

	require.NoError(t, fs.Save("../escape", []byte(`{}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ".._escape.json", entries[0].Name())

	_, err = os.Stat(filepath.Join(dir, "..", "escape.json"))
	require.True(t, os.IsNotExist(err))
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	fs, err := filestore.New(dir)
	require.NoError(t, err)

	require.NoError(t, fs.Save(store.KeySession, []byte(`{}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
