package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCredentialStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "credentials")

	store := NewFileCredentialStore(path, "")
	_, err := store.Get()
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.False(t, store.Persisted())

	require.NoError(t, store.Set("  sk-persisted-1234 ", true))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.True(t, store.Persisted())

	// a fresh store reads the saved key
	reloaded := NewFileCredentialStore(path, "")
	key, err := reloaded.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-persisted-1234", key)

	require.NoError(t, reloaded.Clear())
	assert.NoFileExists(t, path)
	_, err = reloaded.Get()
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestFileCredentialStoreSessionKeyKeepsSavedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	store := NewFileCredentialStore(path, "")

	require.NoError(t, store.Set("sk-saved", true))
	require.NoError(t, store.Set("sk-session", false))

	key, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-session", key)

	// the next run still finds the saved key
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-saved\n", string(data))
	key, err = NewFileCredentialStore(path, "").Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-saved", key)
}

func TestFileCredentialStoreTightensExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	store := NewFileCredentialStore(path, "")
	require.NoError(t, store.Set("sk-new", true))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileCredentialStoreFallbackAndEmptyKey(t *testing.T) {
	store := NewFileCredentialStore("", " sk-env ")
	key, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-env", key)

	assert.ErrorIs(t, store.Set("   ", false), ErrMissingCredential)
	key, err = store.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-env", key)

	require.NoError(t, store.Clear())
	_, err = store.Get()
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "********cdef", MaskKey("sk-abcdef"))
	assert.Equal(t, "***", MaskKey("abc"))
	assert.Equal(t, "", MaskKey(""))
}
