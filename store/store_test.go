package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInitializesOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := Open(path, "1.0.0")
	require.NoError(t, err)

	assert.Empty(t, s.APIKey())
	assert.Empty(t, s.KeyHint())
	assert.False(t, s.InstalledAt().IsZero())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSetAPIKeyPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := Open(path, "1.0.0")
	require.NoError(t, err)
	require.NoError(t, s.SetAPIKey("sk-test-1234567890"))

	reopened, err := Open(path, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-1234567890", reopened.APIKey())

	// InstalledAt survives the key update.
	assert.Equal(t, s.InstalledAt().Unix(), reopened.InstalledAt().Unix())
}

func TestKeyHint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := Open(path, "1.0.0")
	require.NoError(t, err)

	require.NoError(t, s.SetAPIKey("sk-test-1234567890"))
	assert.Equal(t, "sk-test-12...", s.KeyHint())

	require.NoError(t, s.SetAPIKey("short"))
	assert.Equal(t, "short", s.KeyHint())
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Open(path, "1.0.0")
	assert.Error(t, err)
}
