package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_DerivesNonEmptyPeerID(t *testing.T) {
	id, err := New()
	require.NoError(t, err)
	require.False(t, id.ID().IsEmpty())
}

func TestSignVerify_RoundTrips(t *testing.T) {
	id, err := New()
	require.NoError(t, err)

	msg := []byte("gossip payload")
	sig := id.Sign(msg)
	require.True(t, Verify(id.PublicKey(), msg, sig))
	require.False(t, Verify(id.PublicKey(), []byte("tampered"), sig))
}

func TestLoad_GeneratesAndPersistsOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "peer_id.key")

	first, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)

	second, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, first.ID(), second.ID())
}

func TestLoad_CorruptFileIsNeverOverwritten(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "peer_id.key")
	require.NoError(t, os.WriteFile(path, []byte("not pem data"), 0600))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = Load(path)
	require.ErrorIs(t, err, ErrIdentityCorrupt)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}
