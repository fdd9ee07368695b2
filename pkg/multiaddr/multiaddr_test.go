package multiaddr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

func TestParse_RejectsEmptyAndMalformed(t *testing.T) {
	_, err := Parse("")
	require.ErrorIs(t, err, ErrEmpty)

	_, err = Parse("ip4/1.2.3.4/tcp/4001")
	require.ErrorIs(t, err, ErrNotMultiaddrFormat)

	_, err = Parse("/foo/bar")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestParse_AcceptsKnownLeadingComponents(t *testing.T) {
	ma, err := Parse("/ip4/127.0.0.1/tcp/4001")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", ma.IP().String())
	require.Equal(t, 4001, ma.Port())
}

func TestMultiaddress_IsWebSocket(t *testing.T) {
	ws := MustParse("/ip4/127.0.0.1/tcp/4001/ws")
	plain := MustParse("/ip4/127.0.0.1/tcp/4001")

	require.True(t, ws.IsWebSocket())
	require.False(t, plain.IsWebSocket())
}

func TestMultiaddress_WithAndWithoutPeerID(t *testing.T) {
	base := MustParse("/ip4/127.0.0.1/tcp/4001")
	var id types.PeerID
	id[0] = 9

	withID := base.WithPeerID(id)
	require.Equal(t, id, withID.PeerID())
	require.Equal(t, base, withID.WithoutPeerID())
}

func TestFromHostPort_BuildsValidAddress(t *testing.T) {
	ma, err := FromHostPort("10.0.0.1", 4001, "tcp")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", ma.IP().String())
	require.Equal(t, 4001, ma.Port())

	_, err = FromHostPort("", 4001, "tcp")
	require.Error(t, err)

	_, err = FromHostPort("10.0.0.1", 0, "tcp")
	require.Error(t, err)

	_, err = FromHostPort("10.0.0.1", 4001, "")
	require.ErrorIs(t, err, ErrMissingTransport)
}

func TestNetDialString_ReturnsHostPort(t *testing.T) {
	ma := MustParse("/ip4/127.0.0.1/tcp/4001")
	require.Equal(t, "127.0.0.1:4001", ma.NetDialString())
}

func TestParseAll_SkipsInvalidEntries(t *testing.T) {
	got := ParseAll([]string{"/ip4/1.2.3.4/tcp/1", "garbage", "/ip4/5.6.7.8/tcp/2"})
	require.Len(t, got, 2)
}
