package mdns

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

func TestBuildTXT_FitsWithin255BytesPerRecord(t *testing.T) {
	addrs := make([]multiaddr.Multiaddress, 0, 20)
	for i := 0; i < 20; i++ {
		addrs = append(addrs, multiaddr.MustParse("/ip4/10.0.0.1/tcp/4001"))
	}

	txt := buildTXT("somePeerID", addrs)
	require.NotEmpty(t, txt)
	require.True(t, strings.HasPrefix(txt[0], "id="))
	for _, rec := range txt {
		require.LessOrEqual(t, len(rec), 255)
	}
}

func TestBuildTXT_NoAddrsYieldsJustID(t *testing.T) {
	txt := buildTXT("somePeerID", nil)
	require.Equal(t, []string{"id=somePeerID"}, txt)
}

func TestInferPort_FindsFirstPortedAddr(t *testing.T) {
	addrs := []multiaddr.Multiaddress{
		multiaddr.MustParse("/ip4/10.0.0.1/tcp/4001"),
	}
	require.Equal(t, 4001, inferPort(addrs))
	require.Equal(t, 0, inferPort(nil))
}

func TestIsLANIP_RejectsLoopbackAndPublicAcceptsPrivateAndLinkLocal(t *testing.T) {
	require.False(t, isLANIP(net.ParseIP("127.0.0.1")))
	require.False(t, isLANIP(net.ParseIP("8.8.8.8")))
	require.True(t, isLANIP(net.ParseIP("169.254.1.1")))
	require.True(t, isLANIP(net.ParseIP("192.168.1.5")))
	require.True(t, isLANIP(net.ParseIP("10.0.0.5")))
}

func TestIsLANIP_RejectsNonRoutableVPNAndCGNATRanges(t *testing.T) {
	require.False(t, isLANIP(net.ParseIP("100.64.0.1")))  // CGNAT / Tailscale
	require.False(t, isLANIP(net.ParseIP("198.18.0.1")))  // VPN benchmarking range
	require.False(t, isLANIP(net.ParseIP("198.51.100.1"))) // documentation range
	require.False(t, isLANIP(net.ParseIP("203.0.113.1")))  // documentation range
}

func TestScoreLANIP_RanksByFamiliarityAndFamily(t *testing.T) {
	require.Equal(t, 0, scoreLANIP(net.ParseIP("8.8.8.8")))
	require.Greater(t, scoreLANIP(net.ParseIP("192.168.1.5")), scoreLANIP(net.ParseIP("10.0.0.5")))
	require.Greater(t, scoreLANIP(net.ParseIP("10.0.0.5")), scoreLANIP(net.ParseIP("172.16.0.5")))
	require.Greater(t, scoreLANIP(net.ParseIP("172.16.0.5")), scoreLANIP(net.ParseIP("169.254.1.1")))
	require.Greater(t, scoreLANIP(net.ParseIP("192.168.1.5")), scoreLANIP(net.ParseIP("fd00::1")))
}

func TestIsVirtualInterface_MatchesKnownPrefixes(t *testing.T) {
	require.True(t, isVirtualInterface("utun3"))
	require.True(t, isVirtualInterface("docker0"))
	require.True(t, isVirtualInterface("wg0"))
	require.False(t, isVirtualInterface("eth0"))
	require.False(t, isVirtualInterface("en0"))
}

func TestDiscoverer_UpdateLocalAddrsDoesNotPanic(t *testing.T) {
	d := New(DefaultConfig(), types.PeerID{1}, nil, nil)
	require.NotPanics(t, func() {
		d.UpdateLocalAddrs([]multiaddr.Multiaddress{multiaddr.MustParse("/ip4/10.0.0.1/tcp/4001")})
	})
}
