// Package multiaddr provides the canonical address representation used
// throughout hippius-libp2p: "/ip4/1.2.3.4/tcp/4001/p2p/<peerID>" style
// strings, parsed into their components.
//
// Every address used for dialing, discovery, or display is a Multiaddress.
// The "host:port" form is produced only by NetDialString, for the
// transports' net.Dial/net.Listen calls; FromHostPort turns a host and
// port that arrive separately (as in mDNS answers) into a Multiaddress.
package multiaddr

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

// Multiaddress is a parsed, immutable address value.
type Multiaddress string

var (
	// ErrEmpty is returned by Parse for an empty string.
	ErrEmpty = errors.New("multiaddr: empty address")
	// ErrNotMultiaddrFormat is returned when the string does not start with "/".
	ErrNotMultiaddrFormat = errors.New("multiaddr: must start with /")
	// ErrInvalid is returned for a malformed component sequence.
	ErrInvalid = errors.New("multiaddr: invalid format")
	// ErrMissingTransport is returned by FromHostPort when no transport is given.
	ErrMissingTransport = errors.New("multiaddr: missing transport protocol")
)

// Parse validates and normalizes a multiaddress string.
//
// Accepted leading components: ip4, ip6, dns4, dns6, p2p.
func Parse(s string) (Multiaddress, error) {
	if s == "" {
		return "", ErrEmpty
	}
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "/") {
		return "", ErrNotMultiaddrFormat
	}
	parts := strings.Split(s, "/")
	if len(parts) < 3 {
		return "", ErrInvalid
	}
	switch parts[1] {
	case "ip4", "ip6", "dns4", "dns6", "p2p":
	default:
		return "", fmt.Errorf("%w: unknown protocol %q", ErrInvalid, parts[1])
	}
	return Multiaddress(s), nil
}

// MustParse parses s, panicking on error. Only for constants and tests.
func MustParse(s string) Multiaddress {
	ma, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("multiaddr.MustParse(%q): %v", s, err))
	}
	return ma
}

// FromHostPort builds a multiaddress from a host:port pair and an explicit
// transport tag ("tcp" or "ws"): "tcp" yields /<net>/<host>/tcp/<port>,
// any other tag is appended after the port (/ws).
func FromHostPort(host string, port int, transport string) (Multiaddress, error) {
	if host == "" {
		return "", errors.New("multiaddr: empty host")
	}
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("multiaddr: invalid port %d", port)
	}
	if transport == "" {
		return "", ErrMissingTransport
	}

	network := "dns4"
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() != nil {
			network = "ip4"
		} else {
			network = "ip6"
		}
	}

	addr := fmt.Sprintf("/%s/%s/tcp/%d", network, host, port)
	if transport != "tcp" {
		addr += "/" + transport
	}
	return Multiaddress(addr), nil
}

// String returns the canonical string form.
func (m Multiaddress) String() string { return string(m) }

// IsEmpty reports whether m is the zero value.
func (m Multiaddress) IsEmpty() bool { return m == "" }

// IP returns the embedded IP address, if any.
func (m Multiaddress) IP() net.IP {
	parts := strings.Split(string(m), "/")
	for i := 1; i < len(parts)-1; i++ {
		if parts[i] == "ip4" || parts[i] == "ip6" {
			return net.ParseIP(parts[i+1])
		}
	}
	return nil
}

// Port returns the embedded TCP port, or 0 if absent.
func (m Multiaddress) Port() int {
	parts := strings.Split(string(m), "/")
	for i := 1; i < len(parts)-1; i++ {
		if parts[i] == "tcp" {
			if p, err := strconv.Atoi(parts[i+1]); err == nil {
				return p
			}
		}
	}
	return 0
}

// PeerID returns the embedded /p2p/<peerID> component, if present.
func (m Multiaddress) PeerID() types.PeerID {
	parts := strings.Split(string(m), "/")
	for i := 1; i < len(parts)-1; i++ {
		if parts[i] == "p2p" {
			if id, err := types.ParsePeerID(parts[i+1]); err == nil {
				return id
			}
		}
	}
	return types.EmptyPeerID
}

// IsWebSocket reports whether the address carries a trailing /ws component,
// selecting the websocket transport over plain TCP.
func (m Multiaddress) IsWebSocket() bool {
	return strings.HasSuffix(string(m), "/ws")
}

// NetDialString returns the "host:port" form suitable for net.Dial and
// net.Listen, or "" when m has no IP or no TCP port. An explicit
// "/tcp/0" is kept as port 0 so listeners can bind an ephemeral port.
func (m Multiaddress) NetDialString() string {
	ip := m.IP()
	port := m.Port()
	if ip == nil || (port == 0 && !strings.Contains(string(m)+"/", "/tcp/0/")) {
		return ""
	}
	if ip.To4() == nil {
		return fmt.Sprintf("[%s]:%d", ip.String(), port)
	}
	return fmt.Sprintf("%s:%d", ip.String(), port)
}

// WithPeerID appends (or replaces) the /p2p/<peerID> component.
func (m Multiaddress) WithPeerID(id types.PeerID) Multiaddress {
	if m.IsEmpty() || id.IsEmpty() {
		return m
	}
	base := m.WithoutPeerID()
	return Multiaddress(string(base) + "/p2p/" + id.String())
}

// WithoutPeerID strips a trailing /p2p/<peerID> component, if present.
func (m Multiaddress) WithoutPeerID() Multiaddress {
	s := string(m)
	idx := strings.LastIndex(s, "/p2p/")
	if idx == -1 {
		return m
	}
	return Multiaddress(s[:idx])
}

// ToStrings converts a slice of Multiaddress to plain strings.
func ToStrings(mas []Multiaddress) []string {
	out := make([]string, len(mas))
	for i, ma := range mas {
		out[i] = ma.String()
	}
	return out
}

// ParseAll parses every string, skipping ones that fail to parse.
func ParseAll(strs []string) []Multiaddress {
	out := make([]Multiaddress, 0, len(strs))
	for _, s := range strs {
		if ma, err := Parse(s); err == nil {
			out = append(out, ma)
		}
	}
	return out
}
