// Package mdns discovers other nodes on the local network segment via
// multicast DNS, so a LAN of nodes finds each other without any bootnode
// or central directory.
package mdns

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/thenervelab/hippius-libp2p/internal/util/logger"
	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

var log = logger.Named("discovery.mdns")

// PeerFound is delivered for every newly observed remote peer.
type PeerFound struct {
	ID    types.PeerID
	Addrs []multiaddr.Multiaddress
}

// Config tunes the local-network discoverer.
type Config struct {
	ServiceTag    string
	Domain        string
	Port          int
	QueryInterval time.Duration
	PeerTTL       time.Duration
}

// DefaultConfig matches the node's default listening setup.
func DefaultConfig() Config {
	return Config{
		ServiceTag:    "_hippius-libp2p._udp",
		Domain:        "local.",
		QueryInterval: time.Minute,
		PeerTTL:       10 * time.Minute,
	}
}

type peerEntry struct {
	addrs    []multiaddr.Multiaddress
	lastSeen time.Time
}

// Discoverer advertises this node over mDNS and watches for peers
// advertising the same service tag.
type Discoverer struct {
	cfg        Config
	localID    types.PeerID
	localAddrs []multiaddr.Multiaddress

	onPeerFound func(PeerFound)

	mu      sync.RWMutex
	peers   map[types.PeerID]peerEntry
	server  *mdns.Server
	cancel  context.CancelFunc
	running bool
}

// New builds a discoverer for the given identity and addresses. The
// addresses are put into the TXT record when Start brings up the
// advertising server.
func New(cfg Config, localID types.PeerID, localAddrs []multiaddr.Multiaddress, onPeerFound func(PeerFound)) *Discoverer {
	return &Discoverer{
		cfg:         cfg,
		localID:     localID,
		localAddrs:  localAddrs,
		onPeerFound: onPeerFound,
		peers:       make(map[types.PeerID]peerEntry),
	}
}

// UpdateLocalAddrs replaces the stored local addresses. The TXT record is
// built from them when Start runs; a server that is already advertising
// keeps its old record.
func (d *Discoverer) UpdateLocalAddrs(addrs []multiaddr.Multiaddress) {
	d.mu.Lock()
	d.localAddrs = addrs
	d.mu.Unlock()
}

// Start begins advertising and querying. It tolerates failure to start
// the advertising server (e.g. no usable LAN IP yet) and still runs the
// query side, logging a warning rather than returning an error.
func (d *Discoverer) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()

	if err := d.startServer(); err != nil {
		log.Warnw("mdns advertise unavailable, running query-only", "err", err)
	}

	go d.queryLoop(ctx)
	go d.cleanupLoop(ctx)
	return nil
}

// Stop halts advertising and querying.
func (d *Discoverer) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}
	if d.cancel != nil {
		d.cancel()
	}
	if d.server != nil {
		_ = d.server.Shutdown()
		d.server = nil
	}
	d.running = false
	return nil
}

func (d *Discoverer) startServer() error {
	ips, err := localLANIPs()
	if err != nil {
		return err
	}
	if len(ips) == 0 {
		return fmt.Errorf("mdns: no LAN addresses available to advertise")
	}

	d.mu.RLock()
	port := d.cfg.Port
	if port == 0 {
		port = inferPort(d.localAddrs)
	}
	txt := buildTXT(d.localID.String(), d.localAddrs)
	d.mu.RUnlock()
	if port == 0 {
		return fmt.Errorf("mdns: no bound port to advertise")
	}

	instance := fmt.Sprintf("hippius-%s", d.localID.ShortString())
	service, err := mdns.NewMDNSService(instance, d.cfg.ServiceTag, d.cfg.Domain, "", port, ips, txt)
	if err != nil {
		return fmt.Errorf("mdns: build service record: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("mdns: start server: %w", err)
	}

	d.mu.Lock()
	d.server = server
	d.mu.Unlock()
	log.Infow("mdns advertising", "instance", instance, "port", port, "ips", ips)
	return nil
}

func (d *Discoverer) queryLoop(ctx context.Context) {
	d.runQuery()
	ticker := time.NewTicker(d.cfg.QueryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runQuery()
		}
	}
}

func (d *Discoverer) runQuery() {
	entries := make(chan *mdns.ServiceEntry, 16)
	params := &mdns.QueryParam{
		Service:             d.cfg.ServiceTag,
		Domain:              d.cfg.Domain,
		Timeout:             5 * time.Second,
		Entries:             entries,
		WantUnicastResponse: true,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			d.handleEntry(entry)
		}
	}()

	if err := mdns.Query(params); err != nil {
		log.Debugw("mdns query failed", "err", err)
	}
	close(entries)
	<-done
}

func (d *Discoverer) handleEntry(entry *mdns.ServiceEntry) {
	if entry == nil {
		return
	}

	var remoteID types.PeerID
	var rawAddrs []string
	for _, field := range entry.InfoFields {
		switch {
		case strings.HasPrefix(field, "id="):
			id, err := types.ParsePeerID(strings.TrimPrefix(field, "id="))
			if err != nil {
				return
			}
			remoteID = id
		case strings.HasPrefix(field, "addrs="):
			rest := strings.TrimPrefix(field, "addrs=")
			if rest != "" {
				rawAddrs = append(rawAddrs, strings.Split(rest, ",")...)
			}
		}
	}

	if remoteID.IsEmpty() || remoteID == d.localID {
		return
	}

	addrs := multiaddr.ParseAll(rawAddrs)
	if len(addrs) == 0 && entry.AddrV4 != nil && isLANIP(entry.AddrV4) {
		if fallback, err := multiaddr.FromHostPort(entry.AddrV4.String(), entry.Port, "tcp"); err == nil {
			addrs = append(addrs, fallback)
		}
	}
	if len(addrs) == 0 {
		return
	}

	d.mu.Lock()
	_, known := d.peers[remoteID]
	d.peers[remoteID] = peerEntry{addrs: addrs, lastSeen: time.Now()}
	d.mu.Unlock()

	if !known && d.onPeerFound != nil {
		d.onPeerFound(PeerFound{ID: remoteID, Addrs: addrs})
	}
}

func (d *Discoverer) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PeerTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.mu.Lock()
			now := time.Now()
			for id, entry := range d.peers {
				if now.Sub(entry.lastSeen) > d.cfg.PeerTTL {
					delete(d.peers, id)
				}
			}
			d.mu.Unlock()
		}
	}
}

func buildTXT(peerID string, addrs []multiaddr.Multiaddress) []string {
	const maxLen = 255
	txt := []string{"id=" + peerID}
	if len(addrs) == 0 {
		return txt
	}
	const prefix = "addrs="
	cur := prefix
	flush := func() {
		if cur != prefix {
			txt = append(txt, cur)
		}
		cur = prefix
	}
	for _, a := range addrs {
		s := string(a)
		if len(prefix)+len(s) > maxLen {
			continue
		}
		next := s
		if cur != prefix {
			next = "," + s
		}
		if len(cur)+len(next) > maxLen {
			flush()
		}
		if cur != prefix {
			cur += ","
		}
		cur += s
	}
	flush()
	return txt
}

func inferPort(addrs []multiaddr.Multiaddress) int {
	for _, a := range addrs {
		if p := a.Port(); p != 0 {
			return p
		}
	}
	return 0
}

// virtualInterfacePrefixes lists network interface name prefixes that
// belong to VPNs, tunnels, containers, or other virtual adapters whose
// addresses are not reachable by another host on the physical LAN, so
// advertising them over mDNS would just advertise an unreachable address.
var virtualInterfacePrefixes = []string{
	"utun", "ipsec", // VPN tunnels
	"awdl", "llw", "ap", "bridge", // macOS special interfaces
	"docker", "br-", "veth", "virbr", "vboxnet", "vmnet", // containers/VMs
	"tun", "tap", "vlan", "bond", "dummy", // generic virtual adapters
	"tailscale", "wg", // overlay VPNs
}

func isVirtualInterface(name string) bool {
	name = strings.ToLower(name)
	for _, prefix := range virtualInterfacePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// nonRoutableCIDRs are address ranges that look like ordinary routable
// IPs but are, in practice, either VPN/tunnel address space or
// documentation/benchmark ranges that never correspond to a LAN peer.
var nonRoutableCIDRs = []string{
	"198.18.0.0/15",   // RFC 2544 benchmarking range, widely reused by VPN software
	"198.51.100.0/24", // RFC 5737 documentation range
	"203.0.113.0/24",  // RFC 5737 documentation range
	"100.64.0.0/10",   // RFC 6598 shared CGNAT / Tailscale address space
}

var parsedNonRoutableCIDRs = func() []*net.IPNet {
	var out []*net.IPNet
	for _, cidr := range nonRoutableCIDRs {
		if _, ipNet, err := net.ParseCIDR(cidr); err == nil {
			out = append(out, ipNet)
		}
	}
	return out
}()

func isNonRoutableIP(ip net.IP) bool {
	for _, ipNet := range parsedNonRoutableCIDRs {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// isLANIP reports whether ip is one a peer on the same physical LAN
// segment could plausibly reach: private or link-local space, but not
// loopback, unspecified, or one of the VPN/CGNAT ranges above even
// though those technically fall in private-looking blocks.
func isLANIP(ip net.IP) bool {
	if ip == nil || ip.IsLoopback() || ip.IsUnspecified() {
		return false
	}
	if isNonRoutableIP(ip) {
		return false
	}
	if ip.IsPrivate() {
		return true
	}
	return ip.IsLinkLocalUnicast()
}

// scoreLANIP ranks a LAN IP for advertisement priority: IPv4 over IPv6,
// then 192.168.x > 10.x > 172.16-31.x as the most-to-least common home
// and office ranges, then other private space, then link-local last.
// Zero means the address should not be advertised at all.
func scoreLANIP(ip net.IP) int {
	if !isLANIP(ip) {
		return 0
	}

	isIPv4 := ip.To4() != nil
	base := 100
	if isIPv4 {
		base = 1000
	}

	if ip.IsPrivate() {
		if ip4 := ip.To4(); isIPv4 && ip4 != nil {
			switch {
			case ip4[0] == 192 && ip4[1] == 168:
				return base + 300
			case ip4[0] == 10:
				return base + 200
			case ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31:
				return base + 100
			}
		}
		return base + 50
	}
	return base + 10 // link-local
}

func localLANIPs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var ips []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if isVirtualInterface(iface.Name) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if isLANIP(ipNet.IP) {
				ips = append(ips, ipNet.IP)
			}
		}
	}
	sort.SliceStable(ips, func(i, j int) bool { return scoreLANIP(ips[i]) > scoreLANIP(ips[j]) })
	return ips, nil
}
