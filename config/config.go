// Package config defines the root configuration object for
// hippius-libp2p and the validation that runs before any component is
// constructed.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/multierr"
)

// Config is the root configuration object. Each component owns one
// sub-struct; nothing outside this package reaches into another
// package's defaults.
type Config struct {
	Identity  IdentityConfig  `json:"identity"`
	Transport TransportConfig `json:"transport"`
	Discovery DiscoveryConfig `json:"discovery"`
	PubSub    PubSubConfig    `json:"pubsub"`
	Signaling SignalingConfig `json:"signaling"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// IdentityConfig controls where the node's long-lived key pair lives.
type IdentityConfig struct {
	// KeyPath is the file holding the PEM-encoded private key. If it does
	// not exist, a fresh key is generated and written there atomically.
	KeyPath string `json:"key_path"`
}

// TransportConfig controls which transports the node listens on.
type TransportConfig struct {
	ListenAddrs      []string `json:"listen_addrs"`
	EnableWebSocket  bool     `json:"enable_websocket"`
	DialTimeout      Duration `json:"dial_timeout"`
}

// DiscoveryConfig controls mDNS and bootnode discovery.
type DiscoveryConfig struct {
	EnableMDNS    bool     `json:"enable_mdns"`
	ServiceTag    string   `json:"service_tag"`
	BootstrapPeers []string `json:"bootstrap_peers"`
}

// PubSubConfig controls the gossip mesh parameters.
type PubSubConfig struct {
	MeshD   int `json:"mesh_d"`
	MeshDlo int `json:"mesh_dlo"`
	MeshDhi int `json:"mesh_dhi"`
}

// SignalingConfig controls the WebRTC signaling hub.
type SignalingConfig struct {
	Enable       bool     `json:"enable"`
	ListenAddr   string   `json:"listen_addr"`
	LivenessTTL  Duration `json:"liveness_ttl"`
}

// MetricsConfig controls the Prometheus exposition server.
type MetricsConfig struct {
	Enable     bool   `json:"enable"`
	ListenAddr string `json:"listen_addr"`
}

// Default returns a Config populated with the defaults named in the
// specification: mesh degree 6/4/12, mDNS local discovery enabled,
// signaling on :8001 with a 60s liveness TTL, metrics on :9091.
func Default() *Config {
	return &Config{
		Identity: IdentityConfig{
			KeyPath: "peer_id.key",
		},
		Transport: TransportConfig{
			ListenAddrs:     []string{"/ip4/0.0.0.0/tcp/4001"},
			EnableWebSocket: true,
			DialTimeout:     Duration(30_000_000_000), // 30s
		},
		Discovery: DiscoveryConfig{
			EnableMDNS: true,
			ServiceTag: "_hippius-libp2p._udp",
		},
		PubSub: PubSubConfig{
			MeshD:   6,
			MeshDlo: 4,
			MeshDhi: 12,
		},
		Signaling: SignalingConfig{
			Enable:      true,
			ListenAddr:  ":8001",
			LivenessTTL: Duration(60_000_000_000), // 60s
		},
		Metrics: MetricsConfig{
			Enable:     true,
			ListenAddr: ":9091",
		},
	}
}

// Load reads a JSON config file, applying it on top of Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every sub-struct and aggregates every problem found,
// rather than stopping at the first one, so a misconfigured node reports
// everything wrong with it in a single error.
func (c *Config) Validate() error {
	var errs error

	if c.Identity.KeyPath == "" {
		errs = multierr.Append(errs, fmt.Errorf("identity.key_path must not be empty"))
	}
	if len(c.Transport.ListenAddrs) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("transport.listen_addrs must not be empty"))
	}
	if c.Discovery.EnableMDNS && c.Discovery.ServiceTag == "" {
		errs = multierr.Append(errs, fmt.Errorf("discovery.service_tag must not be empty when mdns is enabled"))
	}
	if c.PubSub.MeshDlo > c.PubSub.MeshD || c.PubSub.MeshD > c.PubSub.MeshDhi {
		errs = multierr.Append(errs, fmt.Errorf("pubsub mesh degrees must satisfy dlo <= d <= dhi, got %d <= %d <= %d",
			c.PubSub.MeshDlo, c.PubSub.MeshD, c.PubSub.MeshDhi))
	}
	if c.Signaling.Enable && c.Signaling.ListenAddr == "" {
		errs = multierr.Append(errs, fmt.Errorf("signaling.listen_addr must not be empty when signaling is enabled"))
	}
	if c.Metrics.Enable && c.Metrics.ListenAddr == "" {
		errs = multierr.Append(errs, fmt.Errorf("metrics.listen_addr must not be empty when metrics is enabled"))
	}

	return errs
}
