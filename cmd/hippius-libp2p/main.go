// Command hippius-libp2p runs in one of four modes: "all" (a node with
// transport, discovery and pubsub, plus the signaling relay), "node" and
// "bootnode" (the same node without the signaling relay; the two modes
// start identical components), or "signaling" (a standalone relay).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"

	"github.com/thenervelab/hippius-libp2p/config"
	"github.com/thenervelab/hippius-libp2p/internal/core/controller"
	"github.com/thenervelab/hippius-libp2p/internal/core/discovery/bootstrap"
	"github.com/thenervelab/hippius-libp2p/internal/core/discovery/mdns"
	"github.com/thenervelab/hippius-libp2p/internal/core/identity"
	"github.com/thenervelab/hippius-libp2p/internal/core/metrics"
	"github.com/thenervelab/hippius-libp2p/internal/core/peerstore"
	"github.com/thenervelab/hippius-libp2p/internal/core/transport"
	"github.com/thenervelab/hippius-libp2p/internal/core/transport/tcp"
	"github.com/thenervelab/hippius-libp2p/internal/core/transport/websocket"
	"github.com/thenervelab/hippius-libp2p/internal/protocol/pubsub"
	"github.com/thenervelab/hippius-libp2p/internal/signaling"
	"github.com/thenervelab/hippius-libp2p/internal/util/logger"
	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
)

var log = logger.Named("cmd")

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		mode            = flag.String("mode", "all", "run mode: all, bootnode, node, or signaling")
		configPath      = flag.String("config", "", "path to a JSON config file (defaults are used if omitted)")
		webPort         = flag.Int("web-port", 9091, "metrics HTTP listen port")
		signalingPort   = flag.Int("signaling-port", 8001, "signaling relay listen port")
		bootnodePort    = flag.Int("bootnode-port", 4001, "libp2p transport listen port")
		bootnodeAddress = flag.String("bootnode-address", "", "bootnode multiaddress to join through, e.g. /ip4/1.2.3.4/tcp/4001/p2p/<id>")
	)
	flag.Parse()

	switch *mode {
	case "all", "bootnode", "node", "signaling":
	default:
		fmt.Fprintf(os.Stderr, "hippius-libp2p: unknown -mode %q (want all, bootnode, node, or signaling)\n", *mode)
		return exitUsage
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hippius-libp2p: %v\n", err)
			return exitFailure
		}
		cfg = loaded
	}
	cfg.Metrics.ListenAddr = fmt.Sprintf(":%d", *webPort)
	cfg.Signaling.ListenAddr = fmt.Sprintf(":%d", *signalingPort)
	cfg.Transport.ListenAddrs = []string{fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", *bootnodePort)}
	if *bootnodeAddress != "" {
		cfg.Discovery.BootstrapPeers = []string{*bootnodeAddress}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "hippius-libp2p: invalid configuration: %v\n", err)
		return exitUsage
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runMode(ctx, *mode, cfg); err != nil {
		log.Errorw("exiting on error", "err", err)
		return exitFailure
	}
	return exitOK
}

func runMode(ctx context.Context, mode string, cfg *config.Config) error {
	m := metrics.New()

	if cfg.Metrics.Enable {
		metricsSrv := metrics.NewServer(m, cfg.Metrics.ListenAddr)
		go func() {
			if err := metricsSrv.Start(ctx); err != nil {
				log.Errorw("metrics server stopped", "err", err)
			}
		}()
	}

	var signalingSrv *signaling.Server
	if (mode == "all" || mode == "signaling") && cfg.Signaling.Enable {
		signalingSrv = signaling.NewServer(cfg.Signaling.ListenAddr, m)
		go func() {
			if err := signalingSrv.Run(ctx); err != nil {
				log.Errorw("signaling server stopped", "err", err)
			}
		}()
		log.Infow("signaling relay listening", "addr", cfg.Signaling.ListenAddr)
	}

	if mode == "signaling" {
		<-ctx.Done()
		return nil
	}

	return runNode(ctx, mode, cfg, m)
}

func runNode(ctx context.Context, mode string, cfg *config.Config, m *metrics.Metrics) error {
	id, err := identity.Load(cfg.Identity.KeyPath)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	log.Infow("node identity ready", "peer_id", id.ID().String())

	dialOpts := transport.DefaultDialOptions()
	dialOpts.Timeout = cfg.Transport.DialTimeout.Dur()

	composite := transport.NewComposite()
	composite.Add(tcp.New(dialOpts))
	if cfg.Transport.EnableWebSocket {
		composite.Add(websocket.New(dialOpts))
	}

	listenAddrs := make([]multiaddr.Multiaddress, 0, len(cfg.Transport.ListenAddrs))
	for _, s := range cfg.Transport.ListenAddrs {
		addr, err := multiaddr.Parse(s)
		if err != nil {
			return fmt.Errorf("transport.listen_addrs: %w", err)
		}
		listenAddrs = append(listenAddrs, addr)
	}

	ctrl := controller.New(controller.Config{
		PubSub: pubsub.Config{
			D:               cfg.PubSub.MeshD,
			Dlo:             cfg.PubSub.MeshDlo,
			Dhi:             cfg.PubSub.MeshDhi,
			MaxPayloadBytes: 1 << 20,
			QueueSize:       256,
		},
		ListenAddrs: listenAddrs,
	}, id, composite, m, clock.New())

	if err := ctrl.ListenAndServe(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	for _, addr := range listenAddrs {
		log.Infow("listening", "addr", addr.WithPeerID(id.ID()))
	}

	if cfg.Discovery.EnableMDNS {
		disc := mdns.New(mdnsConfig(cfg), id.ID(), listenAddrs, func(found mdns.PeerFound) {
			ctrl.OnPeerDiscovered(found.ID, found.Addrs, peerstore.SourceMDNS)
		})
		if err := disc.Start(ctx); err != nil {
			log.Warnw("mdns discovery failed to start", "err", err)
		} else {
			defer disc.Stop()
		}
	}

	if len(cfg.Discovery.BootstrapPeers) > 0 {
		peers := make([]bootstrap.Peer, 0, len(cfg.Discovery.BootstrapPeers))
		for _, s := range cfg.Discovery.BootstrapPeers {
			addr, err := multiaddr.Parse(s)
			if err != nil {
				log.Warnw("skipping malformed bootnode address", "addr", s, "err", err)
				continue
			}
			peers = append(peers, bootstrap.Peer{ID: addr.PeerID(), Addrs: []multiaddr.Multiaddress{addr}})
		}
		b := bootstrap.New(ctrl, peers)
		b.Start(ctx)
		defer b.Stop()
	}

	log.Infow("node running", "mode", mode)
	ctrl.Run(ctx)
	return nil
}

func mdnsConfig(cfg *config.Config) mdns.Config {
	c := mdns.DefaultConfig()
	if cfg.Discovery.ServiceTag != "" {
		c.ServiceTag = cfg.Discovery.ServiceTag
	}
	return c
}
