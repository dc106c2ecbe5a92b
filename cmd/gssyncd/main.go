// Command gssyncd is a minimal demonstration daemon wiring the codec,
// transceiver, manager, transport, and stats packages together over a
// single UDP peer link.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quilvr/gssync/gsobject"
	"github.com/quilvr/gssync/gsstats"
	"github.com/quilvr/gssync/manager"
	"github.com/quilvr/gssync/transceiver"
	"github.com/quilvr/gssync/transport"
)

func main() {
	var (
		listenAddr     string
		peerAddr       string
		localID        uint
		peerID         uint
		dscp           int
		monitoringPort int
		configFile     string
		logLevel       string
		expiryMs       int64
		minIntervalMs  int64
		maxIntervalMs  int64
	)

	flag.StringVar(&listenAddr, "listen", ":7420", "local UDP address to listen on")
	flag.StringVar(&peerAddr, "peer", "", "remote peer's UDP address (required)")
	flag.UintVar(&localID, "local-id", 1, "author id stamped on outbound frames")
	flag.UintVar(&peerID, "peer-id", 2, "author id expected on inbound frames")
	flag.IntVar(&dscp, "dscp", 0, "DSCP for outbound packets, 0-63")
	flag.IntVar(&monitoringPort, "monitoringport", 8889, "port to serve /metrics on")
	flag.StringVar(&configFile, "config", "", "path to a dynamic config YAML file")
	flag.StringVar(&logLevel, "loglevel", "info", "log level: debug, info, warning, error")
	flag.Int64Var(&expiryMs, "expiry", 10000, "retransmit takeover expiry in ms, used when -config is not set")
	flag.Int64Var(&minIntervalMs, "min-interval", 900, "minimum retransmit interval in ms, used when -config is not set")
	flag.Int64Var(&maxIntervalMs, "max-interval", 1100, "maximum retransmit interval in ms, used when -config is not set")
	flag.Parse()

	switch logLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Fatalf("unrecognized log level: %s", logLevel)
	}

	dc := &DynamicConfig{
		ExpiryMs:      expiryMs,
		MinIntervalMs: minIntervalMs,
		MaxIntervalMs: maxIntervalMs,
	}
	if configFile != "" {
		loaded, err := ReadDynamicConfig(configFile)
		if err != nil {
			log.Fatalf("reading dynamic config: %v", err)
		}
		dc = loaded
	}

	if peerAddr == "" {
		log.Fatal("-peer is required")
	}
	if dscp < 0 || dscp > 63 {
		log.Fatalf("unsupported dscp value %d", dscp)
	}

	local, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		log.Fatalf("resolving -listen: %v", err)
	}
	peer, err := net.ResolveUDPAddr("udp", peerAddr)
	if err != nil {
		log.Fatalf("resolving -peer: %v", err)
	}

	udp, err := transport.Listen(transport.Config{
		ListenAddr:      local,
		PeerAddr:        peer,
		LocalIdentifier: uint32(localID),
		PeerIdentifier:  uint32(peerID),
		DSCP:            dscp,
	})
	if err != nil {
		log.Fatalf("starting transport: %v", err)
	}
	defer udp.Close()

	stats := gsstats.New()
	mgr := manager.New(udp,
		manager.OnUnregisteredUpdate(func(o gsobject.GSObject) {
			stats.IncUnregisteredUpdate()
			log.WithField("tag", o.Tag()).Debug("gssyncd: unregistered update")
		}),
		manager.OnUnregisteredUnknown(func(u *gsobject.UnknownObject) {
			stats.IncUnregisteredUnknown()
			log.WithField("tag", u.RawTag).Debug("gssyncd: unregistered unknown tag")
		}),
		manager.OnFrameDecoded(func(gsobject.GSObject) { stats.IncFramesDecoded() }),
		manager.OnDecodeError(func(error) { stats.IncDecodeErrors() }),
		manager.OnEncodeFull(func() { stats.IncEncodeFull() }),
		manager.OnTransportError(func(error) { stats.IncTransportErrors() }),
		manager.OnRegistrationConflict(func() { stats.IncRegistrationConflict() }),
	)

	minInterval, maxInterval := dc.RetransmitInterval()
	timed := manager.NewTimed(mgr, minInterval, maxInterval)
	defer timed.Stop()

	exporter := gsstats.NewPrometheusExporter(stats)
	go func() {
		if err := exporter.ListenAndServe(monitoringPort); err != nil {
			log.Errorf("metrics server exited: %v", err)
		}
	}()

	headID := gsobject.IdentityFromString("head")
	headTr := transceiver.New(transceiver.Config{
		Mode:      transceiver.Bidirectional,
		Algorithm: transceiver.Timestamp,
		Expiry:    dc.Expiry(),
		OnMessageToSend: func(o gsobject.AuthoredObject) {
			stats.IncFramesEncoded()
			mgr.Send(headID, o)
		},
		OnRetransmitReason: func(r transceiver.Reason) {
			stats.IncRetransmit(reasonLabel(r))
		},
		OnRenderOutcome: func(o string) { stats.IncRender(o) },
	})
	if err := mgr.Register(headID, 0, headTr); err != nil {
		log.Fatalf("registering head transceiver: %v", err)
	}

	handID := gsobject.IdentityFromString("hand")
	handTr := transceiver.New(transceiver.Config{
		Mode:      transceiver.Bidirectional,
		Algorithm: transceiver.Timestamp,
		Expiry:    dc.Expiry(),
		OnMessageToSend: func(o gsobject.AuthoredObject) {
			stats.IncFramesEncoded()
			mgr.Send(handID, o)
		},
		OnRetransmitReason: func(r transceiver.Reason) {
			stats.IncRetransmit(reasonLabel(r))
		},
		OnRenderOutcome: func(o string) { stats.IncRender(o) },
	})
	if err := mgr.Register(handID, 0, handTr); err != nil {
		log.Fatalf("registering hand transceiver: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := udp.Serve(ctx, mgr.Deliver); err != nil && ctx.Err() == nil {
			log.Errorf("transport serve exited: %v", err)
		}
	}()

	log.Infof("gssyncd listening on %s, peer %s, local-id=%d", listenAddr, peerAddr, localID)

	// Demo producer: pushes a local head pose once a second so the link
	// has something to reconcile and retransmit against; a real host
	// would call SetLocal from its own render/input loop instead.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	var i uint64
	for {
		select {
		case <-ctx.Done():
			log.Info("gssyncd shutting down")
			return
		case <-ticker.C:
			i++
			err := headTr.SetLocal(gsobject.AuthoredObject{
				Object: &gsobject.Head1{
					ObjectId: headID,
					Time:     gsobject.DateTimeMsFromTime(time.Now()),
					Loc:      gsobject.Sample6{X: gsobject.HalfFromFloat32(float32(i % 10))},
				},
				Author: gsobject.AuthorId(localID),
			})
			if err != nil {
				log.WithError(err).Debug("gssyncd: demo SetLocal rejected")
			}
		}
	}
}

// reasonLabel maps a transceiver.Reason to the snake_case metric label
// gsstats.Stats.IncRetransmit expects.
func reasonLabel(r transceiver.Reason) string {
	switch r {
	case transceiver.ReasonGracePeriod:
		return "grace_period"
	case transceiver.ReasonReceiveOnly:
		return "receive_only"
	case transceiver.ReasonSendOnlyEmit:
		return "send_only_emit"
	case transceiver.ReasonSendOnlyNoLocal:
		return "send_only_no_local"
	case transceiver.ReasonEmpty:
		return "empty"
	case transceiver.ReasonNoLocal:
		return "no_local"
	case transceiver.ReasonNoRemote:
		return "no_remote"
	case transceiver.ReasonNewerLocal:
		return "newer_local"
	case transceiver.ReasonRecentRemote:
		return "recent_remote"
	case transceiver.ReasonExpiredRemote:
		return "expired_remote"
	default:
		return fmt.Sprintf("unknown_%d", int(r))
	}
}
