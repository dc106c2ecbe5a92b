// Package transport provides a reference UDP implementation of
// manager.Transport. It is not part of the core synchronization
// protocol — any transport satisfying manager.Transport works — but a
// concrete implementation is useful on its own and exercises the same
// socket-option idiom the wider stack uses for other UDP services.
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/quilvr/gssync/gsobject"
	"github.com/quilvr/gssync/manager"
)

const maxDatagramSize = 1500

// UDP is a point-to-point UDP transport: it listens on a local address
// and sends every frame to a single configured peer. Its local
// identifier is the Config.LocalIdentifier value, taken as given.
type UDP struct {
	conn        *net.UDPConn
	peer        *net.UDPAddr
	localID     uint32
	peerID      uint32
	dscp        int
	onReceive   func(manager.EncodedMessage)

	mu     sync.Mutex
	closed bool
}

// Config configures a UDP transport.
type Config struct {
	ListenAddr *net.UDPAddr
	PeerAddr   *net.UDPAddr
	// LocalIdentifier stamps every outbound frame; must be nonzero and
	// unique among peers sharing a Manager.
	LocalIdentifier uint32
	// PeerIdentifier is stamped as the Author on every inbound frame
	// handed to Serve's callback: the wire format carries no author
	// field of its own (§6), so a point-to-point transport must know
	// its single peer's identity out of band.
	PeerIdentifier uint32
	// DSCP, if nonzero, is applied to the outbound socket via setDSCP.
	DSCP int
}

// Listen opens a UDP socket per cfg, with SO_REUSEPORT set before bind
// so multiple local processes (e.g. blue/green daemon restarts) can
// share a port during a handover.
func Listen(cfg Config) (*UDP, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp", cfg.ListenAddr.String())
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", cfg.ListenAddr, err)
	}
	conn := pc.(*net.UDPConn)

	if cfg.DSCP != 0 {
		fd, err := connFd(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("transport: getting fd for dscp: %w", err)
		}
		if err := setDSCP(fd, cfg.ListenAddr.IP, cfg.DSCP); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return &UDP{
		conn:    conn,
		peer:    cfg.PeerAddr,
		localID: cfg.LocalIdentifier,
		peerID:  cfg.PeerIdentifier,
		dscp:    cfg.DSCP,
	}, nil
}

// LocalIdentifier implements manager.Transport.
func (u *UDP) LocalIdentifier() uint32 { return u.localID }

// Send implements manager.Transport: it writes msg.Bytes to the
// configured peer. Errors are wrapped but otherwise best-effort per the
// transport contract — the caller (manager) logs and drops.
func (u *UDP) Send(msg manager.EncodedMessage) error {
	u.mu.Lock()
	closed := u.closed
	u.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if _, err := u.conn.WriteToUDP(msg.Bytes, u.peer); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// Serve reads inbound datagrams until ctx is cancelled or the socket is
// closed, decoding each into an EncodedMessage and handing it to
// onReceive (ordinarily manager.Manager.Deliver).
func (u *UDP) Serve(ctx context.Context, onReceive func(manager.EncodedMessage)) error {
	u.onReceive = onReceive
	errCh := make(chan error, 1)

	go func() {
		buf := make([]byte, maxDatagramSize)
		for {
			n, addr, err := u.conn.ReadFromUDP(buf)
			if err != nil {
				errCh <- err
				return
			}
			bytes := make([]byte, n)
			copy(bytes, buf[:n])
			log.WithField("from", addr).Debug("transport: received datagram")
			u.onReceive(manager.EncodedMessage{
				Bytes:  bytes,
				Author: gsobject.AuthorId(u.peerID),
			})
		}
	}()

	select {
	case <-ctx.Done():
		u.Close()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Close shuts down the underlying socket. Send returns ErrClosed
// afterward.
func (u *UDP) Close() error {
	u.mu.Lock()
	u.closed = true
	u.mu.Unlock()
	return u.conn.Close()
}
