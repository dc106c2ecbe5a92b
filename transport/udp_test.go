package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilvr/gssync/manager"
)

func localAddr(t *testing.T) *net.UDPAddr {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	require.NoError(t, err)
	return addr
}

func TestUDP_SendAndServe_RoundTrip(t *testing.T) {
	a, err := Listen(Config{ListenAddr: localAddr(t), LocalIdentifier: 1, PeerIdentifier: 2})
	require.NoError(t, err)
	defer a.Close()

	b, err := Listen(Config{
		ListenAddr:      localAddr(t),
		PeerAddr:        a.conn.LocalAddr().(*net.UDPAddr),
		LocalIdentifier: 2,
		PeerIdentifier:  1,
	})
	require.NoError(t, err)
	defer b.Close()

	a.peer = b.conn.LocalAddr().(*net.UDPAddr)

	received := make(chan manager.EncodedMessage, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Serve(ctx, func(msg manager.EncodedMessage) { received <- msg })

	require.NoError(t, a.Send(manager.EncodedMessage{Bytes: []byte{0x02, 0x01, 0x99}}))

	select {
	case msg := <-received:
		assert.Equal(t, []byte{0x02, 0x01, 0x99}, msg.Bytes)
		assert.EqualValues(t, 1, msg.Author, "inbound frames are stamped with the configured peer identifier")
	case <-time.After(2 * time.Second):
		t.Fatal("never received the datagram")
	}
}

func TestUDP_Send_AfterClose(t *testing.T) {
	a, err := Listen(Config{ListenAddr: localAddr(t), LocalIdentifier: 1})
	require.NoError(t, err)
	a.peer = localAddr(t)
	require.NoError(t, a.Close())

	err = a.Send(manager.EncodedMessage{Bytes: []byte{0x01}})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestUDP_LocalIdentifier(t *testing.T) {
	a, err := Listen(Config{ListenAddr: localAddr(t), LocalIdentifier: 42})
	require.NoError(t, err)
	defer a.Close()
	assert.EqualValues(t, 42, a.LocalIdentifier())
}
