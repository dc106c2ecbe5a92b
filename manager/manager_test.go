package manager

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/quilvr/gssync/gsobject"
	"github.com/quilvr/gssync/transceiver"
)

// fakeTransport is a channel-backed Transport used wherever a test needs
// to wait on a frame actually reaching the wire, since outbound sends
// cross an async worker queue.
type fakeTransport struct {
	mu      sync.Mutex
	sent    []EncodedMessage
	ch      chan EncodedMessage
	localID uint32
}

func newFakeTransport(localID uint32) *fakeTransport {
	return &fakeTransport{ch: make(chan EncodedMessage, 16), localID: localID}
}

func (f *fakeTransport) Send(msg EncodedMessage) error {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	f.ch <- msg
	return nil
}

func (f *fakeTransport) LocalIdentifier() uint32 { return f.localID }

func (f *fakeTransport) waitForSend(t *testing.T) EncodedMessage {
	t.Helper()
	select {
	case msg := <-f.ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a send")
		return EncodedMessage{}
	}
}

func encode(t *testing.T, obj gsobject.GSObject) []byte {
	t.Helper()
	enc := gsobject.NewEncoder(1500)
	require.NoError(t, enc.Encode(obj))
	return append([]byte(nil), enc.Bytes()...)
}

func TestDeliver_UnregisteredUpdate_FiresHook(t *testing.T) {
	transport := newFakeTransport(1)
	var got gsobject.GSObject
	done := make(chan struct{})
	m := New(transport, OnUnregisteredUpdate(func(o gsobject.GSObject) {
		got = o
		close(done)
	}))
	defer m.Stop()

	bytes := encode(t, &gsobject.Hand1{ObjectId: 5, Left: true})
	m.Deliver(EncodedMessage{Bytes: bytes, Author: 2})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("on_unregistered_update never fired")
	}
	require.NotNil(t, got)
	assert.Equal(t, gsobject.ObjectId(5), got.Id())
}

func TestDeliver_UnregisteredUnknown_ThenRegisterAndRedeliver(t *testing.T) {
	transport := newFakeTransport(1)
	var unknownSeen *gsobject.UnknownObject
	m := New(transport, OnUnregisteredUnknown(func(u *gsobject.UnknownObject) {
		unknownSeen = u
	}))
	defer m.Stop()

	obj := &gsobject.UnknownObject{RawTag: 0x20, Body: []byte{0x01, 0x02}}
	bytes := encode(t, obj)

	m.Deliver(EncodedMessage{Bytes: bytes, Author: 3})
	require.NotNil(t, unknownSeen)
	assert.Equal(t, gsobject.Tag(0x20), unknownSeen.RawTag)
	assert.Equal(t, []byte{0x01, 0x02}, unknownSeen.Body)

	tr := transceiver.New(transceiver.Config{Algorithm: transceiver.Latest})
	require.NoError(t, m.RegisterTag(0x20, tr))

	unknownSeen = nil
	m.Deliver(EncodedMessage{Bytes: bytes, Author: 3})

	rendered := tr.Render()
	require.NotNil(t, rendered)
	assert.Equal(t, gsobject.Tag(0x20), rendered.Object.Tag())
	assert.Nil(t, unknownSeen, "a registered tag must not fire the unregistered hook again")
}

func TestRegister_RejectsZeroIdentity(t *testing.T) {
	m := New(newFakeTransport(1))
	defer m.Stop()
	err := m.Register(0, 0, transceiver.New(transceiver.Config{}))
	require.ErrorIs(t, err, ErrNilIdentity)
}

func TestRegister_RejectsDuplicateIdentity(t *testing.T) {
	m := New(newFakeTransport(1))
	defer m.Stop()
	require.NoError(t, m.Register(1, 0, transceiver.New(transceiver.Config{})))
	err := m.Register(1, 0, transceiver.New(transceiver.Config{}))
	require.ErrorIs(t, err, ErrRegistrationConflict)
}

func TestUnregister_StopsParticipatingInRetransmit(t *testing.T) {
	transport := newFakeTransport(1)
	m := New(transport)
	defer m.Stop()

	tr := transceiver.New(transceiver.Config{Mode: transceiver.SendOnly})
	require.NoError(t, m.Register(7, 0, tr))
	require.NoError(t, tr.SetLocal(gsobject.AuthoredObject{
		Object: &gsobject.Hand1{ObjectId: 7},
		Author: 1,
	}))

	m.Unregister(7)
	m.RetransmitAll()

	select {
	case <-transport.ch:
		t.Fatal("unregistered transceiver must not retransmit")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSend_RoutesThroughTransportWithLocalIdentifier(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockTransport := NewMockTransport(ctrl)
	mockTransport.EXPECT().LocalIdentifier().Return(uint32(9)).AnyTimes()

	done := make(chan EncodedMessage, 1)
	mockTransport.EXPECT().Send(gomock.Any()).DoAndReturn(func(msg EncodedMessage) error {
		done <- msg
		return nil
	})

	m := New(mockTransport)
	defer m.Stop()

	m.Send(42, gsobject.AuthoredObject{
		Object: &gsobject.Hand1{ObjectId: 42, Left: true},
		Author: 9,
	})

	select {
	case msg := <-done:
		assert.Equal(t, gsobject.AuthorId(9), msg.Author)
		assert.NotEmpty(t, msg.Bytes)
	case <-time.After(time.Second):
		t.Fatal("transport.Send was never called")
	}
}

func TestRetransmitAll_EndToEnd_ExpiredRemoteTakeover(t *testing.T) {
	transport := newFakeTransport(1)
	m := New(transport)
	defer m.Stop()

	clock := &fixedClock{t: time.Now()}
	tr := transceiver.New(transceiver.Config{
		Algorithm: transceiver.Timestamp,
		Expiry:    time.Minute,
		Clock:     clock,
		OnMessageToSend: func(o gsobject.AuthoredObject) {
			m.Send(9, o)
		},
	})
	require.NoError(t, m.Register(9, 0, tr))
	require.NoError(t, tr.SetRemote(gsobject.AuthoredObject{
		Object: &gsobject.Hand1{ObjectId: 9, Time: gsobject.DateTimeMsFromTime(clock.Now())},
		Author: 2,
	}))

	m.RetransmitAll() // grace period tick, no send

	clock.advance(2 * time.Minute)
	m.RetransmitAll() // now past expiry: takeover fires OnMessageToSend

	msg := transport.waitForSend(t)
	assert.Equal(t, gsobject.AuthorId(1), msg.Author, "outbound frames are stamped with the transport's own identifier")
}

// fixedClock is a minimal manually-advanced transceiver.Clock for this
// package's end-to-end retransmit test.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
