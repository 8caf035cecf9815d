package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agh-space-systems/groundstation/pkg/frame"
	"github.com/agh-space-systems/groundstation/pkg/ids"
	"github.com/agh-space-systems/groundstation/pkg/protocol"
	"github.com/agh-space-systems/groundstation/pkg/protoerr"
	"github.com/agh-space-systems/groundstation/pkg/transport"
)

// fakeTransport is an in-memory transport.Transport backed by a byte
// slice, standing in for TCPTransport so manager tests exercise Send/
// Receive without a real socket. pkg/transport's own tests already cover
// the ring-buffer/socket contract against a live TCP loopback.
type fakeTransport struct {
	open    bool
	written [][]byte
	inbox   []byte
}

func (f *fakeTransport) Open(transport.Settings, *time.Duration, *time.Duration) error {
	f.open = true
	return nil
}
func (f *fakeTransport) Close() error        { f.open = false; return nil }
func (f *fakeTransport) IsOpen() bool        { return f.open }
func (f *fakeTransport) Info() transport.Info { return transport.Info{Active: f.open} }
func (f *fakeTransport) ReadBufferSize() int { return len(f.inbox) }

func (f *fakeTransport) Write(data []byte) error {
	if !f.open {
		return protoerr.ErrClosedTransport
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.written = append(f.written, cp)
	return nil
}

func (f *fakeTransport) Read(n int) ([]byte, error) {
	if !f.open {
		return nil, protoerr.ErrClosedTransport
	}
	if len(f.inbox) < n {
		return nil, protoerr.ErrTransportTimeout
	}
	out := f.inbox[:n]
	f.inbox = f.inbox[n:]
	return out, nil
}

func (f *fakeTransport) feed(data []byte) {
	f.inbox = append(f.inbox, data...)
}

func newTestManager(t *testing.T) (*CommunicationManager, *fakeTransport) {
	t.Helper()
	m := New()
	ft := &fakeTransport{}
	require.NoError(t, m.ChangeTransport(KindTCP))
	m.transport = ft
	require.NoError(t, m.Connect(transport.TCPSettings{Address: "127.0.0.1", Port: 0}, nil, nil))
	return m, ft
}

func mustFrame(t *testing.T, dest, src ids.BoardID, prio ids.PriorityID) frame.Frame {
	t.Helper()
	f, err := frame.New(dest, prio, ids.Feed, src, ids.Relay, 1, ids.NoData, uint8(ids.RelayOpen))
	require.NoError(t, err)
	return f
}

func TestPriorityOrderingDrainsHighBeforeLow(t *testing.T) {
	m, _ := newTestManager(t)

	lowA := mustFrame(t, ids.Rocket, ids.Software, ids.Low)
	highB := mustFrame(t, ids.Rocket, ids.Software, ids.High)
	lowC := mustFrame(t, ids.Rocket, ids.Software, ids.Low)
	highD := mustFrame(t, ids.Rocket, ids.Software, ids.High)

	m.Push(lowA)
	m.Push(highB)
	m.Push(lowC)
	m.Push(highD)

	var order []frame.Frame
	for i := 0; i < 4; i++ {
		f, ok, err := m.Send()
		require.NoError(t, err)
		require.True(t, ok)
		order = append(order, f)
	}

	assert.Equal(t, highB, order[0])
	assert.Equal(t, highD, order[1])
	assert.Equal(t, lowA, order[2])
	assert.Equal(t, lowC, order[3])
}

func TestSendEncodesAndWritesToTransport(t *testing.T) {
	m, ft := newTestManager(t)
	f := mustFrame(t, ids.Rocket, ids.Software, ids.High)
	m.Push(f)

	_, ok, err := m.Send()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, ft.written, 1)
	assert.Len(t, ft.written[0], protocol.FrameLen)
	assert.Equal(t, ids.HeaderByte, ft.written[0][0])
}

func TestSendWithEmptyQueueReturnsNotOK(t *testing.T) {
	m, _ := newTestManager(t)
	_, ok, err := m.Send()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReceiveMissingHeader(t *testing.T) {
	m, ft := newTestManager(t)
	ft.feed([]byte{0x00})

	_, err := m.Receive()
	assert.ErrorIs(t, err, protoerr.ErrMissingHeader)
}

func TestReceiveDispatchesToRegisteredCallback(t *testing.T) {
	m, ft := newTestManager(t)

	var got frame.Frame
	fired := 0
	registration := mustFrame(t, ids.Software, ids.Rocket, ids.Low)
	m.RegisterCallback(func(f frame.Frame) {
		fired++
		got = f
	}, registration)

	encoded, err := protocol.Encode(registration)
	require.NoError(t, err)
	ft.feed(encoded[:])

	out, err := m.Receive()
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.Equal(t, registration.Fingerprint(), got.Fingerprint())
	assert.Equal(t, registration.Fingerprint(), out.Fingerprint())
}

func TestReceiveUnregisteredCallbackStillReturnsFrame(t *testing.T) {
	m, ft := newTestManager(t)

	f := mustFrame(t, ids.Software, ids.Rocket, ids.Low)
	encoded, err := protocol.Encode(f)
	require.NoError(t, err)
	ft.feed(encoded[:])

	out, err := m.Receive()
	var unreg *protoerr.UnregisteredCallbackError
	require.ErrorAs(t, err, &unreg)
	assert.Equal(t, f.Fingerprint(), out.Fingerprint())
}

func TestBroadcastCallbackExpansionAndDispatch(t *testing.T) {
	m, ft := newTestManager(t)

	registration, err := frame.New(ids.Broadcast, ids.Low, ids.Feed, ids.Software,
		ids.Relay, 2, ids.NoData, uint8(ids.RelayOpen))
	require.NoError(t, err)

	fired := 0
	m.RegisterCallback(func(frame.Frame) { fired++ }, registration)

	// Expect exactly one key per board strictly before LastBoard, excluding
	// Broadcast: Software and Rocket.
	assert.Len(t, m.callbacks, 2)

	incoming, err := frame.New(ids.Software, ids.High, ids.Feed, ids.Rocket,
		ids.Relay, 2, ids.Uint8, uint8(ids.RelayOpen), 7)
	require.NoError(t, err)
	encoded, err := protocol.Encode(incoming)
	require.NoError(t, err)
	ft.feed(encoded[:])

	_, err = m.Receive()
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
}

func TestRegisterCallbackPanicsOnDuplicateFingerprint(t *testing.T) {
	m, _ := newTestManager(t)
	registration := mustFrame(t, ids.Software, ids.Rocket, ids.Low)

	m.RegisterCallback(func(frame.Frame) {}, registration)
	assert.Panics(t, func() {
		m.RegisterCallback(func(frame.Frame) {}, registration)
	})
}

func TestRegisterCallbackPanicsOnDuplicateBroadcastFingerprint(t *testing.T) {
	m, _ := newTestManager(t)
	registration, err := frame.New(ids.Broadcast, ids.Low, ids.Feed, ids.Software,
		ids.Relay, 2, ids.NoData, uint8(ids.RelayOpen))
	require.NoError(t, err)

	m.RegisterCallback(func(frame.Frame) {}, registration)
	assert.Panics(t, func() {
		m.RegisterCallback(func(frame.Frame) {}, registration)
	})
}

func TestUnregisterCallbackIsSilentOnMiss(t *testing.T) {
	m, _ := newTestManager(t)
	f := mustFrame(t, ids.Software, ids.Rocket, ids.Low)
	assert.NotPanics(t, func() { m.UnregisterCallback(f) })
}

func TestConnectClearsQueues(t *testing.T) {
	m, _ := newTestManager(t)
	m.Push(mustFrame(t, ids.Rocket, ids.Software, ids.Low))
	require.NoError(t, m.Connect(transport.TCPSettings{Address: "127.0.0.1", Port: 0}, nil, nil))
	_, ok := m.Pop()
	assert.False(t, ok)
}
