// Package manager implements CommunicationManager: the client-side
// pipeline that owns a transport and a protocol codec, maintains a
// priority send queue, and dispatches received frames to registered
// callbacks by fingerprint (spec.md §4.4). Grounded line-for-line on
// original_source/communication_library/communication_manager.py's
// control flow.
package manager

import (
	"fmt"
	"time"

	"github.com/agh-space-systems/groundstation/pkg/frame"
	"github.com/agh-space-systems/groundstation/pkg/ids"
	"github.com/agh-space-systems/groundstation/pkg/protocol"
	"github.com/agh-space-systems/groundstation/pkg/protoerr"
	"github.com/agh-space-systems/groundstation/pkg/transport"
)

// TransportKind selects which transport.Transport ChangeTransport
// instantiates.
type TransportKind int

const (
	KindTCP TransportKind = iota
	KindSerial
)

// CallbackFunc handles a frame the manager matched to a registered
// fingerprint.
type CallbackFunc func(frame.Frame)

// FrameObserver is the narrow interface pkg/telemetry's RedisSink and
// FrameRecorder satisfy; the manager depends only on this, not on Redis
// or CBOR, so the core manager carries zero cost when neither is wired.
type FrameObserver interface {
	ObserveFrame(f frame.Frame, direction string)
}

// priorityOrder is the ascending-numeric-value scan order spec.md §4.4's
// pop describes: High (0) drains before Low (1).
var priorityOrder = []ids.PriorityID{ids.High, ids.Low}

// CommunicationManager owns one transport, one protocol codec (stateless,
// so it isn't stored), one priority queue family, and one callback
// registry. It is not thread-safe by itself (spec.md §5); a caller
// interleaving Receive on one goroutine with Push/Send on another must
// serialize at the call site.
type CommunicationManager struct {
	transport transport.Transport
	queues    map[ids.PriorityID][]frame.Frame
	callbacks map[frame.Fingerprint]CallbackFunc

	// excludedBoards augments {Broadcast, LastBoard} in broadcast-callback
	// expansion (spec.md §4.4, resolved in SPEC_FULL.md §3.2): the
	// ground station's own board, or any other deployment-specific board,
	// never gets a synthesized source.
	excludedBoards map[ids.BoardID]struct{}

	observers []FrameObserver
}

// New constructs an empty manager with no transport. Call ChangeTransport
// before Connect.
func New(excludedBoards ...ids.BoardID) *CommunicationManager {
	m := &CommunicationManager{
		queues:         make(map[ids.PriorityID][]frame.Frame, len(priorityOrder)),
		callbacks:      make(map[frame.Fingerprint]CallbackFunc),
		excludedBoards: make(map[ids.BoardID]struct{}, len(excludedBoards)),
	}
	for _, p := range priorityOrder {
		m.queues[p] = nil
	}
	for _, b := range excludedBoards {
		m.excludedBoards[b] = struct{}{}
	}
	return m
}

// AddObserver registers a FrameObserver notified of every frame the
// manager sends or successfully receives. Observers never block the
// core send/receive path on an error; see pkg/telemetry.
func (m *CommunicationManager) AddObserver(o FrameObserver) {
	m.observers = append(m.observers, o)
}

func (m *CommunicationManager) notify(f frame.Frame, direction string) {
	for _, o := range m.observers {
		o.ObserveFrame(f, direction)
	}
}

// ChangeTransport closes any current transport and instantiates the
// requested kind.
func (m *CommunicationManager) ChangeTransport(kind TransportKind) error {
	if m.transport != nil && m.transport.IsOpen() {
		_ = m.transport.Close()
	}
	switch kind {
	case KindTCP:
		m.transport = transport.NewTCPTransport()
	case KindSerial:
		m.transport = transport.NewSerialTransport()
	default:
		return fmt.Errorf("%w: unknown transport kind %v", protoerr.ErrTransport, kind)
	}
	return nil
}

// Connect clears all priority queues, then opens the current transport.
func (m *CommunicationManager) Connect(settings transport.Settings, readTimeout, writeTimeout *time.Duration) error {
	for p := range m.queues {
		m.queues[p] = nil
	}
	return m.transport.Open(settings, readTimeout, writeTimeout)
}

// Disconnect closes the transport.
func (m *CommunicationManager) Disconnect() error {
	return m.transport.Close()
}

// IsConnected reports whether the current transport is open.
func (m *CommunicationManager) IsConnected() bool {
	return m.transport != nil && m.transport.IsOpen()
}

// TransportInfo reports the current transport's connection state.
func (m *CommunicationManager) TransportInfo() transport.Info {
	return m.transport.Info()
}

// RegisterCallback registers handler for frame. If frame.Destination is
// Broadcast, one fingerprint is synthesized per concrete board (spec.md
// §4.4, SPEC_FULL.md §3.2) instead of a single key. Registering a
// duplicate fingerprint is a programming error, exactly as
// communication_manager.py's `assert key not in self._callbacks` treats
// it: it panics rather than returning a recoverable error.
func (m *CommunicationManager) RegisterCallback(handler CallbackFunc, f frame.Frame) {
	if f.Destination == ids.Broadcast {
		for _, key := range m.broadcastKeys(f) {
			if _, exists := m.callbacks[key]; exists {
				panic(fmt.Sprintf("manager: callback already registered for fingerprint %+v", key))
			}
			m.callbacks[key] = handler
		}
		return
	}

	key := f.Fingerprint()
	if _, exists := m.callbacks[key]; exists {
		panic(fmt.Sprintf("manager: callback already registered for fingerprint %+v", key))
	}
	m.callbacks[key] = handler
}

// broadcastKeys synthesizes one fingerprint per concrete board for a
// Broadcast-destined registration frame, per spec.md §4.4's
// create_broadcast_callback_keys: reverse the frame (so its source is now
// Broadcast), then substitute source with each BoardID strictly before
// LastBoard and not in {Broadcast, LastBoard} or the manager's own
// excluded set.
func (m *CommunicationManager) broadcastKeys(f frame.Frame) []frame.Fingerprint {
	reversed := f.Reversed()
	keys := make([]frame.Fingerprint, 0, len(ids.AllBoards))
	for _, board := range ids.AllBoards {
		if board == ids.LastBoard {
			break
		}
		if board == ids.Broadcast {
			continue
		}
		if _, excluded := m.excludedBoards[board]; excluded {
			continue
		}
		candidate := reversed
		candidate.Source = board
		keys = append(keys, candidate.Fingerprint())
	}
	return keys
}

// UnregisterCallback removes the entry keyed by Reversed(frame), silent
// on a miss.
func (m *CommunicationManager) UnregisterCallback(f frame.Frame) {
	delete(m.callbacks, f.Reversed().Fingerprint())
}

// ClearCallbacks empties the registry.
func (m *CommunicationManager) ClearCallbacks() {
	m.callbacks = make(map[frame.Fingerprint]CallbackFunc)
}

// Push appends f to the queue indexed by its priority.
func (m *CommunicationManager) Push(f frame.Frame) {
	m.queues[f.Priority] = append(m.queues[f.Priority], f)
}

// Pop scans priority classes in ascending numeric order and returns the
// front of the first non-empty queue, or ok=false if all are empty.
func (m *CommunicationManager) Pop() (f frame.Frame, ok bool) {
	for _, p := range priorityOrder {
		q := m.queues[p]
		if len(q) > 0 {
			f = q[0]
			m.queues[p] = q[1:]
			return f, true
		}
	}
	return frame.Frame{}, false
}

// Send pops one frame, encodes and writes it to the transport, and
// returns it so the caller can observe what went out. ok is false if the
// queues were empty.
func (m *CommunicationManager) Send() (f frame.Frame, ok bool, err error) {
	f, ok = m.Pop()
	if !ok {
		return frame.Frame{}, false, nil
	}

	encoded, err := protocol.Encode(f)
	if err != nil {
		return f, true, err
	}
	if err := m.transport.Write(encoded[:]); err != nil {
		return f, true, err
	}
	m.notify(f, "send")
	return f, true, nil
}

// Receive reads exactly one frame (18 bytes: header, fields, payload,
// reserved, CRC — see SPEC_FULL.md §4.1's resolution of spec.md's §9 Open
// Question #1), decodes it, and dispatches it to a registered callback by
// fingerprint. It always returns the decoded frame, even when dispatch
// fails with protoerr.UnregisteredCallbackError, so the caller can still
// inspect it. A transport read failure at any step propagates its error
// without consuming queue state.
func (m *CommunicationManager) Receive() (frame.Frame, error) {
	header, err := m.transport.Read(1)
	if err != nil {
		return frame.Frame{}, err
	}
	if header[0] != ids.HeaderByte {
		return frame.Frame{}, protoerr.ErrMissingHeader
	}

	rest, err := m.transport.Read(protocol.FrameLen - 1)
	if err != nil {
		return frame.Frame{}, err
	}

	var wire [protocol.FrameLen]byte
	wire[0] = header[0]
	copy(wire[1:], rest)

	f, err := protocol.Decode(wire)
	if err != nil {
		return frame.Frame{}, err
	}

	m.notify(f, "receive")

	handler, found := m.callbacks[f.Fingerprint()]
	if !found {
		return f, protoerr.NewUnregisteredCallback(f)
	}
	handler(f)
	return f, nil
}

// ReadBufferSize reports how many bytes the transport's read-ahead ring
// currently holds.
func (m *CommunicationManager) ReadBufferSize() int {
	return m.transport.ReadBufferSize()
}
