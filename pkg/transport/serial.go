package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/agh-space-systems/groundstation/pkg/protoerr"
)

// SerialSettings addresses a direct UART link to onboard avionics,
// bypassing the proxy entirely — the path spec.md §4.3 leaves open for
// "variants... added without touching the manager."
type SerialSettings struct {
	Device   string
	BaudRate int
}

func (s SerialSettings) Validate() error {
	if s.Device == "" {
		return fmt.Errorf("transport: serial device path is empty")
	}
	if s.BaudRate <= 0 {
		return fmt.Errorf("transport: baud rate must be positive, got %d", s.BaudRate)
	}
	return nil
}

// SerialTransport is a Transport over a UART, sharing the ring-buffer read
// discipline of TCPTransport so the manager sees identical read/write
// semantics regardless of the underlying link. Grounded on the teacher's
// pkg/usock/usock.go (serial.Config/OpenPort shape) generalized from
// github.com/tarm/serial to go.bug.st/serial.
type SerialTransport struct {
	port   serial.Port
	open   bool
	ring   *ringBuffer
	device string
	baud   int

	readTimeout *time.Duration
}

// NewSerialTransport constructs an unopened SerialTransport with the
// default read-ahead buffer size.
func NewSerialTransport() *SerialTransport {
	return &SerialTransport{ring: newRingBuffer(DefaultReadBufferSize)}
}

func (t *SerialTransport) Open(settings Settings, readTimeout, writeTimeout *time.Duration) error {
	s, ok := settings.(SerialSettings)
	if !ok {
		return fmt.Errorf("transport: SerialTransport requires SerialSettings, got %T", settings)
	}
	if err := s.Validate(); err != nil {
		return err
	}

	mode := &serial.Mode{
		BaudRate: s.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.Device, mode)
	if err != nil {
		return fmt.Errorf("%w: %v", protoerr.ErrTransport, err)
	}

	if err := port.SetReadTimeout(serialReadTimeout(readTimeout)); err != nil {
		_ = port.Close()
		return fmt.Errorf("%w: %v", protoerr.ErrTransport, err)
	}

	t.port = port
	t.device = s.Device
	t.baud = s.BaudRate
	t.open = true
	t.ring = newRingBuffer(DefaultReadBufferSize)
	t.readTimeout = readTimeout
	return nil
}

// serialReadTimeout maps spec.md §5's {nil, zero, positive} timeout
// convention onto go.bug.st/serial's own: serial.NoTimeout blocks
// forever, any non-negative duration is a bounded (or zero, non-blocking)
// poll.
func serialReadTimeout(timeout *time.Duration) time.Duration {
	if timeout == nil {
		return serial.NoTimeout
	}
	return *timeout
}

func (t *SerialTransport) Close() error {
	if t.port != nil {
		_ = t.port.Close()
	}
	t.open = false
	return nil
}

func (t *SerialTransport) IsOpen() bool { return t.open }

func (t *SerialTransport) Write(data []byte) error {
	if !t.open {
		return protoerr.ErrClosedTransport
	}
	if _, err := t.port.Write(data); err != nil {
		t.open = false
		return protoerr.ErrClosedTransport
	}
	return nil
}

func (t *SerialTransport) Read(n int) ([]byte, error) {
	if !t.open {
		return nil, protoerr.ErrClosedTransport
	}
	if n > t.ring.Cap() {
		return nil, fmt.Errorf("transport: read of %d bytes exceeds buffer size %d, this read will never succeed", n, t.ring.Cap())
	}
	if t.ring.Len() >= n {
		return t.ring.popFront(n), nil
	}

	available := t.ring.Cap() - t.ring.Len()
	buf := make([]byte, available)
	nr, err := t.port.Read(buf)
	if err != nil {
		t.open = false
		return nil, protoerr.ErrClosedTransport
	}
	if nr == 0 {
		// go.bug.st/serial returns (0, nil) when the read deadline elapses
		// with nothing received.
		return nil, protoerr.ErrTransportTimeout
	}

	t.ring.push(buf[:nr])
	if t.ring.Len() < n {
		return nil, protoerr.ErrTransportTimeout
	}
	return t.ring.popFront(n), nil
}

func (t *SerialTransport) Info() Info {
	return Info{Active: t.open, Kind: "SerialTransport", Address: t.device, Port: t.baud}
}

func (t *SerialTransport) ReadBufferSize() int { return t.ring.Len() }
