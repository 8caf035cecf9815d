package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"time"

	"github.com/agh-space-systems/groundstation/pkg/protoerr"
)

var ipv4Pattern = regexp.MustCompile(`^((25[0-5]|(2[0-4]|1\d|[1-9]|)\d)\.?\b){4}$`)

// TCPSettings is the TcpSettings of original_source's tcp_transport.py:
// a dotted-quad IPv4 address and a port in [0, 65535].
type TCPSettings struct {
	Address string
	Port    int
}

func (s TCPSettings) Validate() error {
	if !ipv4Pattern.MatchString(s.Address) {
		return fmt.Errorf("transport: address %q is not a valid IPv4 address", s.Address)
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("transport: port %d is not between 0 and 65535", s.Port)
	}
	return nil
}

// TCPTransport is a stream-socket Transport with a bounded read-ahead
// ring buffer, grounded on
// original_source/communication_library/tcp_transport.py's TcpTransport.
type TCPTransport struct {
	conn    net.Conn
	open    bool
	ring    *ringBuffer
	address string
	port    int

	readTimeout  *time.Duration
	writeTimeout *time.Duration
}

// NewTCPTransport constructs an unopened TCPTransport with the default
// read-ahead buffer size.
func NewTCPTransport() *TCPTransport {
	return &TCPTransport{ring: newRingBuffer(DefaultReadBufferSize)}
}

func (t *TCPTransport) Open(settings Settings, readTimeout, writeTimeout *time.Duration) error {
	s, ok := settings.(TCPSettings)
	if !ok {
		return fmt.Errorf("transport: TCPTransport requires TCPSettings, got %T", settings)
	}
	if err := s.Validate(); err != nil {
		return err
	}

	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", s.Address, s.Port))
	if err != nil {
		return fmt.Errorf("%w: %v", protoerr.ErrTransport, err)
	}

	t.conn = conn
	t.open = true
	t.address = s.Address
	t.port = s.Port
	t.ring = newRingBuffer(DefaultReadBufferSize)
	t.readTimeout = readTimeout
	t.writeTimeout = writeTimeout
	return nil
}

func (t *TCPTransport) Close() error {
	if t.conn != nil {
		_ = t.conn.Close()
	}
	t.open = false
	return nil
}

func (t *TCPTransport) IsOpen() bool { return t.open }

func (t *TCPTransport) Write(data []byte) error {
	if !t.open {
		return protoerr.ErrClosedTransport
	}
	if err := t.conn.SetWriteDeadline(deadline(t.writeTimeout)); err != nil {
		return fmt.Errorf("%w: %v", protoerr.ErrTransport, err)
	}
	if _, err := t.conn.Write(data); err != nil {
		t.open = false
		return protoerr.ErrClosedTransport
	}
	return nil
}

func (t *TCPTransport) Read(n int) ([]byte, error) {
	if !t.open {
		return nil, protoerr.ErrClosedTransport
	}
	if n > t.ring.Cap() {
		return nil, fmt.Errorf("transport: read of %d bytes exceeds buffer size %d, this read will never succeed", n, t.ring.Cap())
	}
	if t.ring.Len() >= n {
		return t.ring.popFront(n), nil
	}

	if err := t.conn.SetReadDeadline(deadline(t.readTimeout)); err != nil {
		return nil, fmt.Errorf("%w: %v", protoerr.ErrTransport, err)
	}

	available := t.ring.Cap() - t.ring.Len()
	buf := make([]byte, available)
	nr, err := t.conn.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			t.open = false
			return nil, protoerr.ErrClosedTransport
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, protoerr.ErrTransportTimeout
		}
		if isConnReset(err) {
			t.open = false
			return nil, protoerr.ErrClosedTransport
		}
		return nil, fmt.Errorf("%w: %v", protoerr.ErrTransport, err)
	}
	if nr == 0 {
		t.open = false
		return nil, protoerr.ErrClosedTransport
	}

	t.ring.push(buf[:nr])
	if t.ring.Len() < n {
		return nil, protoerr.ErrTransportTimeout
	}
	return t.ring.popFront(n), nil
}

func (t *TCPTransport) Info() Info {
	return Info{Active: t.open, Kind: "TCPTransport", Address: t.address, Port: t.port}
}

func (t *TCPTransport) ReadBufferSize() int { return t.ring.Len() }
