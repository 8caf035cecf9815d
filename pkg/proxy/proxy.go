// Package proxy implements FanOutProxy: an asynchronous-style TCP relay
// mediating between a pool of "software" clients and a "hardware"
// endpoint (spec.md §4.5). It never parses frame semantics or checks
// CRC; it relays exactly 14-byte (header + body) chunks framed only by
// the 0x05 header byte, the way original_source/tcp_proxy.py's Proxy
// does over asyncio tasks — here realized as goroutines cooperating
// through channels.
package proxy

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/agh-space-systems/groundstation/pkg/ids"
)

// FrameChunkSize is the fixed byte count the proxy relays per frame:
// header (1) + body (13), per spec.md §4.5. Of an 18-byte frame from
// protocol.Encode, one chunk covers bytes 0-13 (header, fields, payload,
// reserved); the four CRC bytes that follow are read as candidate header
// bytes and dropped, except that a CRC byte equal to 0x05 starts a new
// chunk (see SPEC_FULL.md §9).
const FrameChunkSize = 1 + 13

// clientKey identifies a ProxyClient by its connection's remote address,
// standing in for original_source's `reader` object identity (Go's net.Conn
// has no stable comparable read-end handle the way an asyncio
// StreamReader does, so the remote address is the closest analogue to
// "opaque key derived from the read end of the connection").
type clientKey string

// ProxyClient holds one client connection's own outgoing FIFO queue and
// stop flag, bounded by the connection's lifetime (spec.md §3's "Proxy
// client table").
type ProxyClient struct {
	conn    net.Conn
	key     clientKey
	sendCh  chan []byte
	stop    chan struct{}
	stopped bool
	mu      sync.Mutex
}

func newProxyClient(conn net.Conn) *ProxyClient {
	return &ProxyClient{
		conn:   conn,
		key:    clientKey(conn.RemoteAddr().String()),
		sendCh: make(chan []byte, 256),
		stop:   make(chan struct{}),
	}
}

// pushDataToSend enqueues data for this client's send task. It is a
// no-op, not an error, once the client has been stopped — mirroring
// original_source's deque.append, which never rejects a push.
func (c *ProxyClient) pushDataToSend(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	select {
	case c.sendCh <- data:
	default:
		// Outgoing queue full: drop rather than block the station/fan-out
		// loop indefinitely. A slow client falls behind, never wedges the
		// proxy.
	}
}

// doStop sets the stop flag and closes the connection so a task blocked
// in a read or write unblocks at its next cooperative yield, per spec.md
// §5.
func (c *ProxyClient) doStop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.stop)
	_ = c.conn.Close()
}

// Side runs one named listener ("software" or "hardware") of a
// FanOutProxy: its own client table, self-send queue, forward queue, and
// mirror flag, wired to its peer Side as an external listener.
type Side struct {
	Name   string
	logger *log.Logger

	address string
	mirror  bool

	mu      sync.Mutex
	clients map[clientKey]*ProxyClient

	selfSend chan []byte // client-sourced frames destined for the peer
	forward  chan []byte // peer-sourced frames destined for this side's clients

	peer *Side
}

// NewSide constructs a proxy side bound to address (host:port) with
// mirroring on or off. Call RegisterExternalListener to wire two sides
// together before Serve.
func NewSide(name, address string, mirror bool) *Side {
	prefix := fmt.Sprintf("[%s] ", name)
	return &Side{
		Name:     name,
		logger:   log.New(os.Stdout, prefix, log.LstdFlags),
		address:  address,
		mirror:   mirror,
		clients:  make(map[clientKey]*ProxyClient),
		selfSend: make(chan []byte, 1024),
		forward:  make(chan []byte, 1024),
	}
}

// RegisterExternalListener wires a and b as each other's peer: data a's
// clients send arrives at b's forward queue, and vice versa,
// exactly as original_source's register_external_listener/
// handle_station_send pairing (software<->hardware).
func RegisterExternalListener(a, b *Side) {
	a.peer = b
	b.peer = a
}

func (s *Side) addClient(conn net.Conn) *ProxyClient {
	c := newProxyClient(conn)
	s.mu.Lock()
	s.clients[c.key] = c
	s.mu.Unlock()
	s.logger.Printf("added new client %s", c.key)
	return c
}

func (s *Side) removeClient(c *ProxyClient) {
	s.mu.Lock()
	_, existed := s.clients[c.key]
	delete(s.clients, c.key)
	s.mu.Unlock()
	if existed {
		c.doStop()
		s.logger.Printf("removed client %s", c.key)
	}
}

func (s *Side) clientSnapshot() []*ProxyClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ProxyClient, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out
}

// Serve listens on s.address, accepting clients indefinitely, and runs
// the station-receive/station-send tasks. It blocks until ln.Accept
// fails and returns that error; the listener stays internal to Serve and
// is not exposed to the caller.
func (s *Side) Serve() error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("proxy: %s: listen %s: %w", s.Name, s.address, err)
	}
	s.logger.Printf("listening for tcp connections on %s", s.address)

	go s.handleStationReceive()
	go s.handleStationSend()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		client := s.addClient(conn)
		go s.handleClientReceive(client)
		go s.handleClientSend(client)
	}
}

// handleClientReceive loops reading exactly FrameChunkSize bytes from
// client, dropping any byte that isn't 0x05 when a header is expected,
// and pushing the chunk into this side's self-send queue (and, if
// mirroring is on, every other client's outgoing queue). It terminates
// on connection reset, abort, or EOF.
func (s *Side) handleClientReceive(client *ProxyClient) {
	defer s.removeClient(client)

	header := make([]byte, 1)
	body := make([]byte, FrameChunkSize-1)

	for {
		select {
		case <-client.stop:
			return
		default:
		}

		if _, err := io.ReadFull(client.conn, header); err != nil {
			// Connection reset, abort, or EOF all end the client's
			// receive task the same way: there is nothing left to frame.
			return
		}
		if header[0] != ids.HeaderByte {
			s.logger.Printf("missing header from %s", client.key)
			continue
		}

		if _, err := io.ReadFull(client.conn, body); err != nil {
			return
		}

		chunk := make([]byte, FrameChunkSize)
		chunk[0] = header[0]
		copy(chunk[1:], body)

		select {
		case s.selfSend <- chunk:
		default:
			s.logger.Printf("self-send queue full, dropping frame from %s", client.key)
		}

		if s.mirror {
			for _, other := range s.clientSnapshot() {
				if other.key == client.key {
					continue
				}
				other.pushDataToSend(chunk)
			}
		}
	}
}

// handleClientSend loops draining client's outgoing queue and writing to
// its socket. Terminates on connection reset or the client's stop flag.
func (s *Side) handleClientSend(client *ProxyClient) {
	defer s.removeClient(client)

	for {
		select {
		case <-client.stop:
			return
		case data := <-client.sendCh:
			if _, err := client.conn.Write(data); err != nil {
				return
			}
		}
	}
}

// handleStationReceive drains the forward queue (peer-sourced frames)
// and fans each item out to every live client's outgoing queue.
func (s *Side) handleStationReceive() {
	for data := range s.forward {
		for _, c := range s.clientSnapshot() {
			c.pushDataToSend(data)
		}
	}
}

// handleStationSend drains the self-send queue (client-sourced frames)
// and hands each item to every registered external listener's forward
// queue.
func (s *Side) handleStationSend() {
	for data := range s.selfSend {
		if s.peer != nil {
			select {
			case s.peer.forward <- data:
			default:
				s.logger.Printf("peer forward queue full, dropping frame")
			}
		}
	}
}

