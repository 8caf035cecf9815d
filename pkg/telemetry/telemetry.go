// Package telemetry provides optional, non-blocking observability for the
// frame stream: a Redis-backed publication sink the out-of-scope GUI/CLI
// front-end can subscribe to instead of linking against pkg/manager
// directly, and a bounded CBOR frame recorder for ground-support replay
// and debugging (SPEC_FULL.md §4.7). Neither is required by
// CommunicationManager; both satisfy manager.FrameObserver and are wired
// in only when a caller opts in.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/agh-space-systems/groundstation/pkg/frame"
)

// FramesChannel is the Redis pub/sub channel every observed frame is
// published to, as its direction, a colon, and its decoded mono-string.
const FramesChannel = "groundstation:frames"

// RedisSink publishes every observed frame onto FramesChannel, reusing
// the teacher's pkg/redis/client.go WriteAndPublishString publish shape
// (HSet + Publish in one pipeline) rehomed from BLE state-sync duty to
// frame observability duty.
type RedisSink struct {
	client *redis.Client
	ctx    context.Context
	key    string
}

// NewRedisSink dials addr and verifies connectivity with a Ping, the way
// the teacher's redis.New does.
func NewRedisSink(addr, password string, db int) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("telemetry: connect to redis at %s: %w", addr, err)
	}
	return &RedisSink{client: client, ctx: ctx, key: FramesChannel}, nil
}

// ObserveFrame satisfies manager.FrameObserver. A publish failure is
// logged, never propagated: telemetry must never perturb the frame send/
// receive path it's observing.
func (s *RedisSink) ObserveFrame(f frame.Frame, direction string) {
	pipe := s.client.Pipeline()
	pipe.HSet(s.ctx, s.key, direction, f.MonoString())
	pipe.Publish(s.ctx, s.key, fmt.Sprintf("%s:%s", direction, f.MonoString()))
	if _, err := pipe.Exec(s.ctx); err != nil {
		log.Printf("telemetry: publish frame to redis: %v", err)
	}
}

// Close releases the underlying Redis connection.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// Record is one CBOR-encoded entry in a FrameRecorder's trail: a logical
// sequence number, direction ("send" or "receive"), and the frame's field
// values, grounded on the teacher's pkg/service/helpers.go
// cbor.Marshal/Unmarshal usage for a typed map payload — there it encodes
// BLE messages for the wire, here it encodes a debug/replay trail, since
// the wire format itself is the fixed bit-packed frame and CBOR is a
// support-tooling concern, not a wire one.
type Record struct {
	Sequence    uint64   `cbor:"seq"`
	Direction   string   `cbor:"dir"`
	Destination uint8    `cbor:"dest"`
	Priority    uint8    `cbor:"prio"`
	Action      uint8    `cbor:"action"`
	Source      uint8    `cbor:"src"`
	DeviceType  uint8    `cbor:"dev_type"`
	DeviceID    uint8    `cbor:"dev_id"`
	DataType    uint8    `cbor:"data_type"`
	Operation   uint8    `cbor:"op"`
	Payload     []uint32 `cbor:"payload"`
}

func recordFrom(seq uint64, direction string, f frame.Frame) Record {
	return Record{
		Sequence:    seq,
		Direction:   direction,
		Destination: uint8(f.Destination),
		Priority:    uint8(f.Priority),
		Action:      uint8(f.Action),
		Source:      uint8(f.Source),
		DeviceType:  uint8(f.DeviceType),
		DeviceID:    f.DeviceID,
		DataType:    uint8(f.DataType),
		Operation:   f.Operation,
		Payload:     append([]uint32(nil), f.Data()...),
	}
}

// FrameRecorder keeps a bounded in-memory trail of observed frames as
// CBOR records, optionally mirrored to a file as they arrive. Capacity 0
// means unbounded.
type FrameRecorder struct {
	mu       sync.Mutex
	capacity int
	seq      uint64
	trail    []Record
	sink     recordSink
}

// recordSink abstracts the optional file-backed append target so tests
// can construct a FrameRecorder without touching the filesystem.
type recordSink interface {
	Write(p []byte) (int, error)
}

// NewFrameRecorder constructs a recorder holding at most capacity
// records in memory (0 = unbounded). sink, if non-nil, receives each
// record's raw CBOR bytes as it's appended, for a file-backed trail.
func NewFrameRecorder(capacity int, sink recordSink) *FrameRecorder {
	return &FrameRecorder{capacity: capacity, sink: sink}
}

// ObserveFrame satisfies manager.FrameObserver.
func (r *FrameRecorder) ObserveFrame(f frame.Frame, direction string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	rec := recordFrom(r.seq, direction, f)
	r.trail = append(r.trail, rec)
	if r.capacity > 0 && len(r.trail) > r.capacity {
		r.trail = r.trail[len(r.trail)-r.capacity:]
	}

	if r.sink == nil {
		return
	}
	encoded, err := cbor.Marshal(rec)
	if err != nil {
		log.Printf("telemetry: marshal frame record: %v", err)
		return
	}
	if _, err := r.sink.Write(encoded); err != nil {
		log.Printf("telemetry: write frame record: %v", err)
	}
}

// Trail returns a snapshot of the recorder's current in-memory records,
// oldest first.
func (r *FrameRecorder) Trail() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.trail))
	copy(out, r.trail)
	return out
}
