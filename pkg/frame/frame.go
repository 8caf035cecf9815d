// Package frame defines the Frame value object exchanged between the
// ground station and onboard avionics, along with its fingerprint
// equality rule. Frame carries no behavior beyond construction,
// validation, and the handful of pure transformations spec.md names;
// encoding to and from wire bytes lives in pkg/protocol.
package frame

import (
	"fmt"

	"github.com/agh-space-systems/groundstation/pkg/ids"
)

// Bit widths of the eight header fields, in declaration order, followed by
// the payload width. The eight header widths sum to 40, the header's
// on-wire size in bits.
const (
	DestinationBits = 5
	PriorityBits    = 2
	ActionBits      = 4
	SourceBits      = 5
	DeviceTypeBits  = 6
	DeviceIDBits    = 6
	DataTypeBits    = 4
	OperationBits   = 8
	PayloadBits     = 32
)

// Frame is an immutable wire message. Construct one with New; all
// transformations (Reversed) return a new value rather than mutating.
type Frame struct {
	Destination ids.BoardID
	Priority    ids.PriorityID
	Action      ids.ActionID
	Source      ids.BoardID
	DeviceType  ids.DeviceID
	DeviceID    uint8
	DataType    ids.DataTypeID
	Operation   uint8
	Payload     [2]uint32 // interpreted per DataType; see pkg/protocol
}

// Fingerprint is the callback-registry key: the six Frame fields that
// participate in equality. Priority, DataType, and Payload are excluded,
// per spec.md §3. It is comparable and therefore a valid map key without
// any custom hashing.
type Fingerprint struct {
	Destination ids.BoardID
	Action      ids.ActionID
	Source      ids.BoardID
	DeviceType  ids.DeviceID
	DeviceID    uint8
	Operation   uint8
}

// fieldRange reports whether v fits in the given number of bits.
func fieldRange(v uint32, bits int) bool {
	if bits >= 32 {
		return true
	}
	return v < (uint32(1) << uint(bits))
}

// New constructs a validated Frame. payload holds 0, 1, or 2 elements
// depending on dataType (spec.md §3's payload layout table); a shorter
// tuple than the data type requires is zero-padded, exactly as
// original_source/communication_library/frame.py's __post_init__ does. A
// longer tuple, or a field value that doesn't fit its declared bit width,
// is an error.
func New(destination ids.BoardID, priority ids.PriorityID, action ids.ActionID,
	source ids.BoardID, deviceType ids.DeviceID, deviceID uint8,
	dataType ids.DataTypeID, operation uint8, payload ...uint32) (Frame, error) {

	if !fieldRange(uint32(destination), DestinationBits) {
		return Frame{}, fmt.Errorf("frame: destination %d exceeds %d bits", destination, DestinationBits)
	}
	if !fieldRange(uint32(priority), PriorityBits) {
		return Frame{}, fmt.Errorf("frame: priority %d exceeds %d bits", priority, PriorityBits)
	}
	if !fieldRange(uint32(action), ActionBits) {
		return Frame{}, fmt.Errorf("frame: action %d exceeds %d bits", action, ActionBits)
	}
	if !fieldRange(uint32(source), SourceBits) {
		return Frame{}, fmt.Errorf("frame: source %d exceeds %d bits", source, SourceBits)
	}
	if !fieldRange(uint32(deviceType), DeviceTypeBits) {
		return Frame{}, fmt.Errorf("frame: device_type %d exceeds %d bits", deviceType, DeviceTypeBits)
	}
	if !fieldRange(uint32(deviceID), DeviceIDBits) {
		return Frame{}, fmt.Errorf("frame: device_id %d exceeds %d bits", deviceID, DeviceIDBits)
	}
	if !fieldRange(uint32(dataType), DataTypeBits) {
		return Frame{}, fmt.Errorf("frame: data_type %d exceeds %d bits", dataType, DataTypeBits)
	}
	// operation is a full 8-bit field; any uint8 value fits.

	wantLen, ok := ids.PayloadElementCount(dataType)
	if !ok {
		return Frame{}, fmt.Errorf("frame: unknown data_type %d", dataType)
	}
	if len(payload) > wantLen {
		return Frame{}, fmt.Errorf("frame: payload has %d elements, data_type %s wants %d", len(payload), dataType, wantLen)
	}

	var p [2]uint32
	copy(p[:], payload)

	return Frame{
		Destination: destination,
		Priority:    priority,
		Action:      action,
		Source:      source,
		DeviceType:  deviceType,
		DeviceID:    deviceID,
		DataType:    dataType,
		Operation:   operation,
		Payload:     p,
	}, nil
}

// Fingerprint returns f's equality key.
func (f Frame) Fingerprint() Fingerprint {
	return Fingerprint{
		Destination: f.Destination,
		Action:      f.Action,
		Source:      f.Source,
		DeviceType:  f.DeviceType,
		DeviceID:    f.DeviceID,
		Operation:   f.Operation,
	}
}

// Reversed returns a new Frame with Source and Destination swapped; all
// other fields are preserved. Used when registering a callback for the
// response to an outgoing request.
func (f Frame) Reversed() Frame {
	f.Source, f.Destination = f.Destination, f.Source
	return f
}

// payloadLen returns how many payload elements f.DataType carries.
func (f Frame) payloadLen() int {
	n, _ := ids.PayloadElementCount(f.DataType)
	return n
}

// Data returns the frame's payload as a slice sized to its data type: 0,
// 1, or 2 elements, mirroring original_source's Frame.data property.
func (f Frame) Data() []uint32 {
	return f.Payload[:f.payloadLen()]
}

func (f Frame) String() string {
	opName, ok := ids.OperationName(f.DeviceType, f.Operation)
	if !ok {
		opName = fmt.Sprintf("op(0x%02x)", f.Operation)
	}
	return fmt.Sprintf("Frame(%s, %s, %s, %s, %s, %d, %s, %s, %v)",
		f.Destination, f.Priority, f.Action, f.Source, f.DeviceType,
		f.DeviceID, f.DataType, opName, f.Data())
}

// MonoString renders the frame as a single fixed-width line, the way
// original_source's Frame.as_mono_str does for console/log output.
func (f Frame) MonoString() string {
	opName, ok := ids.OperationName(f.DeviceType, f.Operation)
	if !ok {
		opName = fmt.Sprintf("op(0x%02x)", f.Operation)
	}
	return fmt.Sprintf("%-9s %-4s %-8s %-7s %-9s %-2d %-11s %-15s %v",
		f.Destination, f.Priority, f.Action, f.Source, f.DeviceType,
		f.DeviceID, f.DataType, opName, f.Data())
}
