// Package ids holds the ground station's closed identifier registries:
// boards, priorities, actions, device families, payload data types, and
// the per-device-family operation codes. Every registry here is a fixed,
// small, bit-width-constrained enumeration — nothing in this package
// allocates or performs I/O.
package ids

import "fmt"

// HeaderByte is the literal first byte of every encoded frame.
const HeaderByte byte = 0x05

// BoardID addresses a device on the bus. Values fit in 5 bits.
type BoardID uint8

const (
	Software  BoardID = 0x01
	Rocket    BoardID = 0x02
	LastBoard BoardID = 0x09 // sentinel terminating broadcast expansion
	Proxy     BoardID = 0x1E
	Broadcast BoardID = 0x1F
)

// AllBoards lists every defined BoardID in declaration order, the closed
// set broadcast expansion walks (spec.md §4.4): it stops at LastBoard, the
// same way original_source/communication_library/ids.py's `for source in
// BoardID: if source == LAST_BOARD: break` only ever sees the members
// declared before the sentinel.
var AllBoards = []BoardID{Software, Rocket, LastBoard, Proxy, Broadcast}

var boardNames = map[BoardID]string{
	Software:  "software",
	Rocket:    "rocket",
	LastBoard: "last_board",
	Proxy:     "proxy",
	Broadcast: "broadcast",
}

func (b BoardID) String() string {
	if name, ok := boardNames[b]; ok {
		return name
	}
	return fmt.Sprintf("board(0x%02x)", uint8(b))
}

// PriorityID selects a send-queue class. Lower numeric value dispatches
// first. Values fit in 2 bits.
type PriorityID uint8

const (
	High PriorityID = 0x00
	Low  PriorityID = 0x01
)

var priorityNames = map[PriorityID]string{
	High: "high",
	Low:  "low",
}

func (p PriorityID) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", uint8(p))
}

// ActionID names the kind of message a frame carries. Values fit in 4 bits.
type ActionID uint8

const (
	Feed      ActionID = 0x00
	Service   ActionID = 0x01
	Ack       ActionID = 0x02
	Nack      ActionID = 0x03
	Heartbeat ActionID = 0x04
	Request   ActionID = 0x05
	Response  ActionID = 0x06
	Schedule  ActionID = 0x07
	Sack      ActionID = 0x08
	Snack     ActionID = 0x09
)

var actionNames = map[ActionID]string{
	Feed:      "feed",
	Service:   "service",
	Ack:       "ack",
	Nack:      "nack",
	Heartbeat: "heartbeat",
	Request:   "request",
	Response:  "response",
	Schedule:  "schedule",
	Sack:      "sack",
	Snack:     "snack",
}

func (a ActionID) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(0x%x)", uint8(a))
}

// DeviceID tags a device family. Values fit in 6 bits.
type DeviceID uint8

const (
	Servo       DeviceID = 0x00
	Relay       DeviceID = 0x01
	Sensor      DeviceID = 0x02
	Dynamixel   DeviceID = 0x03
	Scheduler   DeviceID = 0x04
	Igniter     DeviceID = 0x05
	Flash       DeviceID = 0x06
	Piston      DeviceID = 0x07
	Recovery    DeviceID = 0x08
	Supply      DeviceID = 0x09
	Parachute   DeviceID = 0x0A
	Reset       DeviceID = 0x0B
	KeepAlive   DeviceID = 0x0C
	HeatingLamp DeviceID = 0x0D
	MultiSensor DeviceID = 0x0E
)

var deviceNames = map[DeviceID]string{
	Servo:       "servo",
	Relay:       "relay",
	Sensor:      "sensor",
	Dynamixel:   "dynamixel",
	Scheduler:   "scheduler",
	Igniter:     "igniter",
	Flash:       "flash",
	Piston:      "piston",
	Recovery:    "recovery",
	Supply:      "supply",
	Parachute:   "parachute",
	Reset:       "reset",
	KeepAlive:   "keepalive",
	HeatingLamp: "heatinglamp",
	MultiSensor: "multisensor",
}

func (d DeviceID) String() string {
	if name, ok := deviceNames[d]; ok {
		return name
	}
	return fmt.Sprintf("device(0x%02x)", uint8(d))
}

// DataTypeID selects the payload layout. Values fit in 4 bits.
type DataTypeID uint8

const (
	NoData      DataTypeID = 0x00
	Uint32      DataTypeID = 0x01
	Uint16      DataTypeID = 0x02
	Uint8       DataTypeID = 0x03
	Int32       DataTypeID = 0x04
	Int16       DataTypeID = 0x05
	Int8        DataTypeID = 0x06
	Float       DataTypeID = 0x07
	Int16x2     DataTypeID = 0x08
	Uint16Int16 DataTypeID = 0x09
)

var dataTypeNames = map[DataTypeID]string{
	NoData:      "no_data",
	Uint32:      "uint32",
	Uint16:      "uint16",
	Uint8:       "uint8",
	Int32:       "int32",
	Int16:       "int16",
	Int8:        "int8",
	Float:       "float",
	Int16x2:     "int16x2",
	Uint16Int16: "uint16int16",
}

func (d DataTypeID) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("data_type(0x%x)", uint8(d))
}

// PayloadElementCount returns the number of payload elements data type dt
// carries, per spec.md §3's payload layout table. ok is false for an
// unrecognized data type.
func PayloadElementCount(dt DataTypeID) (count int, ok bool) {
	switch dt {
	case NoData:
		return 0, true
	case Uint32, Int32, Float, Uint16, Int16, Uint8, Int8:
		return 1, true
	case Int16x2, Uint16Int16:
		return 2, true
	default:
		return 0, false
	}
}
