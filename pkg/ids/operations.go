package ids

// Operation codes are family-local: the 8-bit operation field of a frame
// only has meaning once paired with the frame's device_type. Each family
// below is its own closed enumeration; OperationName resolves a
// (DeviceID, operation byte) pair to a name the way spec.md §9 describes
// a tagged-variant dispatch, without reflection.

type ServoOp uint8

const (
	ServoOpen      ServoOp = 0x01
	ServoClose     ServoOp = 0x02
	ServoOpenedPos ServoOp = 0x03
	ServoClosedPos ServoOp = 0x04
	ServoPosition  ServoOp = 0x05
	ServoDisable   ServoOp = 0x06
	ServoRange     ServoOp = 0x07
)

type DynamixelOp uint8

const (
	DynamixelOpen      DynamixelOp = 0x01
	DynamixelClose     DynamixelOp = 0x02
	DynamixelOpenedPos DynamixelOp = 0x03
	DynamixelClosedPos DynamixelOp = 0x04
	DynamixelPosition  DynamixelOp = 0x05
	DynamixelDisable   DynamixelOp = 0x06
	DynamixelRange     DynamixelOp = 0x07
	DynamixelReset     DynamixelOp = 0x08
	DynamixelVelocity  DynamixelOp = 0x09
)

type RelayOp uint8

const (
	RelayOpen   RelayOp = 0x01
	RelayClose  RelayOp = 0x02
	RelayStatus RelayOp = 0x03
)

// Supply shares RelayOp's layout (OPEN, CLOSE, STATUS) in the source, so
// OperationName below resolves it through relayOpNames directly.

type SchedulerOp uint8

const (
	SchedulerClear SchedulerOp = 0x01
	SchedulerStart SchedulerOp = 0x02
	SchedulerAbort SchedulerOp = 0x03
)

type IgniterOp uint8

const (
	IgniterIgnite     IgniterOp = 0x01
	IgniterOff        IgniterOp = 0x02
	IgniterResistance IgniterOp = 0x03
	IgniterStatus     IgniterOp = 0x04
)

type FlashOp uint8

const (
	FlashErase        FlashOp = 0x01
	FlashPurge        FlashOp = 0x02
	FlashStartLogging FlashOp = 0x03
	FlashStopLogging  FlashOp = 0x04
)

type SensorOp uint8

const (
	SensorRead SensorOp = 0x01
)

type RecoveryOp uint8

const (
	RecoveryArm    RecoveryOp = 0x01
	RecoveryDisarm RecoveryOp = 0x02
)

type ParachuteOp uint8

const (
	ParachuteDrogue ParachuteOp = 0x01
	ParachuteMain   ParachuteOp = 0x02
)

type ResetOp uint8

const (
	ResetReset ResetOp = 0x01
)

type KeepAliveOp uint8

const (
	KeepAliveKeepAlive KeepAliveOp = 0x01
)

type HeatingLampOp uint8

const (
	HeatingLampOpen   HeatingLampOp = 0x01
	HeatingLampClose  HeatingLampOp = 0x02
	HeatingLampStatus HeatingLampOp = 0x03
)

var servoOpNames = map[ServoOp]string{
	ServoOpen: "open", ServoClose: "close", ServoOpenedPos: "opened_pos",
	ServoClosedPos: "closed_pos", ServoPosition: "position",
	ServoDisable: "disable", ServoRange: "range",
}

var dynamixelOpNames = map[DynamixelOp]string{
	DynamixelOpen: "open", DynamixelClose: "close", DynamixelOpenedPos: "opened_pos",
	DynamixelClosedPos: "closed_pos", DynamixelPosition: "position",
	DynamixelDisable: "disable", DynamixelRange: "range",
	DynamixelReset: "reset", DynamixelVelocity: "velocity",
}

var relayOpNames = map[RelayOp]string{
	RelayOpen: "open", RelayClose: "close", RelayStatus: "status",
}

var schedulerOpNames = map[SchedulerOp]string{
	SchedulerClear: "clear", SchedulerStart: "start", SchedulerAbort: "abort",
}

var igniterOpNames = map[IgniterOp]string{
	IgniterIgnite: "ignite", IgniterOff: "off",
	IgniterResistance: "resistance", IgniterStatus: "status",
}

var flashOpNames = map[FlashOp]string{
	FlashErase: "erase", FlashPurge: "purge",
	FlashStartLogging: "start_logging", FlashStopLogging: "stop_logging",
}

var sensorOpNames = map[SensorOp]string{
	SensorRead: "read",
}

var recoveryOpNames = map[RecoveryOp]string{
	RecoveryArm: "arm", RecoveryDisarm: "disarm",
}

var parachuteOpNames = map[ParachuteOp]string{
	ParachuteDrogue: "drogue", ParachuteMain: "main",
}

var resetOpNames = map[ResetOp]string{
	ResetReset: "reset",
}

var keepAliveOpNames = map[KeepAliveOp]string{
	KeepAliveKeepAlive: "keepalive",
}

var heatingLampOpNames = map[HeatingLampOp]string{
	HeatingLampOpen: "open", HeatingLampClose: "close", HeatingLampStatus: "status",
}

// OperationName resolves a frame's 8-bit operation field to a name given
// the frame's device family. ok is false for a device family with no
// registered operation set or an operation code unknown within it.
func OperationName(device DeviceID, op uint8) (name string, ok bool) {
	switch device {
	case Servo:
		name, ok = servoOpNames[ServoOp(op)]
	case Dynamixel:
		name, ok = dynamixelOpNames[DynamixelOp(op)]
	case Relay, Supply:
		name, ok = relayOpNames[RelayOp(op)]
	case Scheduler:
		name, ok = schedulerOpNames[SchedulerOp(op)]
	case Igniter:
		name, ok = igniterOpNames[IgniterOp(op)]
	case Flash:
		name, ok = flashOpNames[FlashOp(op)]
	case Sensor, Piston, MultiSensor:
		name, ok = sensorOpNames[SensorOp(op)]
	case Recovery:
		name, ok = recoveryOpNames[RecoveryOp(op)]
	case Parachute:
		name, ok = parachuteOpNames[ParachuteOp(op)]
	case Reset:
		name, ok = resetOpNames[ResetOp(op)]
	case KeepAlive:
		name, ok = keepAliveOpNames[KeepAliveOp(op)]
	case HeatingLamp:
		name, ok = heatingLampOpNames[HeatingLampOp(op)]
	default:
		return "", false
	}
	return name, ok
}
