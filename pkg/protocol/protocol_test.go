package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agh-space-systems/groundstation/pkg/frame"
	"github.com/agh-space-systems/groundstation/pkg/ids"
	"github.com/agh-space-systems/groundstation/pkg/protoerr"
)

func u32(v int32) uint32 { return uint32(v) }
func u16(v int16) uint16 { return uint16(v) }
func u8(v int8) uint8    { return uint8(v) }

func canonicalServoFrame(t *testing.T) frame.Frame {
	t.Helper()
	f, err := frame.New(ids.Rocket, ids.Low, ids.Service, ids.Software,
		ids.Servo, 1, ids.Int16, uint8(ids.ServoPosition), 0)
	require.NoError(t, err)
	return f
}

func TestEncodeCanonicalServoCommand(t *testing.T) {
	f := canonicalServoFrame(t)

	out, err := Encode(f)
	require.NoError(t, err)
	assert.Len(t, out, FrameLen)
	assert.Equal(t, ids.HeaderByte, out[0])

	decoded, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, f.Fingerprint(), decoded.Fingerprint())
	assert.Equal(t, f.Data(), decoded.Data())
}

func TestRoundTripAllDataTypes(t *testing.T) {
	cases := []struct {
		name    string
		dt      ids.DataTypeID
		payload []uint32
	}{
		{"no_data", ids.NoData, nil},
		{"uint32", ids.Uint32, []uint32{0xDEADBEEF}},
		{"uint16", ids.Uint16, []uint32{0xBEEF}},
		{"uint8", ids.Uint8, []uint32{0xAB}},
		{"int32", ids.Int32, []uint32{u32(int32(-12345))}},
		{"int16", ids.Int16, []uint32{uint32(u16(int16(-42)))}},
		{"int8", ids.Int8, []uint32{uint32(u8(int8(-7)))}},
		{"int16x2", ids.Int16x2, []uint32{uint32(u16(int16(-1))), uint32(u16(int16(2)))}},
		{"uint16int16", ids.Uint16Int16, []uint32{42, uint32(u16(int16(-42)))}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := frame.New(ids.Rocket, ids.High, ids.Request, ids.Software,
				ids.Sensor, 3, tc.dt, 0x01, tc.payload...)
			require.NoError(t, err)

			encoded, err := Encode(f)
			require.NoError(t, err)

			decoded, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, f.Fingerprint(), decoded.Fingerprint())
			assert.Equal(t, f.Data(), decoded.Data())
		})
	}
}

func TestHeaderByteNeverReversed(t *testing.T) {
	f := canonicalServoFrame(t)
	out, err := Encode(f)
	require.NoError(t, err)
	assert.Equal(t, byte(0x05), out[0])
}

func TestChecksumMismatchOnCorruptedPrefix(t *testing.T) {
	f := canonicalServoFrame(t)
	out, err := Encode(f)
	require.NoError(t, err)

	out[3] ^= 0x01 // flip one bit inside bytes 0-9

	_, err = Decode(out)
	assert.ErrorIs(t, err, protoerr.ErrChecksumMismatch)
}

func TestChecksumMismatchOnCorruptedCRCTail(t *testing.T) {
	f := canonicalServoFrame(t)
	out, err := Encode(f)
	require.NoError(t, err)

	out[FrameLen-1] ^= 0x01

	_, err = Decode(out)
	assert.ErrorIs(t, err, protoerr.ErrChecksumMismatch)
}
