package telemetry

import (
	"bytes"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agh-space-systems/groundstation/pkg/frame"
	"github.com/agh-space-systems/groundstation/pkg/ids"
)

func testFrame(t *testing.T) frame.Frame {
	t.Helper()
	f, err := frame.New(ids.Rocket, ids.Low, ids.Service, ids.Software,
		ids.Servo, 1, ids.Int16, uint8(ids.ServoPosition), 0)
	require.NoError(t, err)
	return f
}

func TestFrameRecorderBoundsTrail(t *testing.T) {
	rec := NewFrameRecorder(2, nil)
	f := testFrame(t)

	rec.ObserveFrame(f, "send")
	rec.ObserveFrame(f, "receive")
	rec.ObserveFrame(f, "send")

	trail := rec.Trail()
	require.Len(t, trail, 2)
	assert.Equal(t, uint64(2), trail[0].Sequence)
	assert.Equal(t, uint64(3), trail[1].Sequence)
}

func TestFrameRecorderWritesCBORToSink(t *testing.T) {
	var buf bytes.Buffer
	rec := NewFrameRecorder(0, &buf)
	f := testFrame(t)

	rec.ObserveFrame(f, "send")
	require.NotZero(t, buf.Len())

	var got Record
	require.NoError(t, cbor.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, uint64(1), got.Sequence)
	assert.Equal(t, "send", got.Direction)
	assert.Equal(t, uint8(ids.Rocket), got.Destination)
	assert.Equal(t, uint8(ids.Software), got.Source)
}

func TestFrameRecorderUnboundedByDefault(t *testing.T) {
	rec := NewFrameRecorder(0, nil)
	f := testFrame(t)
	for i := 0; i < 10; i++ {
		rec.ObserveFrame(f, "send")
	}
	assert.Len(t, rec.Trail(), 10)
}
