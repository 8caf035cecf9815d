// Package protocol implements the wire codec for frame.Frame: bit-packing,
// the per-byte bit reversal the wire requires, and CRC-32/MPEG-2 framing.
// It has no knowledge of transports or queues; it only turns a Frame into
// 18 bytes and back, grounded on
// original_source/communication_library/protocol.py's _pack/_unpack/
// _reverse_bits/calculate_crc.
package protocol

import (
	"encoding/binary"

	"github.com/agh-space-systems/groundstation/pkg/frame"
	"github.com/agh-space-systems/groundstation/pkg/ids"
	"github.com/agh-space-systems/groundstation/pkg/protoerr"
)

const (
	headerLen   = 1
	fieldsLen   = 5
	payloadLen  = 4
	reservedLen = 4
	crcLen      = 4

	// FrameLen is the total wire size of an encoded frame.
	FrameLen = headerLen + fieldsLen + payloadLen + reservedLen + crcLen

	crcInputLen = headerLen + fieldsLen + payloadLen // bytes 0-9, fed to the CRC
)

// reverseTable[b] is b with its bit order swapped (bit 7 <-> bit 0, 6 <-> 1,
// ...). Table lookup, rather than a per-call shift loop, matches how the
// source treats bit reversal as a fixed 256-entry substitution.
var reverseTable [256]byte

func init() {
	for i := 0; i < 256; i++ {
		var r byte
		for b := 0; b < 8; b++ {
			if i&(1<<uint(b)) != 0 {
				r |= 1 << uint(7-b)
			}
		}
		reverseTable[i] = r
	}
}

// crc32MPEG2Table is the table-driven form of CRC-32/MPEG-2: polynomial
// 0x04C11DB7, most-significant-bit first, no input or output reflection.
// Go's hash/crc32 only builds reflected tables (IEEE, Castagnoli), so this
// one is hand-rolled.
var crc32MPEG2Table [256]uint32

func init() {
	const poly = 0x04C11DB7
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for b := 0; b < 8; b++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		crc32MPEG2Table[i] = crc
	}
}

func crc32MPEG2(data []byte) uint32 {
	crc := uint32(0xFFFFFFFF)
	for _, b := range data {
		crc = (crc << 8) ^ crc32MPEG2Table[byte(crc>>24)^b]
	}
	return crc
}

// calculateCRC pads data to a multiple of 4 bytes with zero bytes (always at
// least one padding byte, even when len(data) is already a multiple of 4 —
// protocol.py's `4 - len(data) % 4` does the same), byte-swaps every 4-byte
// word to emulate the source's native-endian-unpack/big-endian-repack step,
// and returns the resulting CRC-32/MPEG-2 in little-endian order.
func calculateCRC(data []byte) [crcLen]byte {
	pad := 4 - len(data)%4
	padded := make([]byte, len(data)+pad)
	copy(padded, data)

	swapped := make([]byte, len(padded))
	for i := 0; i < len(padded); i += 4 {
		swapped[i] = padded[i+3]
		swapped[i+1] = padded[i+2]
		swapped[i+2] = padded[i+1]
		swapped[i+3] = padded[i]
	}

	var out [crcLen]byte
	binary.LittleEndian.PutUint32(out[:], crc32MPEG2(swapped))
	return out
}

// bitWriter packs values MSB-first into a fixed byte buffer, the Go
// equivalent of bitstruct.pack's bit-level layout.
type bitWriter struct {
	buf []byte
	pos int
}

func newBitWriter(n int) *bitWriter {
	return &bitWriter{buf: make([]byte, n)}
}

func (w *bitWriter) writeBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		if (v>>uint(i))&1 != 0 {
			w.buf[w.pos/8] |= 1 << uint(7-w.pos%8)
		}
		w.pos++
	}
}

// bitReader is bitWriter's inverse.
type bitReader struct {
	buf []byte
	pos int
}

func newBitReader(buf []byte) *bitReader {
	return &bitReader{buf: buf}
}

func (r *bitReader) readBits(n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		bit := (r.buf[r.pos/8] >> uint(7-r.pos%8)) & 1
		v = v<<1 | uint64(bit)
		r.pos++
	}
	return v
}

// payloadWidths returns the bit width of each payload element data type dt
// carries, per frame.py's payload_format_str table. The widths never sum to
// more than 32; the remainder is zero padding.
func payloadWidths(dt ids.DataTypeID) []int {
	switch dt {
	case ids.Uint32, ids.Int32, ids.Float:
		return []int{32}
	case ids.Uint16, ids.Int16:
		return []int{16}
	case ids.Uint8, ids.Int8:
		return []int{8}
	case ids.Int16x2, ids.Uint16Int16:
		return []int{16, 16}
	default: // NoData and anything unrecognized: no value bits, all padding
		return nil
	}
}

// Encode packs f into its 18-byte wire form. Byte 0 is the literal header
// and is never bit-reversed; bytes 1-9 (fields and payload) are reversed
// before the CRC is computed and appended, matching the external interface
// table: "0x05 (header, never bit-reversed)" alongside "bytes 1-9 are
// transmitted bit-reversed relative to their logical MSB-first packing."
func Encode(f frame.Frame) ([FrameLen]byte, error) {
	var out [FrameLen]byte

	widths := payloadWidths(f.DataType)
	wantLen, ok := ids.PayloadElementCount(f.DataType)
	if !ok || wantLen != len(widths) {
		return out, protoerr.ErrProtocol
	}

	fw := newBitWriter(fieldsLen)
	fw.writeBits(uint64(f.Destination), frame.DestinationBits)
	fw.writeBits(uint64(f.Priority), frame.PriorityBits)
	fw.writeBits(uint64(f.Action), frame.ActionBits)
	fw.writeBits(uint64(f.Source), frame.SourceBits)
	fw.writeBits(uint64(f.DeviceType), frame.DeviceTypeBits)
	fw.writeBits(uint64(f.DeviceID), frame.DeviceIDBits)
	fw.writeBits(uint64(f.DataType), frame.DataTypeBits)
	fw.writeBits(uint64(f.Operation), frame.OperationBits)

	pw := newBitWriter(payloadLen)
	data := f.Data()
	usedBits := 0
	for i, w := range widths {
		pw.writeBits(uint64(data[i]), w)
		usedBits += w
	}
	pw.writeBits(0, payloadLen*8-usedBits)

	var raw [crcInputLen]byte
	raw[0] = ids.HeaderByte
	copy(raw[headerLen:headerLen+fieldsLen], fw.buf)
	copy(raw[headerLen+fieldsLen:], pw.buf)

	var prefix [crcInputLen]byte
	prefix[0] = raw[0]
	for i := 1; i < crcInputLen; i++ {
		prefix[i] = reverseTable[raw[i]]
	}

	crc := calculateCRC(prefix[:])

	copy(out[:crcInputLen], prefix[:])
	// out[crcInputLen : crcInputLen+reservedLen] stays zero (reserved).
	copy(out[crcInputLen+reservedLen:], crc[:])

	return out, nil
}

// Decode validates and unpacks an 18-byte wire frame. Byte 0 (the header
// literal) is assumed already verified by the caller — see
// CommunicationManager.Receive, which checks it before reading the rest of
// the frame — and is not re-checked here.
func Decode(data [FrameLen]byte) (frame.Frame, error) {
	prefix := data[:crcInputLen]
	wantCRC := calculateCRC(prefix)
	gotCRC := data[crcInputLen+reservedLen:]
	for i := range wantCRC {
		if wantCRC[i] != gotCRC[i] {
			return frame.Frame{}, protoerr.ErrChecksumMismatch
		}
	}

	var unrev [crcInputLen]byte
	unrev[0] = prefix[0]
	for i := 1; i < crcInputLen; i++ {
		unrev[i] = reverseTable[prefix[i]]
	}

	fr := newBitReader(unrev[headerLen : headerLen+fieldsLen])
	destination := ids.BoardID(fr.readBits(frame.DestinationBits))
	priority := ids.PriorityID(fr.readBits(frame.PriorityBits))
	action := ids.ActionID(fr.readBits(frame.ActionBits))
	source := ids.BoardID(fr.readBits(frame.SourceBits))
	deviceType := ids.DeviceID(fr.readBits(frame.DeviceTypeBits))
	deviceID := uint8(fr.readBits(frame.DeviceIDBits))
	dataType := ids.DataTypeID(fr.readBits(frame.DataTypeBits))
	operation := uint8(fr.readBits(frame.OperationBits))

	widths := payloadWidths(dataType)
	pr := newBitReader(unrev[headerLen+fieldsLen:])
	payload := make([]uint32, 0, len(widths))
	for _, w := range widths {
		payload = append(payload, uint32(pr.readBits(w)))
	}

	f, err := frame.New(destination, priority, action, source, deviceType, deviceID, dataType, operation, payload...)
	if err != nil {
		return frame.Frame{}, protoerr.ErrProtocol
	}
	return f, nil
}
