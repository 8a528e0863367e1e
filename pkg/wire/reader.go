package wire

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/skylane-game/skylane/pkg/game/types"
)

// ErrShortPacket is returned when a read runs past the end of the payload.
var ErrShortPacket = errors.New("packet too short")

// Reader parses a packet payload. The first failed read latches an error;
// subsequent reads return zero values so callers check Err once at the end.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader creates a reader over the payload.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first read error, if any.
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = ErrShortPacket
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) ReadUint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) ReadUint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) ReadUint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) ReadUint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) ReadInt64() int64 {
	return int64(r.ReadUint64())
}

func (r *Reader) ReadFloat32() float32 {
	return math.Float32frombits(r.ReadUint32())
}

func (r *Reader) ReadFloat64() float64 {
	return math.Float64frombits(r.ReadUint64())
}

func (r *Reader) ReadBool() bool {
	return r.ReadUint8() != 0
}

func (r *Reader) ReadUUID() uuid.UUID {
	var id uuid.UUID
	b := r.take(16)
	if b == nil {
		return id
	}
	copy(id[:], b)
	return id
}

func (r *Reader) ReadString() string {
	n := int(r.ReadUint16())
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *Reader) ReadPoint() types.Point {
	return types.Point{
		X: r.ReadFloat64(),
		Y: r.ReadFloat64(),
	}
}

func (r *Reader) ReadAngle() types.Angle {
	return types.NewAngle(r.ReadFloat64())
}
