package swathio

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
)

// Endian selects the byte order a ByteCodec reads or writes with.
type Endian int

const (
	BigEndian Endian = iota
	LittleEndian
)

func (e Endian) order() binary.ByteOrder {
	if e == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// ByteCodec reads and writes fixed-width primitives at an explicit offset
// into a byte slice, parameterized by byte order. It carries no cursor of
// its own; callers (Framer, RecordCodec) track position.
type ByteCodec struct{}

func (ByteCodec) GetU16(buf []byte, off int, order Endian) uint16 {
	return order.order().Uint16(buf[off : off+2])
}

func (ByteCodec) GetI16(buf []byte, off int, order Endian) int16 {
	return int16(order.order().Uint16(buf[off : off+2]))
}

func (ByteCodec) GetU32(buf []byte, off int, order Endian) uint32 {
	return order.order().Uint32(buf[off : off+4])
}

func (ByteCodec) GetI32(buf []byte, off int, order Endian) int32 {
	return int32(order.order().Uint32(buf[off : off+4]))
}

func (ByteCodec) GetU64(buf []byte, off int, order Endian) uint64 {
	return order.order().Uint64(buf[off : off+8])
}

func (b ByteCodec) GetF32(buf []byte, off int, order Endian) float32 {
	return math.Float32frombits(b.GetU32(buf, off, order))
}

func (b ByteCodec) GetF64(buf []byte, off int, order Endian) float64 {
	return math.Float64frombits(b.GetU64(buf, off, order))
}

func (ByteCodec) PutU16(buf []byte, off int, v uint16, order Endian) {
	order.order().PutUint16(buf[off:off+2], v)
}

func (ByteCodec) PutI16(buf []byte, off int, v int16, order Endian) {
	order.order().PutUint16(buf[off:off+2], uint16(v))
}

func (ByteCodec) PutU32(buf []byte, off int, v uint32, order Endian) {
	order.order().PutUint32(buf[off:off+4], v)
}

func (ByteCodec) PutI32(buf []byte, off int, v int32, order Endian) {
	order.order().PutUint32(buf[off:off+4], uint32(v))
}

func (ByteCodec) PutU64(buf []byte, off int, v uint64, order Endian) {
	order.order().PutUint64(buf[off:off+8], v)
}

func (b ByteCodec) PutF32(buf []byte, off int, v float32, order Endian) {
	b.PutU32(buf, off, math.Float32bits(v), order)
}

func (b ByteCodec) PutF64(buf []byte, off int, v float64, order Endian) {
	b.PutU64(buf, off, math.Float64bits(v), order)
}

// GetAsciiInt parses a length-bounded ASCII token as an integer, returning
// a Malformed-shaped error on failure rather than panicking — the HYSWEEP
// and SIMRAD-class parsers both consume tokens this way.
func (ByteCodec) GetAsciiInt(token string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(token), 10, 64)
	if err != nil {
		return 0, newErr(Malformed, -1, RawLine, err)
	}
	return v, nil
}

// GetAsciiDouble parses a length-bounded ASCII token as a C-locale float
// (decimal point, no thousands separator).
func (ByteCodec) GetAsciiDouble(token string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
	if err != nil {
		return 0, newErr(Malformed, -1, RawLine, err)
	}
	return v, nil
}

// ResolveEndian implements the sonar-model-identifier endian negotiation
// from §4.1: the raw and byte-swapped interpretations of a 2-byte model
// identifier are each checked against the format's known model set; the
// one that falls in range wins. If both or neither do, the session's
// sticky byte order is kept. Grounded in mb_swap.h's swap-macro pair and
// MB-System's per-session byte-order flag.
func ResolveEndian(raw uint16, knownModels map[uint16]bool, sticky Endian) Endian {
	swapped := raw<<8 | raw>>8
	rawOK := knownModels[raw]
	swappedOK := knownModels[swapped]
	switch {
	case rawOK && !swappedOK:
		return BigEndian
	case swappedOK && !rawOK:
		return LittleEndian
	default:
		return sticky
	}
}
