package npy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// NPY binary layout constants. These define the fixed on-disk format written
// by the reconstruction job for every tensor in the predictions archive.
const (
	MagicLen      = 6 // "\x93NUMPY" signature
	VersionLen    = 2 // one byte major, one byte minor
	HeaderLenV1   = 2 // u16 little-endian header length (major version 1)
	HeaderLenV2   = 4 // u32 little-endian header length (major versions 2 and 3)
	MaxHeaderSize = 1 << 20
)

// magic is the 6-byte NPY signature every tensor file starts with.
var magic = []byte{0x93, 'N', 'U', 'M', 'P', 'Y'}

// Array is one decoded tensor: a flat typed buffer plus the shape that
// describes its N-dimensional layout in row-major (C) order. Exactly one of
// the data slices is non-nil, matching DType. Arrays are immutable after
// Decode returns.
type Array struct {
	DType DType
	Shape []int

	Float32s []float32
	Float64s []float64
	Int32s   []int32
	Uint8s   []uint8
}

// Len returns the flat element count, product(Shape), 1 for a scalar.
func (a *Array) Len() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// Float64At returns element i widened to float64 regardless of DType. Matrix
// consumers (extrinsics, intrinsics) go through this so <f4 and <f8 archives
// behave identically downstream.
func (a *Array) Float64At(i int) float64 {
	switch a.DType {
	case Float32:
		return float64(a.Float32s[i])
	case Float64:
		return a.Float64s[i]
	case Int32:
		return float64(a.Int32s[i])
	case Uint8:
		return float64(a.Uint8s[i])
	}
	return 0
}

// Decode parses one complete NPY buffer into an Array.
//
// Layout: magic[6] + major[1] + minor[1] + header_len (u16 LE for major 1,
// u32 LE for major 2/3) + ASCII header of exactly header_len bytes + raw
// little-endian element data of product(shape) * itemsize bytes.
func Decode(data []byte) (*Array, error) {
	if len(data) < MagicLen+VersionLen {
		return nil, fmt.Errorf("%w: %d bytes is too short for the npy preamble", ErrFormat, len(data))
	}
	if !bytes.Equal(data[:MagicLen], magic) {
		return nil, fmt.Errorf("%w: bad magic % x", ErrFormat, data[:MagicLen])
	}

	major := data[MagicLen]
	minor := data[MagicLen+1]
	if major < 1 || major > 3 {
		return nil, fmt.Errorf("%w: unsupported version %d.%d", ErrFormat, major, minor)
	}

	// Header length field width depends on the major version.
	offset := MagicLen + VersionLen
	var headerLen int
	if major == 1 {
		if len(data) < offset+HeaderLenV1 {
			return nil, fmt.Errorf("%w: missing header length field", ErrFormat)
		}
		headerLen = int(binary.LittleEndian.Uint16(data[offset : offset+HeaderLenV1]))
		offset += HeaderLenV1
	} else {
		if len(data) < offset+HeaderLenV2 {
			return nil, fmt.Errorf("%w: missing header length field", ErrFormat)
		}
		headerLen = int(binary.LittleEndian.Uint32(data[offset : offset+HeaderLenV2]))
		offset += HeaderLenV2
	}

	if headerLen > MaxHeaderSize {
		return nil, fmt.Errorf("%w: header length %d exceeds limit", ErrFormat, headerLen)
	}
	if len(data) < offset+headerLen {
		return nil, fmt.Errorf("%w: header length %d exceeds buffer", ErrFormat, headerLen)
	}

	h, err := parseHeader(data[offset : offset+headerLen])
	if err != nil {
		return nil, err
	}
	offset += headerLen

	dtype, err := parseDType(h.descr)
	if err != nil {
		return nil, err
	}

	// Fortran (column-major) order is declared but never produced by the
	// reconstruction job; the reshape step only implements C order, so F-order
	// input is rejected outright rather than silently mis-reshaped.
	if h.fortranOrder {
		return nil, fmt.Errorf("%w: fortran_order (column-major) arrays", ErrUnsupportedDtype)
	}

	// Validate declared size against the available bytes before allocating
	// anything, so corrupt shape declarations fail fast instead of partially
	// materializing huge buffers. The running product is bounded by the
	// payload's element capacity at every step, which also keeps a crafted
	// shape from overflowing the product past the size check.
	payload := data[offset:]
	maxElems := len(payload) / dtype.ItemSize()
	count := 1
	for _, dim := range h.shape {
		if dim < 0 {
			return nil, fmt.Errorf("%w: negative dimension %d", ErrFormat, dim)
		}
		if dim > 0 && count > maxElems/dim {
			return nil, fmt.Errorf("%w: shape %v needs more than the %d bytes available", ErrTruncated, h.shape, len(payload))
		}
		count *= dim
	}
	need := count * dtype.ItemSize()
	if len(payload) < need {
		return nil, fmt.Errorf("%w: shape %v needs %d bytes, have %d", ErrTruncated, h.shape, need, len(payload))
	}

	arr := &Array{DType: dtype, Shape: h.shape}
	switch dtype {
	case Float32:
		arr.Float32s = make([]float32, count)
		for i := 0; i < count; i++ {
			bits := binary.LittleEndian.Uint32(payload[i*4 : i*4+4])
			arr.Float32s[i] = math.Float32frombits(bits)
		}
	case Float64:
		arr.Float64s = make([]float64, count)
		for i := 0; i < count; i++ {
			bits := binary.LittleEndian.Uint64(payload[i*8 : i*8+8])
			arr.Float64s[i] = math.Float64frombits(bits)
		}
	case Int32:
		arr.Int32s = make([]int32, count)
		for i := 0; i < count; i++ {
			arr.Int32s[i] = int32(binary.LittleEndian.Uint32(payload[i*4 : i*4+4]))
		}
	case Uint8:
		arr.Uint8s = make([]uint8, count)
		copy(arr.Uint8s, payload[:count])
	}

	return arr, nil
}
