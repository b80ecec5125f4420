package npy

import "fmt"

// DType identifies the element type of a decoded array. Only the four
// combinations emitted by the reconstruction job are representable; everything
// else is rejected at header-parse time.
type DType int

const (
	Float32 DType = iota // "<f4" little-endian IEEE 754 single
	Float64              // "<f8" little-endian IEEE 754 double
	Int32                // "<i4" little-endian signed 32-bit
	Uint8                // "|u1" single byte, endianness not applicable
)

// ItemSize returns the element width in bytes.
func (d DType) ItemSize() int {
	switch d {
	case Float32, Int32:
		return 4
	case Float64:
		return 8
	case Uint8:
		return 1
	}
	return 0
}

func (d DType) String() string {
	switch d {
	case Float32:
		return "<f4"
	case Float64:
		return "<f8"
	case Int32:
		return "<i4"
	case Uint8:
		return "|u1"
	}
	return fmt.Sprintf("DType(%d)", int(d))
}

// parseDType decodes a numpy descr string. Byte 0 is endianness ('<' little,
// '>' big, '|' not applicable), byte 1 is the type class ('f' float, 'i'
// signed int, 'u' unsigned int), the remaining digits are the byte width.
// Big-endian multi-byte dtypes are deliberately rejected rather than
// byte-swapped so that producer-side bugs surface instead of being masked.
func parseDType(code string) (DType, error) {
	if len(code) < 3 {
		return 0, fmt.Errorf("%w: descr %q too short", ErrUnsupportedDtype, code)
	}

	endian := code[0]
	class := code[1]
	width := code[2:]

	switch endian {
	case '<', '|':
		// supported below
	case '>':
		return 0, fmt.Errorf("%w: big-endian descr %q", ErrUnsupportedDtype, code)
	default:
		return 0, fmt.Errorf("%w: unknown byte order %q in descr %q", ErrUnsupportedDtype, endian, code)
	}

	switch {
	case endian == '<' && class == 'f' && width == "4":
		return Float32, nil
	case endian == '<' && class == 'f' && width == "8":
		return Float64, nil
	case endian == '<' && class == 'i' && width == "4":
		return Int32, nil
	case endian == '|' && class == 'u' && width == "1":
		return Uint8, nil
	}

	return 0, fmt.Errorf("%w: descr %q", ErrUnsupportedDtype, code)
}
