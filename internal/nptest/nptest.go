// Package nptest builds synthetic tensor files and archives for tests.
package nptest

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"
)

// NPY assembles one tensor file byte-for-byte from a descr string, shape and
// raw payload: magic, version 1, u16 length field, padded header, payload.
func NPY(tb testing.TB, descr string, shape []int, payload []byte) []byte {
	tb.Helper()

	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = fmt.Sprintf("%d", d)
	}
	var tuple string
	switch len(shape) {
	case 0:
		tuple = "()"
	case 1:
		tuple = fmt.Sprintf("(%s,)", dims[0])
	default:
		tuple = fmt.Sprintf("(%s)", strings.Join(dims, ", "))
	}

	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, tuple)
	for (len(header)+1)%16 != 0 {
		header += " "
	}
	header += "\n"

	buf := []byte{0x93, 'N', 'U', 'M', 'P', 'Y', 1, 0}
	lenField := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenField, uint16(len(header)))
	buf = append(buf, lenField...)
	buf = append(buf, header...)
	return append(buf, payload...)
}

// NPYFloat32 builds a little-endian <f4 tensor file.
func NPYFloat32(tb testing.TB, shape []int, values []float32) []byte {
	tb.Helper()
	payload := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(v))
	}
	return NPY(tb, "<f4", shape, payload)
}

// NPYFloat64 builds a little-endian <f8 tensor file.
func NPYFloat64(tb testing.TB, shape []int, values []float64) []byte {
	tb.Helper()
	payload := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(payload[i*8:], math.Float64bits(v))
	}
	return NPY(tb, "<f8", shape, payload)
}

// Archive zips members verbatim (deflated).
func Archive(tb testing.TB, members map[string][]byte) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range members {
		w, err := zw.Create(name)
		if err != nil {
			tb.Fatalf("create member %q: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			tb.Fatalf("write member %q: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

// IdentityExtrinsics returns flat [S,3,4] data with identity rotations and
// per-frame translation (i, 0, 0), so frame i sits at world (-i, 0, 0).
func IdentityExtrinsics(frames int) []float32 {
	out := make([]float32, 0, frames*12)
	for i := 0; i < frames; i++ {
		out = append(out,
			1, 0, 0, float32(i),
			0, 1, 0, 0,
			0, 0, 1, 0,
		)
	}
	return out
}

// DefaultIntrinsics returns flat [S,3,3] data with a plausible pinhole
// calibration repeated per frame.
func DefaultIntrinsics(frames int) []float32 {
	out := make([]float32, 0, frames*9)
	for i := 0; i < frames; i++ {
		out = append(out,
			500, 0, 320,
			0, 500, 240,
			0, 0, 1,
		)
	}
	return out
}

// CameraArchive builds a minimal valid predictions archive with the required
// extrinsic and intrinsic members for the given frame count, plus any extra
// pre-encoded members.
func CameraArchive(tb testing.TB, frames int, extra map[string][]byte) []byte {
	tb.Helper()

	members := map[string][]byte{
		"extrinsic.npy": NPYFloat32(tb, []int{frames, 3, 4}, IdentityExtrinsics(frames)),
		"intrinsic.npy": NPYFloat32(tb, []int{frames, 3, 3}, DefaultIntrinsics(frames)),
	}
	for name, data := range extra {
		members[name] = data
	}
	return Archive(tb, members)
}
