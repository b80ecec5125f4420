// Package prediction assembles decoded tensor arrays into the structured
// prediction record the viewer consumes, and summarizes it with render-ready
// per-frame cameras.
package prediction

import (
	"errors"
	"fmt"

	"github.com/reconlab/scene.report/internal/npy"
)

// ErrMissingField is returned when a required array is absent from the
// archive.
var ErrMissingField = errors.New("required prediction field missing")

// Known field names inside a predictions archive. Extrinsic and intrinsic are
// required; the rest are optional per-scene outputs the reconstruction job
// may or may not emit.
const (
	FieldExtrinsic       = "extrinsic"
	FieldIntrinsic       = "intrinsic"
	FieldDepth           = "depth"
	FieldDepthConf       = "depth_conf"
	FieldWorldPoints     = "world_points"
	FieldWorldPointsConf = "world_points_conf"
	FieldImages          = "images"
	FieldPoseEnc         = "pose_enc"
	FieldTrack           = "track"
	FieldVis             = "vis"
	FieldConf            = "conf"
)

// optionalFields lists every recognized non-required field.
var optionalFields = []string{
	FieldDepth, FieldDepthConf, FieldWorldPoints, FieldWorldPointsConf,
	FieldImages, FieldPoseEnc, FieldTrack, FieldVis, FieldConf,
}

// Record is the assembled prediction: typed camera matrices plus every
// recognized field, both flat (Fields) and nested (Nested, the reshaped
// row-major structure). Immutable after Assemble returns.
type Record struct {
	// FrameCount is S, the number of frames in the scene.
	FrameCount int

	// Extrinsic holds S world-to-camera 3x4 pose matrices (vision convention).
	Extrinsic [][3][4]float64

	// Intrinsic holds S 3x3 projection matrices.
	Intrinsic [][3][3]float64

	// Fields maps recognized field names to their decoded arrays.
	Fields map[string]*npy.Array

	// Nested maps recognized field names to their reshaped nested form.
	Nested map[string]any
}

// Has reports whether an optional field was present in the archive.
func (r *Record) Has(name string) bool {
	_, ok := r.Fields[name]
	return ok
}

// Assemble builds a Record from decoded arrays keyed by logical name.
// Unrecognized names are ignored so newer producer versions with extra
// outputs keep working. Missing extrinsic or intrinsic fails with
// ErrMissingField; shape disagreements between the two fail as format errors.
func Assemble(arrays map[string]*npy.Array) (*Record, error) {
	ext, ok := arrays[FieldExtrinsic]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, FieldExtrinsic)
	}
	intr, ok := arrays[FieldIntrinsic]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, FieldIntrinsic)
	}

	extrinsics, err := matrices3x4(ext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FieldExtrinsic, err)
	}
	intrinsics, err := matrices3x3(intr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FieldIntrinsic, err)
	}
	if len(extrinsics) != len(intrinsics) {
		return nil, fmt.Errorf("%w: %d extrinsic frames but %d intrinsic frames",
			npy.ErrFormat, len(extrinsics), len(intrinsics))
	}

	rec := &Record{
		FrameCount: len(extrinsics),
		Extrinsic:  extrinsics,
		Intrinsic:  intrinsics,
		Fields:     map[string]*npy.Array{FieldExtrinsic: ext, FieldIntrinsic: intr},
		Nested:     map[string]any{FieldExtrinsic: ext.Nest(), FieldIntrinsic: intr.Nest()},
	}
	for _, name := range optionalFields {
		if arr, ok := arrays[name]; ok {
			rec.Fields[name] = arr
			rec.Nested[name] = arr.Nest()
		}
	}
	return rec, nil
}

// matrices3x4 converts an [S,3,4] array into typed matrices, widening to
// float64 regardless of the stored dtype.
func matrices3x4(arr *npy.Array) ([][3][4]float64, error) {
	if len(arr.Shape) != 3 || arr.Shape[1] != 3 || arr.Shape[2] != 4 {
		return nil, fmt.Errorf("%w: expected shape [S 3 4], got %v", npy.ErrFormat, arr.Shape)
	}
	out := make([][3][4]float64, arr.Shape[0])
	for s := range out {
		base := s * 12
		for row := 0; row < 3; row++ {
			for col := 0; col < 4; col++ {
				out[s][row][col] = arr.Float64At(base + row*4 + col)
			}
		}
	}
	return out, nil
}

// matrices3x3 converts an [S,3,3] array into typed matrices.
func matrices3x3(arr *npy.Array) ([][3][3]float64, error) {
	if len(arr.Shape) != 3 || arr.Shape[1] != 3 || arr.Shape[2] != 3 {
		return nil, fmt.Errorf("%w: expected shape [S 3 3], got %v", npy.ErrFormat, arr.Shape)
	}
	out := make([][3][3]float64, arr.Shape[0])
	for s := range out {
		base := s * 9
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				out[s][row][col] = arr.Float64At(base + row*3 + col)
			}
		}
	}
	return out, nil
}
