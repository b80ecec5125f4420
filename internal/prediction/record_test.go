package prediction

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconlab/scene.report/internal/npy"
)

func decodeMap(t *testing.T, members map[string][]byte) map[string]*npy.Array {
	t.Helper()
	arrays := make(map[string]*npy.Array, len(members))
	for name, raw := range members {
		arr, err := npy.Decode(raw)
		require.NoError(t, err, "decode %s", name)
		arrays[name] = arr
	}
	return arrays
}

func cameraArrays(t *testing.T, frames int) map[string]*npy.Array {
	t.Helper()
	return decodeMap(t, map[string][]byte{
		FieldExtrinsic: extrinsicNPY(t, frames),
		FieldIntrinsic: intrinsicNPY(t, frames),
	})
}

func TestAssembleMinimal(t *testing.T) {
	rec, err := Assemble(cameraArrays(t, 3))
	require.NoError(t, err)

	assert.Equal(t, 3, rec.FrameCount)
	require.Len(t, rec.Extrinsic, 3)
	require.Len(t, rec.Intrinsic, 3)

	// Frame 2 translation is (2, 0, 0) per the fixture.
	assert.Equal(t, 2.0, rec.Extrinsic[2][0][3])
	assert.Equal(t, 500.0, rec.Intrinsic[1][0][0])
	assert.Equal(t, 1.0, rec.Intrinsic[1][2][2])
}

func TestAssembleMissingExtrinsic(t *testing.T) {
	arrays := cameraArrays(t, 2)
	delete(arrays, FieldExtrinsic)

	_, err := Assemble(arrays)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestAssembleMissingIntrinsic(t *testing.T) {
	arrays := cameraArrays(t, 2)
	delete(arrays, FieldIntrinsic)

	_, err := Assemble(arrays)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestAssembleFrameCountMismatch(t *testing.T) {
	arrays := decodeMap(t, map[string][]byte{
		FieldExtrinsic: extrinsicNPY(t, 3),
		FieldIntrinsic: intrinsicNPY(t, 2),
	})

	_, err := Assemble(arrays)
	assert.ErrorIs(t, err, npy.ErrFormat)
}

func TestAssembleBadMatrixShape(t *testing.T) {
	arrays := cameraArrays(t, 2)

	// Swap in an extrinsic with the wrong inner shape.
	bad, err := npy.Decode(flatNPY(t, []int{2, 4, 3}, make([]float32, 24)))
	require.NoError(t, err)
	arrays[FieldExtrinsic] = bad

	_, err = Assemble(arrays)
	assert.ErrorIs(t, err, npy.ErrFormat)
}

func TestAssembleIgnoresUnknownFields(t *testing.T) {
	arrays := cameraArrays(t, 2)
	unknown, err := npy.Decode(flatNPY(t, []int{2}, []float32{1, 2}))
	require.NoError(t, err)
	arrays["future_output"] = unknown

	rec, err := Assemble(arrays)
	require.NoError(t, err)
	assert.False(t, rec.Has("future_output"))
	if _, ok := rec.Fields["future_output"]; ok {
		t.Error("unrecognized field should not be carried into the record")
	}
}

func TestAssembleOptionalFields(t *testing.T) {
	arrays := cameraArrays(t, 2)
	depth, err := npy.Decode(flatNPY(t, []int{2, 4, 4, 1}, make([]float32, 32)))
	require.NoError(t, err)
	arrays[FieldDepth] = depth

	rec, err := Assemble(arrays)
	require.NoError(t, err)
	assert.True(t, rec.Has(FieldDepth))
	assert.False(t, rec.Has(FieldWorldPoints))
	if _, ok := rec.Nested[FieldDepth]; !ok {
		t.Error("optional field should have a nested form")
	}
}

func TestAssembleFloat64Archive(t *testing.T) {
	// The same logical content as the float32 fixture, but stored as <f8.
	ext := make([]float64, 0, 24)
	for i := 0; i < 2; i++ {
		ext = append(ext, 1, 0, 0, float64(i), 0, 1, 0, 0, 0, 0, 1, 0)
	}
	intr := make([]float64, 0, 18)
	for i := 0; i < 2; i++ {
		intr = append(intr, 500, 0, 320, 0, 500, 240, 0, 0, 1)
	}

	arrays := decodeMap(t, map[string][]byte{
		FieldExtrinsic: flat64NPY(t, []int{2, 3, 4}, ext),
		FieldIntrinsic: flat64NPY(t, []int{2, 3, 3}, intr),
	})

	rec, err := Assemble(arrays)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rec.Extrinsic[1][0][3])
	assert.Equal(t, 240.0, rec.Intrinsic[0][1][2])
}

func TestAssembleErrorsAreSpecific(t *testing.T) {
	_, err := Assemble(map[string]*npy.Array{})
	require.Error(t, err)
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
}
