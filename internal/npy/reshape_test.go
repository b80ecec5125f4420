package npy

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNestRank0(t *testing.T) {
	arr := &Array{DType: Float32, Shape: nil, Float32s: []float32{7.5}}
	got := arr.Nest()
	if got != float32(7.5) {
		t.Errorf("expected scalar 7.5, got %v", got)
	}
}

func TestNestRank1(t *testing.T) {
	arr := &Array{DType: Int32, Shape: []int{4}, Int32s: []int32{1, 2, 3, 4}}
	got := arr.Nest()
	if diff := cmp.Diff([]int32{1, 2, 3, 4}, got); diff != "" {
		t.Errorf("rank-1 nest mismatch (-want +got):\n%s", diff)
	}
}

func TestNestRank2(t *testing.T) {
	arr := &Array{
		DType:    Float64,
		Shape:    []int{2, 3},
		Float64s: []float64{1, 2, 3, 4, 5, 6},
	}
	want := []any{
		[]float64{1, 2, 3},
		[]float64{4, 5, 6},
	}
	if diff := cmp.Diff(want, arr.Nest()); diff != "" {
		t.Errorf("rank-2 nest mismatch (-want +got):\n%s", diff)
	}
}

func TestNestRank3(t *testing.T) {
	// Shape [2, 2, 2]: outer index partitions the buffer into two contiguous
	// halves, each reshaped as [2, 2].
	arr := &Array{
		DType:    Float32,
		Shape:    []int{2, 2, 2},
		Float32s: []float32{0, 1, 2, 3, 4, 5, 6, 7},
	}
	want := []any{
		[]any{[]float32{0, 1}, []float32{2, 3}},
		[]any{[]float32{4, 5}, []float32{6, 7}},
	}
	if diff := cmp.Diff(want, arr.Nest()); diff != "" {
		t.Errorf("rank-3 nest mismatch (-want +got):\n%s", diff)
	}
}

func TestNestZeroDimension(t *testing.T) {
	arr := &Array{DType: Float32, Shape: []int{0, 3}, Float32s: []float32{}}
	got, ok := arr.Nest().([]any)
	if !ok {
		t.Fatalf("expected []any, got %T", arr.Nest())
	}
	if len(got) != 0 {
		t.Errorf("expected empty outer sequence, got %d entries", len(got))
	}
}

// Round trip: flattening a decoded nested structure back out in row-major
// order must reproduce the original flat buffer exactly.
func TestNestRoundTrip(t *testing.T) {
	flat := make([]float32, 24)
	for i := range flat {
		flat[i] = float32(i) * 0.5
	}
	arr := &Array{DType: Float32, Shape: []int{2, 3, 4}, Float32s: flat}

	var walked []float32
	var walk func(v any)
	walk = func(v any) {
		switch vv := v.(type) {
		case []any:
			for _, e := range vv {
				walk(e)
			}
		case []float32:
			walked = append(walked, vv...)
		default:
			t.Fatalf("unexpected node type %T", v)
		}
	}
	walk(arr.Nest())

	if diff := cmp.Diff(flat, walked); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestNestLeavesAliasBuffer(t *testing.T) {
	arr := &Array{DType: Uint8, Shape: []int{2, 2}, Uint8s: []uint8{1, 2, 3, 4}}
	nested := arr.Nest().([]any)
	row := nested[1].([]uint8)
	if &row[0] != &arr.Uint8s[2] {
		t.Error("expected leaf slices to alias the flat buffer")
	}
}
