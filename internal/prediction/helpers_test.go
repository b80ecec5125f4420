package prediction

import (
	"os"
	"testing"

	"github.com/reconlab/scene.report/internal/nptest"
)

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func extrinsicNPY(t *testing.T, frames int) []byte {
	t.Helper()
	return nptest.NPYFloat32(t, []int{frames, 3, 4}, nptest.IdentityExtrinsics(frames))
}

func intrinsicNPY(t *testing.T, frames int) []byte {
	t.Helper()
	return nptest.NPYFloat32(t, []int{frames, 3, 3}, nptest.DefaultIntrinsics(frames))
}

func flatNPY(t *testing.T, shape []int, values []float32) []byte {
	t.Helper()
	return nptest.NPYFloat32(t, shape, values)
}

func flat64NPY(t *testing.T, shape []int, values []float64) []byte {
	t.Helper()
	return nptest.NPYFloat64(t, shape, values)
}
