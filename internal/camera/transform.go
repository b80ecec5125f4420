// Package camera converts world-to-camera extrinsic poses from the
// reconstruction job's vision convention (OpenCV axes) into render-ready
// camera-to-world transforms for the viewer (three.js axes).
package camera

import (
	"errors"
	"fmt"
	"math"
)

// ErrSingular is returned when an extrinsic matrix is not invertible within
// tolerance. No partial pose is produced in that case.
var ErrSingular = errors.New("singular extrinsic matrix")

// singularEps bounds |det| below which the augmented extrinsic is treated as
// non-invertible.
const singularEps = 1e-10

// Pose is the render-ready result for one frame.
type Pose struct {
	// Position is the camera centre in world coordinates, the translation
	// column of the final matrix.
	Position [3]float64

	// RenderMatrix is the final 4x4 camera-to-world transform serialized in
	// column-major element order, as the renderer consumes it.
	RenderMatrix [16]float64
}

// Matrices here are [16]float64 row-major: m00,m01,m02,m03, m10,...
// (same layout convention as the rest of the codebase).

// axisConversion flips the vertical and depth axes, diag(1,-1,-1,1),
// converting OpenCV camera axes (x right, y down, z forward) into the
// renderer's (x right, y up, z toward viewer).
var axisConversion = [16]float64{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, -1, 0,
	0, 0, 0, 1,
}

// yaw180 is the fixed 180 degree rotation about the vertical axis,
// diag(-1,1,-1,1), applied when the scene was reconstructed with the
// alignment flag set.
var yaw180 = [16]float64{
	-1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, -1, 0,
	0, 0, 0, 1,
}

// Transform converts one 3x4 world-to-camera extrinsic into a renderer pose.
//
// The extrinsic is augmented to 4x4 with [0,0,0,1], inverted in closed form
// (cofactor expansion, see invert), right-multiplied by the axis conversion,
// and optionally by the yaw-180 alignment rotation. Pure function; safe to
// call concurrently per frame.
func Transform(extrinsic [3][4]float64, alignY180 bool) (Pose, error) {
	m := [16]float64{
		extrinsic[0][0], extrinsic[0][1], extrinsic[0][2], extrinsic[0][3],
		extrinsic[1][0], extrinsic[1][1], extrinsic[1][2], extrinsic[1][3],
		extrinsic[2][0], extrinsic[2][1], extrinsic[2][2], extrinsic[2][3],
		0, 0, 0, 1,
	}

	camToWorld, err := invert(m)
	if err != nil {
		return Pose{}, err
	}

	final := multiply(camToWorld, axisConversion)
	if alignY180 {
		final = multiply(final, yaw180)
	}

	var p Pose
	p.Position = [3]float64{final[3], final[7], final[11]}

	// Column-major serialization for the renderer.
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			p.RenderMatrix[col*4+row] = final[row*4+col]
		}
	}
	return p, nil
}

// invert computes the inverse of a 4x4 matrix via the closed-form
// cofactor/adjugate expansion. The determinant falls out of the same
// expansion, which fixes the exact arithmetic path so well-conditioned camera
// matrices invert bit-for-bit identically across platforms. Not a generic
// solver; do not swap in an elimination-based routine.
func invert(m [16]float64) ([16]float64, error) {
	// Pairwise 2x2 sub-determinants of the top and bottom halves.
	b00 := m[0]*m[5] - m[1]*m[4]
	b01 := m[0]*m[6] - m[2]*m[4]
	b02 := m[0]*m[7] - m[3]*m[4]
	b03 := m[1]*m[6] - m[2]*m[5]
	b04 := m[1]*m[7] - m[3]*m[5]
	b05 := m[2]*m[7] - m[3]*m[6]
	b06 := m[8]*m[13] - m[9]*m[12]
	b07 := m[8]*m[14] - m[10]*m[12]
	b08 := m[8]*m[15] - m[11]*m[12]
	b09 := m[9]*m[14] - m[10]*m[13]
	b10 := m[9]*m[15] - m[11]*m[13]
	b11 := m[10]*m[15] - m[11]*m[14]

	det := b00*b11 - b01*b10 + b02*b09 + b03*b08 - b04*b07 + b05*b06
	if math.Abs(det) < singularEps {
		return [16]float64{}, fmt.Errorf("%w: |det| = %g", ErrSingular, math.Abs(det))
	}

	var out [16]float64
	out[0] = (m[5]*b11 - m[6]*b10 + m[7]*b09) / det
	out[1] = (m[2]*b10 - m[1]*b11 - m[3]*b09) / det
	out[2] = (m[13]*b05 - m[14]*b04 + m[15]*b03) / det
	out[3] = (m[10]*b04 - m[9]*b05 - m[11]*b03) / det
	out[4] = (m[6]*b08 - m[4]*b11 - m[7]*b07) / det
	out[5] = (m[0]*b11 - m[2]*b08 + m[3]*b07) / det
	out[6] = (m[14]*b02 - m[12]*b05 - m[15]*b01) / det
	out[7] = (m[8]*b05 - m[10]*b02 + m[11]*b01) / det
	out[8] = (m[4]*b10 - m[5]*b08 + m[7]*b06) / det
	out[9] = (m[1]*b08 - m[0]*b10 - m[3]*b06) / det
	out[10] = (m[12]*b04 - m[13]*b02 + m[15]*b00) / det
	out[11] = (m[9]*b02 - m[8]*b04 - m[11]*b00) / det
	out[12] = (m[5]*b07 - m[4]*b09 - m[6]*b06) / det
	out[13] = (m[0]*b09 - m[1]*b07 + m[2]*b06) / det
	out[14] = (m[13]*b01 - m[12]*b03 - m[14]*b00) / det
	out[15] = (m[8]*b03 - m[9]*b01 + m[10]*b00) / det
	return out, nil
}

// multiply returns a*b for row-major 4x4 matrices.
func multiply(a, b [16]float64) [16]float64 {
	var out [16]float64
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			sum := 0.0
			for k := 0; k < 4; k++ {
				sum += a[row*4+k] * b[k*4+col]
			}
			out[row*4+col] = sum
		}
	}
	return out
}
