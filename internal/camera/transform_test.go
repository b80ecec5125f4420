package camera

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTransformIdentityPose(t *testing.T) {
	extrinsic := [3][4]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}

	pose, err := Transform(extrinsic, false)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if pose.Position != [3]float64{0, 0, 0} {
		t.Errorf("expected origin position, got %v", pose.Position)
	}

	// Identity inverse times diag(1,-1,-1,1) is diag(1,-1,-1,1); its
	// column-major serialization equals its row-major one.
	want := [16]float64{
		1, 0, 0, 0,
		0, -1, 0, 0,
		0, 0, -1, 0,
		0, 0, 0, 1,
	}
	if pose.RenderMatrix != want {
		t.Errorf("render matrix mismatch:\n got %v\nwant %v", pose.RenderMatrix, want)
	}
}

func TestTransformTranslationOnly(t *testing.T) {
	// World-to-camera translation (1,2,3) puts the camera at (-1,-2,-3) in
	// world space. The axis conversion only scales columns, so the
	// translation column is untouched.
	extrinsic := [3][4]float64{
		{1, 0, 0, 1},
		{0, 1, 0, 2},
		{0, 0, 1, 3},
	}

	pose, err := Transform(extrinsic, false)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	want := [3]float64{-1, -2, -3}
	for i := range want {
		if !almostEqual(pose.Position[i], want[i]) {
			t.Errorf("position[%d]: expected %v, got %v", i, want[i], pose.Position[i])
		}
	}
}

func TestTransformAlignY180(t *testing.T) {
	extrinsic := [3][4]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}

	pose, err := Transform(extrinsic, true)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	// diag(1,-1,-1,1) * diag(-1,1,-1,1) = diag(-1,-1,1,1).
	want := [16]float64{
		-1, 0, 0, 0,
		0, -1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	if pose.RenderMatrix != want {
		t.Errorf("render matrix mismatch:\n got %v\nwant %v", pose.RenderMatrix, want)
	}

	// Alignment is a pure rotation about the vertical axis through the
	// origin; the identity camera stays at the origin.
	if pose.Position != [3]float64{0, 0, 0} {
		t.Errorf("expected origin position, got %v", pose.Position)
	}
}

func TestTransformRotationRoundTrip(t *testing.T) {
	// 90 degree rotation about Y with a translation.
	c, s := math.Cos(math.Pi/2), math.Sin(math.Pi/2)
	extrinsic := [3][4]float64{
		{c, 0, s, 0.5},
		{0, 1, 0, -1.5},
		{-s, 0, c, 2.0},
	}

	pose, err := Transform(extrinsic, false)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	// Undo the axis conversion (it is its own inverse), rebuild camToWorld
	// from the column-major render matrix, and check it really inverts the
	// augmented extrinsic.
	var camToWorld [16]float64
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			camToWorld[row*4+col] = pose.RenderMatrix[col*4+row]
		}
	}
	camToWorld = multiply(camToWorld, axisConversion)

	aug := [16]float64{
		extrinsic[0][0], extrinsic[0][1], extrinsic[0][2], extrinsic[0][3],
		extrinsic[1][0], extrinsic[1][1], extrinsic[1][2], extrinsic[1][3],
		extrinsic[2][0], extrinsic[2][1], extrinsic[2][2], extrinsic[2][3],
		0, 0, 0, 1,
	}
	product := multiply(aug, camToWorld)

	for i := 0; i < 16; i++ {
		want := 0.0
		if i%5 == 0 {
			want = 1.0
		}
		if !almostEqual(product[i], want) {
			t.Errorf("product[%d]: expected %v, got %v", i, want, product[i])
		}
	}
}

func TestTransformSingular(t *testing.T) {
	// Zero third row: rank-deficient rotation, determinant 0.
	extrinsic := [3][4]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 0, 0},
	}

	pose, err := Transform(extrinsic, false)
	if !errors.Is(err, ErrSingular) {
		t.Fatalf("expected ErrSingular, got %v", err)
	}
	if pose != (Pose{}) {
		t.Errorf("expected zero pose on failure, got %+v", pose)
	}
}

func TestTransformNearSingular(t *testing.T) {
	// Uniform scale of 1e-4 per axis: det = 1e-12, below the 1e-10 tolerance.
	extrinsic := [3][4]float64{
		{1e-4, 0, 0, 0},
		{0, 1e-4, 0, 0},
		{0, 0, 1e-4, 0},
	}

	if _, err := Transform(extrinsic, false); !errors.Is(err, ErrSingular) {
		t.Errorf("expected ErrSingular for near-singular matrix, got %v", err)
	}
}

func TestInvertAgainstMultiply(t *testing.T) {
	m := [16]float64{
		0.36, 0.48, -0.8, 1,
		-0.8, 0.6, 0, -2,
		0.48, 0.64, 0.6, 3,
		0, 0, 0, 1,
	}
	inv, err := invert(m)
	if err != nil {
		t.Fatalf("invert failed: %v", err)
	}
	product := multiply(m, inv)
	for i := 0; i < 16; i++ {
		want := 0.0
		if i%5 == 0 {
			want = 1.0
		}
		if !almostEqual(product[i], want) {
			t.Errorf("product[%d]: expected %v, got %v", i, want, product[i])
		}
	}
}
