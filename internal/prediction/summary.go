package prediction

import (
	"sync"

	"github.com/reconlab/scene.report/internal/camera"
)

// CameraFrame is one render-ready camera, index-aligned with the record's
// extrinsic/intrinsic sequences.
type CameraFrame struct {
	Index        int            `json:"index"`
	Extrinsic    [3][4]float64  `json:"extrinsic"`
	Intrinsic    [3][3]float64  `json:"intrinsic"`
	Position     [3]float64     `json:"position"`
	RenderMatrix [16]float64    `json:"renderMatrix"`
}

// Summary is the lightweight per-parse report handed to the viewer.
type Summary struct {
	FrameCount     int              `json:"frameCount"`
	HasDepth       bool             `json:"hasDepth"`
	HasWorldPoints bool             `json:"hasWorldPoints"`
	Cameras        []CameraFrame    `json:"cameras"`
	ShapeHints     map[string][]int `json:"shapeHints"`
}

// Summarize builds the Summary for a record. Per-frame camera transforms are
// independent, so they fan out across goroutines; cameras[i] always
// corresponds to extrinsic[i]/intrinsic[i]. The first transform failure
// aborts the whole summary.
//
// Shape hints are computed by walking nested sequence lengths along the first
// element of each axis, not from decoder metadata, so they reflect what a
// consumer of the nested structure will actually see.
func Summarize(rec *Record, alignY180 bool) (*Summary, error) {
	cameras := make([]CameraFrame, rec.FrameCount)
	errs := make([]error, rec.FrameCount)

	var wg sync.WaitGroup
	for i := 0; i < rec.FrameCount; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pose, err := camera.Transform(rec.Extrinsic[i], alignY180)
			if err != nil {
				errs[i] = err
				return
			}
			cameras[i] = CameraFrame{
				Index:        i,
				Extrinsic:    rec.Extrinsic[i],
				Intrinsic:    rec.Intrinsic[i],
				Position:     pose.Position,
				RenderMatrix: pose.RenderMatrix,
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	hints := make(map[string][]int)
	for _, name := range []string{FieldDepth, FieldWorldPoints, FieldImages} {
		if nested, ok := rec.Nested[name]; ok {
			hints[name] = nestedShape(nested)
		}
	}

	return &Summary{
		FrameCount:     rec.FrameCount,
		HasDepth:       rec.Has(FieldDepth),
		HasWorldPoints: rec.Has(FieldWorldPoints),
		Cameras:        cameras,
		ShapeHints:     hints,
	}, nil
}

// nestedShape walks a nested structure down its first elements, collecting
// sequence lengths per axis. Best-effort reporting only; it is not validated
// against the decoder's shape field.
func nestedShape(v any) []int {
	var shape []int
	for {
		switch vv := v.(type) {
		case []any:
			shape = append(shape, len(vv))
			if len(vv) == 0 {
				return shape
			}
			v = vv[0]
		case []float32:
			return append(shape, len(vv))
		case []float64:
			return append(shape, len(vv))
		case []int32:
			return append(shape, len(vv))
		case []uint8:
			return append(shape, len(vv))
		default:
			return shape
		}
	}
}
