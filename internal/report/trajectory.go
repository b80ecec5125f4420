// Package report renders camera-trajectory visualisations from a parsed
// prediction: an interactive ECharts HTML page and a static top-down PNG
// plot. Debugging aids for inspecting a reconstruction without the viewer.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/reconlab/scene.report/internal/prediction"
)

// ConfStats summarizes a confidence map for the report subtitle.
type ConfStats struct {
	Count int
	Mean  float64
	P50   float64
	P90   float64
}

// ConfidenceStats computes mean and percentiles over the first confidence
// field present in the record (depth_conf, then conf, then
// world_points_conf). Returns ok=false when none is present.
func ConfidenceStats(rec *prediction.Record) (ConfStats, bool) {
	var vals []float64
	for _, name := range []string{
		prediction.FieldDepthConf, prediction.FieldConf, prediction.FieldWorldPointsConf,
	} {
		arr, present := rec.Fields[name]
		if !present {
			continue
		}
		n := arr.Len()
		vals = make([]float64, 0, n)
		for i := 0; i < n; i++ {
			v := arr.Float64At(i)
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals = append(vals, v)
			}
		}
		break
	}
	if len(vals) == 0 {
		return ConfStats{}, false
	}

	sort.Float64s(vals)
	return ConfStats{
		Count: len(vals),
		Mean:  stat.Mean(vals, nil),
		P50:   stat.Quantile(0.5, stat.Empirical, vals, nil),
		P90:   stat.Quantile(0.9, stat.Empirical, vals, nil),
	}, true
}

// RenderTrajectoryHTML writes an interactive 3D scatter of camera positions.
func RenderTrajectoryHTML(w io.Writer, sum *prediction.Summary, rec *prediction.Record, label string) error {
	data := make([]opts.Chart3DData, 0, len(sum.Cameras))
	for _, cam := range sum.Cameras {
		data = append(data, opts.Chart3DData{
			Value: []interface{}{cam.Position[0], cam.Position[1], cam.Position[2], cam.Index},
		})
	}

	subtitle := fmt.Sprintf("frames=%d depth=%v world_points=%v", sum.FrameCount, sum.HasDepth, sum.HasWorldPoints)
	if stats, ok := ConfidenceStats(rec); ok {
		subtitle += fmt.Sprintf(" conf mean=%.3f p50=%.3f p90=%.3f (n=%d)", stats.Mean, stats.P50, stats.P90, stats.Count)
	}

	scatter := charts.NewScatter3D()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Camera Trajectory",
			Theme:     "dark",
			Width:     "900px",
			Height:    "900px",
		}),
		charts.WithTitleOpts(opts.Title{Title: "Camera Trajectory: " + label, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxIndex(sum)),
			Dimension:  "3",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#31688e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("cameras", data)

	return scatter.Render(w)
}

func maxIndex(sum *prediction.Summary) int {
	if sum.FrameCount == 0 {
		return 1
	}
	return sum.FrameCount - 1
}

// PlotTrajectoryPNG saves a top-down (X/Z plane) line-and-points plot of the
// camera path to path.
func PlotTrajectoryPNG(path string, sum *prediction.Summary, label string) error {
	p := plot.New()
	p.Title.Text = "Camera path (top-down): " + label
	p.X.Label.Text = "X (world)"
	p.Y.Label.Text = "Z (world)"

	pts := make(plotter.XYs, len(sum.Cameras))
	for i, cam := range sum.Cameras {
		pts[i].X = cam.Position[0]
		pts[i].Y = cam.Position[2]
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("build line plot: %w", err)
	}
	p.Add(line, points)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
