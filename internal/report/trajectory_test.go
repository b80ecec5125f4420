package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconlab/scene.report/internal/nptest"
	"github.com/reconlab/scene.report/internal/prediction"
)

func parsedFixture(t *testing.T, frames int, extra map[string][]byte) (*prediction.Record, *prediction.Summary) {
	t.Helper()
	data := nptest.CameraArchive(t, frames, extra)
	rec, sum, err := prediction.ParseArchive(data, false)
	require.NoError(t, err)
	return rec, sum
}

func TestRenderTrajectoryHTML(t *testing.T) {
	rec, sum := parsedFixture(t, 4, nil)

	var buf bytes.Buffer
	err := RenderTrajectoryHTML(&buf, sum, rec, "test-run")
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "Camera Trajectory: test-run")
}

func TestPlotTrajectoryPNG(t *testing.T) {
	_, sum := parsedFixture(t, 5, nil)

	path := filepath.Join(t.TempDir(), "trajectory.png")
	require.NoError(t, PlotTrajectoryPNG(path, sum, "test-run"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestConfidenceStats(t *testing.T) {
	conf := nptest.NPYFloat32(t, []int{2, 2}, []float32{0.1, 0.2, 0.3, 0.4})
	rec, _ := parsedFixture(t, 2, map[string][]byte{"depth_conf.npy": conf})

	stats, ok := ConfidenceStats(rec)
	require.True(t, ok)
	assert.Equal(t, 4, stats.Count)
	assert.InDelta(t, 0.25, stats.Mean, 1e-6)
	assert.True(t, stats.P50 >= 0.1 && stats.P50 <= 0.4)
	assert.True(t, stats.P90 >= stats.P50)
}

func TestConfidenceStatsAbsent(t *testing.T) {
	rec, _ := parsedFixture(t, 1, nil)

	_, ok := ConfidenceStats(rec)
	assert.False(t, ok)
}

func TestRenderTrajectoryHTMLIncludesConfStats(t *testing.T) {
	conf := nptest.NPYFloat32(t, []int{4}, []float32{1, 1, 1, 1})
	rec, sum := parsedFixture(t, 2, map[string][]byte{"conf.npy": conf})

	var buf bytes.Buffer
	require.NoError(t, RenderTrajectoryHTML(&buf, sum, rec, "conf-run"))
	assert.True(t, strings.Contains(buf.String(), "conf mean"))
}
