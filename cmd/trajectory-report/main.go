// Command trajectory-report renders the camera trajectory of a predictions
// archive: an interactive HTML page, a top-down PNG plot, and optionally the
// frame thumbnails embedded in the archive.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/reconlab/scene.report/internal/prediction"
	"github.com/reconlab/scene.report/internal/preview"
	"github.com/reconlab/scene.report/internal/report"
)

func main() {
	outDir := flag.String("o", "report", "output directory")
	label := flag.String("label", "", "scene label for report titles (defaults to archive filename)")
	align := flag.Bool("align180", false, "apply 180-degree yaw alignment to camera poses")
	thumbs := flag.Bool("thumbs", false, "also write frame thumbnails")
	thumbDim := flag.Int("thumb-dim", 256, "thumbnail max dimension in pixels")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: %s [flags] predictions.npz", os.Args[0])
	}
	archive := flag.Arg(0)

	rec, sum, err := prediction.ParseArchiveFile(archive, *align)
	if err != nil {
		log.Fatalf("failed to parse %s: %v", archive, err)
	}
	if *label == "" {
		*label = filepath.Base(archive)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("failed to create %s: %v", *outDir, err)
	}

	htmlPath := filepath.Join(*outDir, "trajectory.html")
	f, err := os.Create(htmlPath)
	if err != nil {
		log.Fatalf("failed to create %s: %v", htmlPath, err)
	}
	if err := report.RenderTrajectoryHTML(f, sum, rec, *label); err != nil {
		log.Fatalf("failed to render trajectory page: %v", err)
	}
	f.Close()
	log.Printf("✓ Wrote %s", htmlPath)

	pngPath := filepath.Join(*outDir, "trajectory.png")
	if err := report.PlotTrajectoryPNG(pngPath, sum, *label); err != nil {
		log.Fatalf("failed to plot trajectory: %v", err)
	}
	log.Printf("✓ Wrote %s", pngPath)

	if *thumbs {
		dir := filepath.Join(*outDir, "thumbs")
		paths, err := preview.WritePNGs(dir, rec, *thumbDim)
		if err != nil {
			log.Fatalf("failed to write thumbnails: %v", err)
		}
		log.Printf("✓ Wrote %d thumbnails to %s", len(paths), dir)
	}
}
