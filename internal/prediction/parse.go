package prediction

import (
	"fmt"
	"os"
	"time"

	"github.com/reconlab/scene.report/internal/monitoring"
	"github.com/reconlab/scene.report/internal/npy"
	"github.com/reconlab/scene.report/internal/npz"
)

// ParseArchive runs the full decode pipeline over one in-memory predictions
// archive: unpack the container, decode every tensor member, assemble the
// record, summarize. Decoding is all-or-nothing: any member that fails to
// decode aborts the whole parse. Absence of optional members only clears the
// corresponding summary flags.
func ParseArchive(data []byte, alignY180 bool) (*Record, *Summary, error) {
	start := time.Now()

	entries, err := npz.Extract(data)
	if err != nil {
		return nil, nil, err
	}

	arrays := make(map[string]*npy.Array, len(entries))
	for name, raw := range entries {
		arr, err := npy.Decode(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("array %q: %w", name, err)
		}
		arrays[name] = arr
	}

	rec, err := Assemble(arrays)
	if err != nil {
		return nil, nil, err
	}

	summary, err := Summarize(rec, alignY180)
	if err != nil {
		return nil, nil, err
	}

	monitoring.Logf("parsed predictions archive: %d arrays, %d frames, depth=%v world_points=%v in %v",
		len(arrays), summary.FrameCount, summary.HasDepth, summary.HasWorldPoints, time.Since(start))

	return rec, summary, nil
}

// ParseArchiveFile is ParseArchive over an archive on disk.
func ParseArchiveFile(path string, alignY180 bool) (*Record, *Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read archive: %w", err)
	}
	return ParseArchive(data, alignY180)
}
