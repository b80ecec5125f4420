// Package npz unpacks the zip-style predictions archive produced by the
// remote reconstruction job into named raw tensor buffers.
package npz

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/reconlab/scene.report/internal/npy"
)

// Suffix marks archive members that hold one tensor each. The member name
// with the suffix stripped is the logical array name.
const Suffix = ".npy"

// Extract unpacks every tensor member of the archive into raw decompressed
// bytes, keyed by logical array name. Stored and deflated members are both
// handled by archive/zip. Members without the tensor suffix are skipped.
// A missing zip signature or a member that fails to inflate wraps
// npy.ErrFormat; Extract has no side effects on the input buffer.
func Extract(data []byte) (map[string][]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a valid archive: %v", npy.ErrFormat, err)
	}

	entries := make(map[string][]byte)
	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, Suffix) {
			continue
		}
		name := strings.TrimSuffix(f.Name, Suffix)

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: cannot open member %q: %v", npy.ErrFormat, f.Name, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: cannot decompress member %q: %v", npy.ErrFormat, f.Name, err)
		}
		entries[name] = raw
	}

	return entries, nil
}

// ExtractFile reads an archive from disk and extracts it.
func ExtractFile(path string) (map[string][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return Extract(data)
}
