package npz

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/reconlab/scene.report/internal/npy"
)

// buildArchive zips the given members. Names are used verbatim so tests can
// mix tensor members with unrelated files.
func buildArchive(t *testing.T, members map[string][]byte, method uint16) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range members {
		hdr := &zip.FileHeader{Name: name, Method: method}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("create member %q: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write member %q: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

func TestExtractStoredAndDeflated(t *testing.T) {
	members := map[string][]byte{
		"extrinsic.npy": {1, 2, 3},
		"intrinsic.npy": {4, 5},
	}

	for _, method := range []uint16{zip.Store, zip.Deflate} {
		data := buildArchive(t, members, method)
		got, err := Extract(data)
		if err != nil {
			t.Fatalf("Extract (method %d) failed: %v", method, err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(got))
		}
		if !bytes.Equal(got["extrinsic"], []byte{1, 2, 3}) {
			t.Errorf("extrinsic bytes mismatch: %v", got["extrinsic"])
		}
		if !bytes.Equal(got["intrinsic"], []byte{4, 5}) {
			t.Errorf("intrinsic bytes mismatch: %v", got["intrinsic"])
		}
	}
}

func TestExtractSkipsNonTensorMembers(t *testing.T) {
	data := buildArchive(t, map[string][]byte{
		"depth.npy":  {9},
		"readme.txt": []byte("notes"),
	}, zip.Deflate)

	got, err := Extract(data)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected only the tensor member, got %v", got)
	}
	if _, ok := got["depth"]; !ok {
		t.Error("expected depth entry with suffix stripped")
	}
}

func TestExtractBadSignature(t *testing.T) {
	_, err := Extract([]byte("this is not a zip archive at all"))
	if !errors.Is(err, npy.ErrFormat) {
		t.Errorf("expected npy.ErrFormat, got %v", err)
	}
}

func TestExtractCorruptMember(t *testing.T) {
	data := buildArchive(t, map[string][]byte{"conf.npy": bytes.Repeat([]byte{7}, 256)}, zip.Deflate)

	// Mangle the deflated stream body. The local header for the single member
	// starts at 0; its compressed data begins after the 30-byte header plus
	// the name. Flip bytes in the middle of the stream.
	start := 30 + len("conf.npy")
	for i := start + 4; i < start+12; i++ {
		data[i] ^= 0xAA
	}

	if _, err := Extract(data); !errors.Is(err, npy.ErrFormat) {
		t.Errorf("expected npy.ErrFormat for corrupt member, got %v", err)
	}
}

func TestExtractFile(t *testing.T) {
	data := buildArchive(t, map[string][]byte{"vis.npy": {1}}, zip.Store)
	path := filepath.Join(t.TempDir(), "predictions.npz")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := ExtractFile(path)
	if err != nil {
		t.Fatalf("ExtractFile failed: %v", err)
	}
	if _, ok := got["vis"]; !ok {
		t.Errorf("expected vis entry, got %v", got)
	}

	if _, err := ExtractFile(filepath.Join(t.TempDir(), "missing.npz")); err == nil {
		t.Error("expected error for missing file")
	}
}
