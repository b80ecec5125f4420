// Package preview renders the optional per-frame images tensor into small
// PNG thumbnails for the run history panel.
package preview

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/reconlab/scene.report/internal/npy"
	"github.com/reconlab/scene.report/internal/prediction"
)

// Frames converts the images field ([S,3,H,W], channel-first, values 0..1
// for float dtypes or 0..255 for |u1) into one image per frame. Returns
// ok=false when the record has no images field.
func Frames(rec *prediction.Record) ([]image.Image, bool, error) {
	arr, present := rec.Fields[prediction.FieldImages]
	if !present {
		return nil, false, nil
	}
	if len(arr.Shape) != 4 || arr.Shape[1] != 3 {
		return nil, false, fmt.Errorf("images: expected shape [S 3 H W], got %v", arr.Shape)
	}

	frames, height, width := arr.Shape[0], arr.Shape[2], arr.Shape[3]
	plane := height * width

	out := make([]image.Image, frames)
	for s := 0; s < frames; s++ {
		img := image.NewNRGBA(image.Rect(0, 0, width, height))
		base := s * 3 * plane
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				idx := y*width + x
				r := channelByte(arr, base+idx)
				g := channelByte(arr, base+plane+idx)
				b := channelByte(arr, base+2*plane+idx)
				off := img.PixOffset(x, y)
				img.Pix[off+0] = r
				img.Pix[off+1] = g
				img.Pix[off+2] = b
				img.Pix[off+3] = 0xFF
			}
		}
		out[s] = img
	}
	return out, true, nil
}

// channelByte reads one channel sample and maps it to 0..255. Float dtypes
// are normalized 0..1 by the producer; uint8 passes through.
func channelByte(arr *npy.Array, i int) uint8 {
	if arr.DType == npy.Uint8 {
		return arr.Uint8s[i]
	}
	v := arr.Float64At(i)
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Thumbnail downscales an image so its longer side is at most maxDim,
// preserving aspect ratio. Images already within bounds are returned as-is.
func Thumbnail(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	if w >= h {
		h = h * maxDim / w
		w = maxDim
	} else {
		w = w * maxDim / h
		h = maxDim
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// WritePNGs renders thumbnails for every frame into dir as frame_<i>.png and
// returns the written paths. No-op (nil, nil) when the record has no images.
func WritePNGs(dir string, rec *prediction.Record, maxDim int) ([]string, error) {
	frames, ok, err := Frames(rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create thumbnail dir: %w", err)
	}

	paths := make([]string, 0, len(frames))
	for i, img := range frames {
		path := filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i))
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create thumbnail: %w", err)
		}
		err = png.Encode(f, Thumbnail(img, maxDim))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("encode thumbnail: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
