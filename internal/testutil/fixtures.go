package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// PNG returns an opaque w×h PNG filled with c.
func PNG(tb testing.TB, w, h int, c color.RGBA) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h, c)); err != nil {
		tb.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG returns a w×h baseline JPEG filled with c.
func JPEG(tb testing.TB, w, h int, c color.RGBA) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(w, h, c), &jpeg.Options{Quality: 80}); err != nil {
		tb.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes data to root/rel, creating parent directories.
func WriteFile(tb testing.TB, root, rel string, data []byte) string {
	tb.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("create dir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write %s: %v", rel, err)
	}
	return path
}

// MkSubject creates an empty subject directory under root.
func MkSubject(tb testing.TB, root, subject string) string {
	tb.Helper()
	dir := filepath.Join(root, subject)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		tb.Fatalf("create subject %s: %v", subject, err)
	}
	return dir
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
