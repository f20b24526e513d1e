package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// PNGImage encodes a width x height PNG whose pixel colors come from fill.
func PNGImage(t testing.TB, width, height int, fill func(x, y int) color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill(x, y))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// SplitPNG returns an image whose left half is black and right half white, a
// handy input with a known fingerprint bit pattern.
func SplitPNG(t testing.TB, width, height int) []byte {
	t.Helper()
	return PNGImage(t, width, height, func(x, y int) color.Color {
		if x < width/2 {
			return color.Black
		}
		return color.White
	})
}
