// Package imagehash computes the 64-bit average-hash fingerprint used for
// duplicate-image detection. Matching is exact: identical input bytes always
// produce the same fingerprint, but two re-encodes of the same picture may
// not, and no fuzzy comparison is attempted.
package imagehash

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// gridSize is the downsample edge length; the fingerprint carries one bit
// per cell of the gridSize x gridSize grid.
const gridSize = 8

// Fingerprint derives the content fingerprint of an encoded image: decode,
// downsample to an 8x8 grid, compare each cell's luminance against the mean
// across the grid, and pack the resulting bits MSB-first in raster order
// into a 16-character lowercase hex string.
func Fingerprint(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	small := image.NewRGBA(image.Rect(0, 0, gridSize, gridSize))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Src, nil)

	var luminance [gridSize * gridSize]float64
	var sum float64
	for y := 0; y < gridSize; y++ {
		for x := 0; x < gridSize; x++ {
			r, g, b, _ := small.At(x, y).RGBA()
			// RGBA returns 16-bit channels; average the three and
			// normalize to [0,1].
			cell := (float64(r) + float64(g) + float64(b)) / 3.0 / 65535.0
			luminance[y*gridSize+x] = cell
			sum += cell
		}
	}
	mean := sum / float64(len(luminance))

	var bits uint64
	for i, cell := range luminance {
		if cell > mean {
			bits |= 1 << (63 - i)
		}
	}

	var packed [8]byte
	binary.BigEndian.PutUint64(packed[:], bits)
	return hex.EncodeToString(packed[:]), nil
}
