package capture

import (
	"image"
	"image/color"

	"github.com/actiontrace/capture/internal/screencap"
)

// diffThreshold is the minimum per-channel absolute difference that counts
// a pixel as changed, filtering out sensor/compression noise between two
// otherwise-identical frames.
const diffThreshold = 8

// screenshotDiff computes a full-resolution diff image (changed pixels carry
// the per-channel absolute difference, unchanged pixels stay zero) and a
// binary mask (white where changed) against prev. Returns nil, nil when
// either frame is nil, when no pixel changed, or when the two frames have
// different dimensions (e.g. a display resolution change mid-recording),
// since no pixel-aligned diff is meaningful there.
func screenshotDiff(prev, cur *image.RGBA) (diffPNG, maskPNG []byte, err error) {
	if prev == nil || cur == nil {
		return nil, nil, nil
	}
	b := cur.Bounds()
	if prev.Bounds() != b {
		return nil, nil, nil
	}

	diff := image.NewRGBA(b)
	mask := image.NewRGBA(b)
	changed := false

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			pi := prev.PixOffset(x, y)
			ci := cur.PixOffset(x, y)

			dr := absDiff(cur.Pix[ci], prev.Pix[pi])
			dg := absDiff(cur.Pix[ci+1], prev.Pix[pi+1])
			db := absDiff(cur.Pix[ci+2], prev.Pix[pi+2])

			if dr >= diffThreshold || dg >= diffThreshold || db >= diffThreshold {
				changed = true
				diff.SetRGBA(x, y, color.RGBA{R: dr, G: dg, B: db, A: 255})
				mask.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			} else {
				mask.SetRGBA(x, y, color.RGBA{A: 255})
			}
		}
	}

	if !changed {
		return nil, nil, nil
	}

	diffPNG, err = screencap.EncodePNG(diff)
	if err != nil {
		return nil, nil, err
	}
	maskPNG, err = screencap.EncodePNG(mask)
	if err != nil {
		return nil, nil, err
	}
	return diffPNG, maskPNG, nil
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
