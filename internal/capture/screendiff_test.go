package capture

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestScreenshotDiffNilPrevYieldsNoOutput(t *testing.T) {
	cur := solidImage(4, 4, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	diff, mask, err := screenshotDiff(nil, cur)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff != nil || mask != nil {
		t.Fatal("expected nil prev to produce nil diff/mask")
	}
}

func TestScreenshotDiffIdenticalFramesYieldNoOutput(t *testing.T) {
	prev := solidImage(8, 8, color.RGBA{R: 10, G: 10, B: 10, A: 255})
	cur := solidImage(8, 8, color.RGBA{R: 10, G: 10, B: 10, A: 255})
	diff, mask, err := screenshotDiff(prev, cur)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff != nil || mask != nil {
		t.Fatal("expected identical frames to produce no diff/mask output")
	}
}

func TestScreenshotDiffMismatchedDimensionsYieldNoOutput(t *testing.T) {
	prev := solidImage(4, 4, color.RGBA{A: 255})
	cur := solidImage(8, 8, color.RGBA{A: 255})
	diff, mask, err := screenshotDiff(prev, cur)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff != nil || mask != nil {
		t.Fatal("expected resolution change to skip the pixel-aligned diff")
	}
}

func TestScreenshotDiffBelowThresholdIsIgnored(t *testing.T) {
	prev := solidImage(4, 4, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	cur := solidImage(4, 4, color.RGBA{R: 100 + diffThreshold - 1, G: 100, B: 100, A: 255})
	diff, mask, err := screenshotDiff(prev, cur)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff != nil || mask != nil {
		t.Fatal("expected a sub-threshold channel delta to count as unchanged")
	}
}

func TestScreenshotDiffChangedPixelProducesOutput(t *testing.T) {
	prev := solidImage(4, 4, color.RGBA{R: 0, G: 0, B: 0, A: 255})
	cur := solidImage(4, 4, color.RGBA{R: 0, G: 0, B: 0, A: 255})
	cur.SetRGBA(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	diff, mask, err := screenshotDiff(prev, cur)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff == nil || mask == nil {
		t.Fatal("expected a changed pixel to produce both diff and mask PNGs")
	}
}

func TestAbsDiff(t *testing.T) {
	cases := []struct{ a, b, want uint8 }{
		{10, 5, 5},
		{5, 10, 5},
		{0, 0, 0},
		{255, 0, 255},
	}
	for _, c := range cases {
		if got := absDiff(c.a, c.b); got != c.want {
			t.Fatalf("absDiff(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
