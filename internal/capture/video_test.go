package capture

import (
	"image"
	"image/color"
	"testing"
)

func TestRgbaToBGRASwapsRedAndBlue(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 40})
	img.SetRGBA(1, 0, color.RGBA{R: 200, G: 150, B: 100, A: 255})

	out := rgbaToBGRA(img)
	if len(out) != len(img.Pix) {
		t.Fatalf("expected output length %d, got %d", len(img.Pix), len(out))
	}

	if out[0] != 30 || out[1] != 20 || out[2] != 10 || out[3] != 40 {
		t.Fatalf("pixel 0: expected BGRA (30,20,10,40), got (%d,%d,%d,%d)", out[0], out[1], out[2], out[3])
	}
	if out[4] != 100 || out[5] != 150 || out[6] != 200 || out[7] != 255 {
		t.Fatalf("pixel 1: expected BGRA (100,150,200,255), got (%d,%d,%d,%d)", out[4], out[5], out[6], out[7])
	}
}

func TestRgbaToBGRADoesNotMutateSource(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 4})

	rgbaToBGRA(img)

	if img.Pix[0] != 1 || img.Pix[2] != 3 {
		t.Fatal("expected source pixel buffer to remain untouched")
	}
}
