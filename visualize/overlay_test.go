package visualize

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/tsawler/go-funcinfo/tensor"
)

func rampSaliency(t *testing.T) *tensor.Tensor {
	t.Helper()
	s, err := tensor.New([]int{2, 2}, []float32{0, 1, 2, 3})
	if err != nil {
		t.Fatalf("tensor.New failed: %v", err)
	}
	return s
}

func solidDisplay(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestOverlayAlphaExtremes(t *testing.T) {
	white := solidDisplay(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	saliency := rampSaliency(t)

	imageOnly, err := Overlay(white, saliency, 0)
	if err != nil {
		t.Fatalf("Overlay(alpha=0): %v", err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := imageOnly.RGBAAt(x, y).R; got != 255 {
				t.Errorf("alpha 0 pixel (%d,%d) = %d, want 255", x, y, got)
			}
		}
	}

	mapOnly, err := Overlay(white, saliency, 1)
	if err != nil {
		t.Fatalf("Overlay(alpha=1): %v", err)
	}
	want := map[[2]int]uint8{
		{0, 0}: 0, {1, 0}: 85,
		{0, 1}: 170, {1, 1}: 255,
	}
	for pos, wantV := range want {
		got := mapOnly.RGBAAt(pos[0], pos[1])
		if got.R != wantV || got.G != wantV || got.B != wantV {
			t.Errorf("alpha 1 pixel %v = %v, want gray %d", pos, got, wantV)
		}
	}
}

func TestOverlayBlend(t *testing.T) {
	black := solidDisplay(color.RGBA{A: 255})
	saliency := rampSaliency(t)

	blended, err := Overlay(black, saliency, 0.5)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	// Black image contributes nothing, so pixels are half the map strength.
	want := map[[2]int]uint8{
		{0, 0}: 0, {1, 0}: 43,
		{0, 1}: 85, {1, 1}: 128,
	}
	for pos, wantV := range want {
		if got := blended.RGBAAt(pos[0], pos[1]).R; got != wantV {
			t.Errorf("pixel %v = %d, want %d", pos, got, wantV)
		}
	}
}

func TestOverlayConstantMap(t *testing.T) {
	white := solidDisplay(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	flat, err := tensor.Full([]int{2, 2}, 4)
	if err != nil {
		t.Fatalf("tensor.Full failed: %v", err)
	}

	out, err := Overlay(white, flat, 0.5)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := out.RGBAAt(x, y).R; got != 128 {
				t.Errorf("pixel (%d,%d) = %d, want 128", x, y, got)
			}
		}
	}
}

func TestOverlayValidation(t *testing.T) {
	white := solidDisplay(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	saliency := rampSaliency(t)

	if _, err := Overlay(nil, saliency, 0.5); err == nil {
		t.Error("expected error for nil display")
	}
	if _, err := Overlay(white, saliency, -0.1); err == nil {
		t.Error("expected error for negative alpha")
	}
	if _, err := Overlay(white, saliency, 1.5); err == nil {
		t.Error("expected error for alpha > 1")
	}

	var shapeErr *tensor.ShapeError
	wide, err := tensor.Zeros([]int{2, 3})
	if err != nil {
		t.Fatalf("tensor.Zeros failed: %v", err)
	}
	if _, err := Overlay(white, wide, 0.5); !errors.As(err, &shapeErr) {
		t.Errorf("size mismatch error = %v, want ShapeError", err)
	}
	cube, err := tensor.Zeros([]int{1, 2, 2})
	if err != nil {
		t.Fatalf("tensor.Zeros failed: %v", err)
	}
	if _, err := Overlay(white, cube, 0.5); !errors.As(err, &shapeErr) {
		t.Errorf("rank mismatch error = %v, want ShapeError", err)
	}
}

func TestSavePNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")

	if err := SavePNG(path, solidDisplay(color.RGBA{B: 255, A: 255})); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open written file: %v", err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("decode written file: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Errorf("written image %dx%d, want 2x2", b.Dx(), b.Dy())
	}

	if err := SavePNG(filepath.Join(dir, "missing", "out.png"), solidDisplay(color.RGBA{})); err == nil {
		t.Error("expected error for unwritable path")
	}
}
