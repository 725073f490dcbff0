// Package visualize renders attribution maps as overlay images and as plot
// documents for the sidecar plotting service.
package visualize

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/tsawler/go-funcinfo/tensor"
)

// Overlay blends the grayscale form of the display image with a (H, W)
// saliency map. The map is min-max normalized to [0, 1] and mixed in with
// weight alpha: alpha 0 shows only the grayscale image, alpha 1 only the
// attribution strengths. A constant map renders as alpha-dimmed grayscale.
func Overlay(display *image.RGBA, saliency *tensor.Tensor, alpha float64) (*image.RGBA, error) {
	if display == nil {
		return nil, fmt.Errorf("visualize: nil display image")
	}
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("visualize: alpha %g outside [0, 1]", alpha)
	}
	if saliency == nil || len(saliency.Shape) != 2 {
		got := []int(nil)
		if saliency != nil {
			got = saliency.Shape
		}
		return nil, &tensor.ShapeError{Op: "visualize: overlay", Got: got, Want: "(H, W)"}
	}
	bounds := display.Bounds()
	height, width := saliency.Shape[0], saliency.Shape[1]
	if bounds.Dy() != height || bounds.Dx() != width {
		return nil, &tensor.ShapeError{
			Op:   "visualize: overlay",
			Got:  saliency.Shape,
			Want: fmt.Sprintf("(%d, %d) to match the display image", bounds.Dy(), bounds.Dx()),
		}
	}

	min, max := saliency.MinMax()
	scale := float64(max - min)
	if scale > 0 {
		scale = 1 / scale
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			norm := float64(saliency.Data[y*width+x]-min) * scale
			pixel := display.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
			gray := luma(pixel.R, pixel.G, pixel.B)
			blended := (1-alpha)*gray + alpha*norm*255
			v := clampByte(blended)
			out.Pix[out.PixOffset(x, y)+0] = v
			out.Pix[out.PixOffset(x, y)+1] = v
			out.Pix[out.PixOffset(x, y)+2] = v
			out.Pix[out.PixOffset(x, y)+3] = 0xff
		}
	}
	return out, nil
}

// SavePNG writes an image to disk as PNG.
func SavePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %v", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %v", err)
	}
	return nil
}

// luma converts RGB to perceptual brightness (Rec. 601 weights).
func luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
