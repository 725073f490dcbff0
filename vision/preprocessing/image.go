package preprocessing

import (
	"fmt"
	"image"
	"math"
	"os"

	_ "image/jpeg"
	_ "image/png"

	"github.com/tsawler/go-funcinfo/tensor"
)

// Pair couples the displayable form of an image with its model input form.
// Input is always (1, 3, H, W) in CHW order with values in [0, 1].
type Pair struct {
	Display *image.RGBA
	Input   *tensor.Tensor
}

// LoadImage decodes a JPEG or PNG image from disk.
func LoadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %v", path, err)
	}
	return img, nil
}

// Transform resizes img so its shorter edge equals resizeTo (aspect ratio
// preserved, nearest-neighbor resampling), optionally center-crops to a
// cropTo square, and converts the result to a CHW tensor in [0, 1].
// resizeTo == 0 skips the resize and cropTo == 0 skips the crop.
func Transform(img image.Image, resizeTo, cropTo int) (*Pair, error) {
	if resizeTo < 0 || cropTo < 0 {
		return nil, fmt.Errorf("transform sizes must be non-negative, got resize %d crop %d", resizeTo, cropTo)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("cannot transform empty %dx%d image", b.Dx(), b.Dy())
	}
	rgba := resizeShorterEdge(img, resizeTo)
	if cropTo > 0 {
		var err error
		rgba, err = centerCrop(rgba, cropTo)
		if err != nil {
			return nil, err
		}
	}
	input, err := toTensor(rgba)
	if err != nil {
		return nil, err
	}
	return &Pair{Display: rgba, Input: input}, nil
}

// FromTensor wraps an already materialized input tensor in a Pair, rendering
// the display image from its channel values. The tensor is aliased, not
// copied.
func FromTensor(t *tensor.Tensor) (*Pair, error) {
	if t == nil || len(t.Shape) != 4 || t.Shape[0] != 1 || t.Shape[1] != 3 {
		got := []int(nil)
		if t != nil {
			got = t.Shape
		}
		return nil, &tensor.ShapeError{Op: "preprocessing: from tensor", Got: got, Want: "(1, 3, H, W)"}
	}
	height, width := t.Height(), t.Width()
	plane := height * width
	display := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			offset := display.PixOffset(x, y)
			display.Pix[offset+0] = clampByte(t.Data[0*plane+idx])
			display.Pix[offset+1] = clampByte(t.Data[1*plane+idx])
			display.Pix[offset+2] = clampByte(t.Data[2*plane+idx])
			display.Pix[offset+3] = 0xff
		}
	}
	return &Pair{Display: display, Input: t}, nil
}

// resizeShorterEdge scales img so its shorter edge equals target, keeping
// the aspect ratio. target == 0 copies the image unchanged.
func resizeShorterEdge(img image.Image, target int) *image.RGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	newWidth, newHeight := width, height
	if target > 0 {
		if width <= height {
			newWidth = target
			newHeight = int(math.Round(float64(height) * float64(target) / float64(width)))
		} else {
			newHeight = target
			newWidth = int(math.Round(float64(width) * float64(target) / float64(height)))
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	scaleX := float64(width) / float64(newWidth)
	scaleY := float64(height) / float64(newHeight)
	for y := 0; y < newHeight; y++ {
		for x := 0; x < newWidth; x++ {
			srcX := int(float64(x) * scaleX)
			srcY := int(float64(y) * scaleY)
			if srcX >= width {
				srcX = width - 1
			}
			if srcY >= height {
				srcY = height - 1
			}
			out.Set(x, y, img.At(bounds.Min.X+srcX, bounds.Min.Y+srcY))
		}
	}
	return out
}

// centerCrop extracts the central size x size square.
func centerCrop(img *image.RGBA, size int) (*image.RGBA, error) {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	if size > width || size > height {
		return nil, fmt.Errorf("crop size %d exceeds image %dx%d", size, width, height)
	}
	x0 := (width - size) / 2
	y0 := (height - size) / 2

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			out.Set(x, y, img.At(x0+x, y0+y))
		}
	}
	return out, nil
}

// toTensor converts an RGBA image to a (1, 3, H, W) tensor normalized
// to [0, 1].
func toTensor(img *image.RGBA) (*tensor.Tensor, error) {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	plane := height * width
	t, err := tensor.New([]int{1, 3, height, width}, nil)
	if err != nil {
		return nil, err
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			idx := y*width + x
			t.Data[0*plane+idx] = float32(r) / 65535.0
			t.Data[1*plane+idx] = float32(g) / 65535.0
			t.Data[2*plane+idx] = float32(b) / 65535.0
		}
	}
	return t, nil
}

func clampByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xff
	default:
		return uint8(v*255 + 0.5)
	}
}
