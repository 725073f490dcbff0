package tensor

import (
	"fmt"
	"math"
)

// SliceBatch copies samples [from, to) of the leading dimension into a new
// tensor.
func (t *Tensor) SliceBatch(from, to int) (*Tensor, error) {
	if len(t.Shape) < 2 {
		return nil, &ShapeError{Op: "SliceBatch", Got: t.Shape, Want: "rank >= 2"}
	}
	if from < 0 || to > t.Shape[0] || from >= to {
		return nil, fmt.Errorf("batch slice [%d:%d) out of range for %d samples", from, to, t.Shape[0])
	}

	stride := t.Strides[0]
	shape := append([]int(nil), t.Shape...)
	shape[0] = to - from

	data := make([]float32, (to-from)*stride)
	copy(data, t.Data[from*stride:to*stride])
	return New(shape, data)
}

// ConcatBatch stacks tensors along the leading dimension, preserving order.
// All parts must share the same trailing dimensions.
func ConcatBatch(parts ...*Tensor) (*Tensor, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("no tensors to concatenate")
	}

	first := parts[0]
	if len(first.Shape) < 2 {
		return nil, &ShapeError{Op: "ConcatBatch", Got: first.Shape, Want: "rank >= 2"}
	}

	total := 0
	for _, p := range parts {
		if len(p.Shape) != len(first.Shape) {
			return nil, &ShapeError{Op: "ConcatBatch", Got: p.Shape, Want: fmt.Sprintf("rank %d", len(first.Shape))}
		}
		for i := 1; i < len(first.Shape); i++ {
			if p.Shape[i] != first.Shape[i] {
				return nil, &ShapeError{Op: "ConcatBatch", Got: p.Shape, Want: fmt.Sprintf("trailing dimensions %v", first.Shape[1:])}
			}
		}
		total += p.Shape[0]
	}

	shape := append([]int(nil), first.Shape...)
	shape[0] = total

	data := make([]float32, 0, total*first.Strides[0])
	for _, p := range parts {
		data = append(data, p.Data...)
	}
	return New(shape, data)
}

// MeanBatch averages the leading dimension, producing a tensor with a batch
// of one. Accumulation runs in float64.
func (t *Tensor) MeanBatch() (*Tensor, error) {
	if len(t.Shape) < 2 {
		return nil, &ShapeError{Op: "MeanBatch", Got: t.Shape, Want: "rank >= 2"}
	}

	n := t.Shape[0]
	stride := t.Strides[0]
	sums := make([]float64, stride)
	for i := 0; i < n; i++ {
		base := i * stride
		for j := 0; j < stride; j++ {
			sums[j] += float64(t.Data[base+j])
		}
	}

	data := make([]float32, stride)
	for j, s := range sums {
		data[j] = float32(s / float64(n))
	}

	shape := append([]int(nil), t.Shape...)
	shape[0] = 1
	return New(shape, data)
}

// Repeat tiles a single-sample tensor n times along the leading dimension.
func (t *Tensor) Repeat(n int) (*Tensor, error) {
	if len(t.Shape) < 2 || t.Shape[0] != 1 {
		return nil, &ShapeError{Op: "Repeat", Got: t.Shape, Want: "leading dimension of 1"}
	}
	if n <= 0 {
		return nil, fmt.Errorf("repeat count must be positive, got %d", n)
	}

	stride := t.Strides[0]
	shape := append([]int(nil), t.Shape...)
	shape[0] = n

	data := make([]float32, n*stride)
	for i := 0; i < n; i++ {
		copy(data[i*stride:(i+1)*stride], t.Data)
	}
	return New(shape, data)
}

// AbsSumChannels collapses a (1,C,H,W) tensor into an (H,W) map by summing
// absolute values across channels.
func (t *Tensor) AbsSumChannels() (*Tensor, error) {
	if len(t.Shape) != 4 || t.Shape[0] != 1 {
		return nil, &ShapeError{Op: "AbsSumChannels", Got: t.Shape, Want: "(1,C,H,W)"}
	}

	c, h, w := t.Shape[1], t.Shape[2], t.Shape[3]
	plane := h * w
	data := make([]float32, plane)
	for ch := 0; ch < c; ch++ {
		base := ch * plane
		for j := 0; j < plane; j++ {
			data[j] += float32(math.Abs(float64(t.Data[base+j])))
		}
	}
	return New([]int{h, w}, data)
}
