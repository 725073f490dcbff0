package tensor

import "fmt"

// Tensor is a dense row-major float32 tensor on the CPU. Data is stored
// flat; Strides give the element offset between successive indices of each
// dimension.
type Tensor struct {
	Shape    []int
	Strides  []int
	Data     []float32
	NumElems int
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, elements=%d)", t.Shape, t.NumElems)
}

// Batch, Channels, Height and Width read the NCHW dimensions of a 4-D
// tensor. They panic on tensors of any other rank.
func (t *Tensor) Batch() int    { return t.dim(0) }
func (t *Tensor) Channels() int { return t.dim(1) }
func (t *Tensor) Height() int   { return t.dim(2) }
func (t *Tensor) Width() int    { return t.dim(3) }

func (t *Tensor) dim(i int) int {
	if len(t.Shape) != 4 {
		panic(fmt.Sprintf("tensor: NCHW accessor on rank-%d tensor", len(t.Shape)))
	}
	return t.Shape[i]
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float32, len(t.Data))
	copy(data, t.Data)
	return &Tensor{
		Shape:    append([]int(nil), t.Shape...),
		Strides:  append([]int(nil), t.Strides...),
		Data:     data,
		NumElems: t.NumElems,
	}
}

// MinMax returns the smallest and largest element. The tensor must hold at
// least one element.
func (t *Tensor) MinMax() (float32, float32) {
	min, max := t.Data[0], t.Data[0]
	for _, v := range t.Data[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

func calculateStrides(shape []int) []int {
	if len(shape) == 0 {
		return []int{}
	}
	strides := make([]int, len(shape))
	strides[len(shape)-1] = 1
	for i := len(shape) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * shape[i+1]
	}
	return strides
}

func calculateNumElements(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	total := 1
	for _, dim := range shape {
		total *= dim
	}
	return total
}

func validateShape(shape []int) error {
	for _, dim := range shape {
		if dim <= 0 {
			return fmt.Errorf("invalid shape dimension: %d", dim)
		}
	}
	return nil
}
