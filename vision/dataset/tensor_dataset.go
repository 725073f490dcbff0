package dataset

import (
	"fmt"

	"github.com/tsawler/go-funcinfo/tensor"
)

// TensorDataset is an in-memory dataset for samples that are already
// tensor-shaped, with the same labeling contract as ImageFolderDataset.
type TensorDataset struct {
	data   *tensor.Tensor // (N, C, H, W)
	labels []int
}

// NewTensorDataset wraps a stacked sample tensor and its per-sample labels.
func NewTensorDataset(data *tensor.Tensor, labels []int) (*TensorDataset, error) {
	if data == nil || len(data.Shape) != 4 {
		got := []int(nil)
		if data != nil {
			got = data.Shape
		}
		return nil, &tensor.ShapeError{Op: "dataset: tensor dataset", Got: got, Want: "rank-4 (N, C, H, W)"}
	}
	if len(labels) != data.Batch() {
		return nil, fmt.Errorf("dataset: %d labels for %d samples", len(labels), data.Batch())
	}
	return &TensorDataset{
		data:   data,
		labels: append([]int(nil), labels...),
	}, nil
}

// Len returns the number of samples.
func (d *TensorDataset) Len() int {
	return d.data.Batch()
}

// Data returns the stacked (N, C, H, W) sample tensor.
func (d *TensorDataset) Data() *tensor.Tensor {
	return d.data
}

// Labels returns a copy of the per-sample class indices.
func (d *TensorDataset) Labels() []int {
	return append([]int(nil), d.labels...)
}

// GetItem returns sample index as a single-sample (1, C, H, W) tensor copy
// with its label.
func (d *TensorDataset) GetItem(index int) (*tensor.Tensor, int, error) {
	if index < 0 || index >= d.Len() {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", index, d.Len())
	}
	sample, err := d.data.SliceBatch(index, index+1)
	if err != nil {
		return nil, 0, err
	}
	return sample, d.labels[index], nil
}
