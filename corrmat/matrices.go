package corrmat

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ClassMatrices maps class labels to their feature correlation matrices.
// All matrices share the same order: the H·W pixel count of the spatial
// grid they were estimated on. Entries are published once and never
// mutated afterwards.
type ClassMatrices struct {
	side    int
	byClass map[int]*mat.SymDense
}

func NewClassMatrices(side int) (*ClassMatrices, error) {
	if side <= 0 {
		return nil, fmt.Errorf("corrmat: matrix order must be positive, got %d", side)
	}
	return &ClassMatrices{side: side, byClass: make(map[int]*mat.SymDense)}, nil
}

// Put registers the matrix for a class. It rejects a matrix whose order
// differs from the mapping's and refuses to overwrite a published entry.
func (m *ClassMatrices) Put(label int, corr *mat.SymDense) error {
	if n := corr.SymmetricDim(); n != m.side {
		return fmt.Errorf("corrmat: matrix for class %d has order %d, want %d", label, n, m.side)
	}
	if _, ok := m.byClass[label]; ok {
		return fmt.Errorf("corrmat: class %d already has a matrix", label)
	}
	m.byClass[label] = corr
	return nil
}

// For returns the correlation matrix for label. The error wraps
// ErrMissingClass when the class has no entry; callers must treat that as a
// hard failure, not a cue to substitute an identity matrix.
func (m *ClassMatrices) For(label int) (*mat.SymDense, error) {
	corr, ok := m.byClass[label]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrMissingClass, label)
	}
	return corr, nil
}

// Classes lists the labels that have matrices, in ascending order.
func (m *ClassMatrices) Classes() []int {
	labels := make([]int, 0, len(m.byClass))
	for label := range m.byClass {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	return labels
}

// Len reports how many classes have matrices.
func (m *ClassMatrices) Len() int { return len(m.byClass) }

// Side returns the shared matrix order.
func (m *ClassMatrices) Side() int { return m.side }
