package linear

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tsawler/go-funcinfo/interp"
	"github.com/tsawler/go-funcinfo/tensor"
)

// Model is a softmax classifier over flattened image tensors. It serves as a
// compact analytic gradient backend: input gradients for every GradientKind
// are computed in closed form instead of by automatic differentiation.
type Model struct {
	weights *mat.Dense // classes x features
	bias    []float64
	shape   []int // per-sample shape (C, H, W)
	kind    interp.GradientKind
}

var _ interp.GradientModel = (*Model)(nil)

// New builds a model from per-class weight rows. Each row must have one
// coefficient per element of the per-sample input shape. A nil bias is
// treated as all zeros. The gradient kind is fixed for the model's lifetime.
func New(weights [][]float32, bias []float32, shape []int, kind interp.GradientKind) (*Model, error) {
	if len(shape) != 3 {
		return nil, fmt.Errorf("linear: input shape must be (C, H, W), got %v", shape)
	}
	features := 1
	for _, dim := range shape {
		if dim <= 0 {
			return nil, fmt.Errorf("linear: input shape must be positive, got %v", shape)
		}
		features *= dim
	}
	classes := len(weights)
	if classes < 2 {
		return nil, fmt.Errorf("linear: need at least 2 classes, got %d", classes)
	}
	dense := mat.NewDense(classes, features, nil)
	for class, row := range weights {
		if len(row) != features {
			return nil, fmt.Errorf("linear: class %d has %d weights, want %d", class, len(row), features)
		}
		for j, w := range row {
			dense.Set(class, j, float64(w))
		}
	}
	b := make([]float64, classes)
	if bias != nil {
		if len(bias) != classes {
			return nil, fmt.Errorf("linear: %d bias terms for %d classes", len(bias), classes)
		}
		for i, v := range bias {
			b[i] = float64(v)
		}
	}
	return &Model{
		weights: dense,
		bias:    b,
		shape:   append([]int(nil), shape...),
		kind:    kind,
	}, nil
}

// Classes returns the number of output classes.
func (m *Model) Classes() int {
	rows, _ := m.weights.Dims()
	return rows
}

// InputShape returns the per-sample shape (C, H, W) the model accepts.
func (m *Model) InputShape() []int {
	return append([]int(nil), m.shape...)
}

// Kind returns the gradient kind the model was constructed with.
func (m *Model) Kind() interp.GradientKind {
	return m.kind
}

// InputGradients computes per-sample input gradients of the model's target
// scalar. With nil labels each sample targets its own predicted class;
// otherwise labels[i] selects the class for sample i.
func (m *Model) InputGradients(batch *tensor.Tensor, labels []int) (*interp.GradientResult, error) {
	if err := m.checkBatch(batch); err != nil {
		return nil, err
	}
	n := batch.Batch()
	if labels != nil && len(labels) != n {
		return nil, fmt.Errorf("linear: %d labels for batch of %d", len(labels), n)
	}
	classes := m.Classes()
	_, features := m.weights.Dims()

	grads, err := tensor.New(append([]int{n}, m.shape...), nil)
	if err != nil {
		return nil, err
	}
	result := &interp.GradientResult{
		Gradients:       grads,
		PredictedLabels: make([]int, n),
		PredictedProbas: make([]float32, n),
	}

	x := mat.NewVecDense(features, nil)
	probs := mat.NewVecDense(classes, nil)
	wAvg := mat.NewVecDense(features, nil)
	for i := 0; i < n; i++ {
		sample := batch.Data[i*features : (i+1)*features]
		for j, v := range sample {
			x.SetVec(j, float64(v))
		}
		probs.MulVec(m.weights, x)
		for c := 0; c < classes; c++ {
			probs.SetVec(c, probs.AtVec(c)+m.bias[c])
		}
		pred := softmaxInPlace(probs.RawVector().Data)
		result.PredictedLabels[i] = pred
		result.PredictedProbas[i] = float32(probs.AtVec(pred))

		target := pred
		if labels != nil {
			target = labels[i]
			if target < 0 || target >= classes {
				return nil, fmt.Errorf("linear: sample %d targets class %d, model has %d classes", i, target, classes)
			}
		}

		// Probability-weighted mean weight row, shared by two of the kinds.
		wAvg.MulVec(m.weights.T(), probs)
		row := m.weights.RawRowView(target)
		out := grads.Data[i*features : (i+1)*features]
		switch m.kind {
		case interp.GradientOfLogit:
			for j := range out {
				out[j] = float32(row[j])
			}
		case interp.GradientOfProbability:
			p := probs.AtVec(target)
			for j := range out {
				out[j] = float32(p * (row[j] - wAvg.AtVec(j)))
			}
		case interp.GradientOfLoss:
			for j := range out {
				out[j] = float32(wAvg.AtVec(j) - row[j])
			}
		default:
			return nil, fmt.Errorf("linear: unsupported gradient kind %d", m.kind)
		}
	}
	return result, nil
}

func (m *Model) checkBatch(batch *tensor.Tensor) error {
	if batch == nil || len(batch.Shape) != 4 {
		got := []int(nil)
		if batch != nil {
			got = batch.Shape
		}
		return &tensor.ShapeError{Op: "linear: input gradients", Got: got, Want: "rank-4 (N, C, H, W)"}
	}
	for i, dim := range m.shape {
		if batch.Shape[i+1] != dim {
			want := fmt.Sprintf("(N, %d, %d, %d)", m.shape[0], m.shape[1], m.shape[2])
			return &tensor.ShapeError{Op: "linear: input gradients", Got: batch.Shape, Want: want}
		}
	}
	return nil
}

// softmaxInPlace rewrites logits as probabilities and returns the argmax.
// The max-logit shift keeps the exponentials finite for large scores.
func softmaxInPlace(logits []float64) int {
	argmax := 0
	for c, v := range logits {
		if v > logits[argmax] {
			argmax = c
		}
	}
	max := logits[argmax]
	var sum float64
	for c, v := range logits {
		e := math.Exp(v - max)
		logits[c] = e
		sum += e
	}
	for c := range logits {
		logits[c] /= sum
	}
	return argmax
}
