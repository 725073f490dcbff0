package interp

import (
	"fmt"

	"github.com/tsawler/go-funcinfo/tensor"
)

// GradientResult carries one collaborator call's outputs: input gradients
// aligned with the submitted batch, and the model's own predicted class and
// probability for every sample.
type GradientResult struct {
	Gradients       *tensor.Tensor
	PredictedLabels []int
	PredictedProbas []float32
}

// GradientModel is the gradient collaborator. The scalar quantity it
// differentiates (probability, logit or loss) is fixed when the model is
// constructed. Labels select the target class per sample; a nil slice lets
// the model target its own predicted class. Implementations must not
// retain the batch.
type GradientModel interface {
	InputGradients(batch *tensor.Tensor, labels []int) (*GradientResult, error)
}

func checkInput(op string, input *tensor.Tensor) error {
	if len(input.Shape) != 4 || input.Shape[0] != 1 {
		return &tensor.ShapeError{Op: op, Got: input.Shape, Want: "(1,3,H,W)"}
	}
	if input.Shape[1] != 3 {
		return &tensor.ShapeError{Op: op, Got: input.Shape, Want: "exactly 3 channels"}
	}
	return nil
}

// resolveTarget runs the collaborator once on the unperturbed input. The
// model's prediction is always recorded in the Result; it also becomes the
// target class when the caller passed AutoLabel.
func resolveTarget(model GradientModel, input *tensor.Tensor, label int) (resolved, predicted int, proba float32, err error) {
	probe, err := model.InputGradients(input, nil)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("resolve target label: %w", err)
	}
	if len(probe.PredictedLabels) != 1 || len(probe.PredictedProbas) != 1 {
		return 0, 0, 0, fmt.Errorf("interp: gradient model returned %d predictions for a single input",
			len(probe.PredictedLabels))
	}

	resolved = label
	if resolved == AutoLabel {
		resolved = probe.PredictedLabels[0]
	}
	return resolved, probe.PredictedLabels[0], probe.PredictedProbas[0], nil
}

func checkGradients(result *GradientResult, batch *tensor.Tensor) error {
	if result == nil || result.Gradients == nil {
		return fmt.Errorf("interp: gradient model returned no gradients")
	}
	if len(result.Gradients.Shape) != len(batch.Shape) {
		return fmt.Errorf("interp: gradient shape %v does not match batch shape %v",
			result.Gradients.Shape, batch.Shape)
	}
	for i, dim := range batch.Shape {
		if result.Gradients.Shape[i] != dim {
			return fmt.Errorf("interp: gradient shape %v does not match batch shape %v",
				result.Gradients.Shape, batch.Shape)
		}
	}
	return nil
}
