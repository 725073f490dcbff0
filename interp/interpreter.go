package interp

import (
	"fmt"
	"log/slog"

	"github.com/tsawler/go-funcinfo/corrmat"
	"github.com/tsawler/go-funcinfo/tensor"
)

// AutoLabel asks Interpret to target the model's own predicted class.
const AutoLabel = -1

// Result is the outcome of one interpretation. ResolvedLabel is the class
// the explanation targets. PredictedLabel and PredictedProba report the
// model's prediction for the unperturbed input, recorded whether or not the
// caller supplied a label.
type Result struct {
	ResolvedLabel  int
	PredictedLabel int
	PredictedProba float32
	Explanation    *tensor.Tensor // (1,C,H,W) mean gradient map
}

// Interpreter produces correlation-aware gradient attributions: it perturbs
// one input with noise drawn from the target class's feature correlation
// matrix, gathers the model's input gradients across the perturbed copies,
// and returns their mean as the explanation map.
type Interpreter struct {
	model    GradientModel
	matrices *corrmat.ClassMatrices
	config   Config
	logger   *slog.Logger
}

func New(model GradientModel, matrices *corrmat.ClassMatrices, config Config, logger *slog.Logger) (*Interpreter, error) {
	if model == nil {
		return nil, fmt.Errorf("interp: gradient model is required")
	}
	if matrices == nil {
		return nil, fmt.Errorf("interp: correlation matrices are required")
	}
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid interpreter config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{model: model, matrices: matrices, config: config, logger: logger}, nil
}

// Interpret explains exactly one (1,3,H,W) input with respect to label, or
// to the model's predicted class when label is AutoLabel. A label whose
// class was skipped during estimation fails with corrmat.ErrMissingClass;
// there is no identity-covariance fallback. Failures from the gradient
// collaborator propagate to the caller unchanged apart from chunk context;
// nothing is retried.
func (in *Interpreter) Interpret(input *tensor.Tensor, label int) (*Result, error) {
	if err := checkInput("Interpret", input); err != nil {
		return nil, err
	}
	if label < 0 && label != AutoLabel {
		return nil, fmt.Errorf("interp: invalid target label %d", label)
	}

	resolved, predictedLabel, predictedProba, err := resolveTarget(in.model, input, label)
	if err != nil {
		return nil, err
	}

	corr, err := in.matrices.For(resolved)
	if err != nil {
		return nil, err
	}
	if side := input.Height() * input.Width(); corr.SymmetricDim() != side {
		return nil, &tensor.ShapeError{
			Op:   "Interpret",
			Got:  input.Shape,
			Want: fmt.Sprintf("spatial grid of %d pixels to match the class %d matrix", corr.SymmetricDim(), resolved),
		}
	}

	sampler, err := newNoiseSampler(corr, in.config.NoiseAmount, in.config.noiseSource())
	if err != nil {
		return nil, err
	}
	noised, err := correlatedCopies(input, sampler, in.config.NSamples)
	if err != nil {
		return nil, err
	}

	gradients, err := chunkedGradients(in.model, noised, resolved, in.config.Split, in.config.Workers)
	if err != nil {
		return nil, err
	}

	// Concatenate first, average once: a running per-chunk average would
	// miscount when the last chunk is larger than the others.
	explanation, err := gradients.MeanBatch()
	if err != nil {
		return nil, err
	}

	in.logger.Debug("interpretation complete",
		"label", resolved, "predicted", predictedLabel,
		"samples", in.config.NSamples, "split", in.config.Split)

	return &Result{
		ResolvedLabel:  resolved,
		PredictedLabel: predictedLabel,
		PredictedProba: predictedProba,
		Explanation:    explanation,
	}, nil
}
