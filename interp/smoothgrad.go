package interp

import (
	"fmt"
	"log/slog"

	"github.com/tsawler/go-funcinfo/tensor"
)

// SmoothGrad is the uncorrelated baseline: instead of class-conditional
// correlated noise it perturbs every element independently with Gaussian
// noise whose standard deviation is NoiseAmount × (max − min) of the input.
// It shares the Interpreter's chunking and averaging pipeline, which makes
// the two directly comparable on the same model.
type SmoothGrad struct {
	model  GradientModel
	config Config
	logger *slog.Logger
}

func NewSmoothGrad(model GradientModel, config Config, logger *slog.Logger) (*SmoothGrad, error) {
	if model == nil {
		return nil, fmt.Errorf("interp: gradient model is required")
	}
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid smoothgrad config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SmoothGrad{model: model, config: config, logger: logger}, nil
}

// Interpret explains exactly one (1,3,H,W) input with respect to label, or
// to the model's predicted class when label is AutoLabel.
func (sg *SmoothGrad) Interpret(input *tensor.Tensor, label int) (*Result, error) {
	if err := checkInput("Interpret", input); err != nil {
		return nil, err
	}
	if label < 0 && label != AutoLabel {
		return nil, fmt.Errorf("interp: invalid target label %d", label)
	}

	resolved, predictedLabel, predictedProba, err := resolveTarget(sg.model, input, label)
	if err != nil {
		return nil, err
	}

	min, max := input.MinMax()
	std := sg.config.NoiseAmount * float64(max-min)
	noised, err := independentCopies(input, std, sg.config.noiseSource(), sg.config.NSamples)
	if err != nil {
		return nil, err
	}

	gradients, err := chunkedGradients(sg.model, noised, resolved, sg.config.Split, sg.config.Workers)
	if err != nil {
		return nil, err
	}
	explanation, err := gradients.MeanBatch()
	if err != nil {
		return nil, err
	}

	sg.logger.Debug("smoothgrad interpretation complete",
		"label", resolved, "predicted", predictedLabel,
		"samples", sg.config.NSamples, "std", std)

	return &Result{
		ResolvedLabel:  resolved,
		PredictedLabel: predictedLabel,
		PredictedProba: predictedProba,
		Explanation:    explanation,
	}, nil
}
