package corrmat

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/tsawler/go-funcinfo/tensor"
)

// A Pearson correlation needs at least two observations per feature;
// classes below this are skipped rather than estimated.
const minClassSamples = 2

type EstimatorConfig struct {
	// Epsilon is added to the diagonal of every estimated matrix so the
	// result is strictly positive definite and usable as a sampling
	// covariance.
	Epsilon float64 `json:"epsilon"`
	// Classes restricts estimation to the listed labels. Nil estimates
	// every label observed in the reference set.
	Classes []int `json:"classes,omitempty"`
	// MinSamples is the smallest class size that still gets a matrix.
	// It can be raised above the Pearson floor of two to skip classes
	// whose estimates would be too noisy to sample from.
	MinSamples int `json:"min_samples"`
}

func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		Epsilon:    1e-5,
		MinSamples: minClassSamples,
	}
}

func validateEstimatorConfig(config *EstimatorConfig) error {
	if config.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %g", config.Epsilon)
	}
	if config.MinSamples < minClassSamples {
		return fmt.Errorf("minimum class size must be at least %d, got %d", minClassSamples, config.MinSamples)
	}
	return nil
}

// Estimator computes per-class Pearson correlation matrices over the
// channel-0 spatial grid of a labeled reference set. Each of the H·W pixel
// positions is one feature; correlation is estimated across the class's
// samples.
type Estimator struct {
	config EstimatorConfig
	logger *slog.Logger
}

func NewEstimator(config EstimatorConfig, logger *slog.Logger) (*Estimator, error) {
	if err := validateEstimatorConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid estimator config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{config: config, logger: logger}, nil
}

// Estimate builds one correlation matrix per class from data of shape
// (N,C,H,W) and its aligned labels. Only channel 0 of each sample enters
// the estimate; the noise later drawn from these matrices is broadcast to
// all channels. Classes with fewer than MinSamples samples produce no
// entry, so an input where no class qualifies yields an empty mapping,
// which is not an error.
func (e *Estimator) Estimate(data *tensor.Tensor, labels []int) (*ClassMatrices, error) {
	if len(data.Shape) != 4 {
		return nil, &tensor.ShapeError{Op: "Estimate", Got: data.Shape, Want: "(N,C,H,W)"}
	}
	if data.Channels() < 3 {
		return nil, &tensor.ShapeError{Op: "Estimate", Got: data.Shape, Want: "at least 3 channels"}
	}
	if len(labels) != data.Batch() {
		return nil, fmt.Errorf("corrmat: %d labels for %d samples", len(labels), data.Batch())
	}

	side := data.Height() * data.Width()
	matrices, err := NewClassMatrices(side)
	if err != nil {
		return nil, err
	}

	classes := uniqueLabels(labels)
	if e.config.Classes != nil {
		classes = uniqueLabels(e.config.Classes)
	}

	for _, class := range classes {
		rows := sampleIndices(labels, class)
		if len(rows) < e.config.MinSamples {
			e.logger.Debug("skipping class with too few samples",
				"class", class, "samples", len(rows))
			continue
		}

		corr := pearsonChannel0(data, rows, side)
		for i := 0; i < side; i++ {
			corr.SetSym(i, i, corr.At(i, i)+e.config.Epsilon)
		}
		if err := matrices.Put(class, corr); err != nil {
			return nil, err
		}
		e.logger.Debug("estimated correlation matrix",
			"class", class, "samples", len(rows), "order", side)
	}

	return matrices, nil
}

// pearsonChannel0 computes the Pearson correlation of the channel-0 pixel
// features across the given sample rows. Zero-variance features get a
// zeroed row and column instead of the NaNs a naive estimate would produce;
// the epsilon repair applied afterwards keeps the matrix positive definite.
func pearsonChannel0(data *tensor.Tensor, rows []int, side int) *mat.SymDense {
	n := len(rows)
	sampleStride := data.Strides[0] // channel 0 is the first side elements of each sample

	means := make([]float64, side)
	for _, r := range rows {
		base := r * sampleStride
		for j := 0; j < side; j++ {
			means[j] += float64(data.Data[base+j])
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}

	invStd := make([]float64, side)
	for j := 0; j < side; j++ {
		var ss float64
		for _, r := range rows {
			d := float64(data.Data[r*sampleStride+j]) - means[j]
			ss += d * d
		}
		if ss > 0 {
			invStd[j] = 1 / math.Sqrt(ss/float64(n-1))
		}
	}

	z := mat.NewDense(n, side, nil)
	for i, r := range rows {
		base := r * sampleStride
		for j := 0; j < side; j++ {
			z.Set(i, j, (float64(data.Data[base+j])-means[j])*invStd[j])
		}
	}

	var corr mat.SymDense
	corr.SymOuterK(1/float64(n-1), z.T())
	return &corr
}

func uniqueLabels(labels []int) []int {
	seen := make(map[int]struct{}, len(labels))
	unique := make([]int, 0, len(labels))
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		unique = append(unique, label)
	}
	sort.Ints(unique)
	return unique
}

func sampleIndices(labels []int, class int) []int {
	var rows []int
	for i, label := range labels {
		if label == class {
			rows = append(rows, i)
		}
	}
	return rows
}
