package interp

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/tsawler/go-funcinfo/tensor"
)

// noiseSampler draws zero-mean multivariate-normal fields over the H·W
// spatial grid, with covariance = noise amount × class correlation matrix.
type noiseSampler struct {
	dist *distmv.Normal
	dim  int
}

func newNoiseSampler(corr *mat.SymDense, noiseAmount float64, src rand.Source) (*noiseSampler, error) {
	dim := corr.SymmetricDim()

	var cov mat.SymDense
	cov.ScaleSym(noiseAmount, corr)

	dist, ok := distmv.NewNormal(make([]float64, dim), &cov, src)
	if !ok {
		return nil, fmt.Errorf("%w (order %d)", ErrNotPositiveDefinite, dim)
	}
	return &noiseSampler{dist: dist, dim: dim}, nil
}

func (s *noiseSampler) field(dst []float64) {
	s.dist.Rand(dst)
}

// correlatedCopies tiles the single input n times and adds one freshly
// drawn spatial field per copy. Each field is reshaped to (H,W) and added
// identically to every channel: the noise is spatially correlated but
// channel-uniform, sharing one color channel's correlation structure across
// all channels rather than modeling them separately.
func correlatedCopies(input *tensor.Tensor, sampler *noiseSampler, n int) (*tensor.Tensor, error) {
	noised, err := input.Repeat(n)
	if err != nil {
		return nil, err
	}

	channels := input.Channels()
	plane := input.Height() * input.Width()
	if sampler.dim != plane {
		return nil, &tensor.ShapeError{
			Op:   "correlatedCopies",
			Got:  input.Shape,
			Want: fmt.Sprintf("spatial grid of %d pixels", sampler.dim),
		}
	}

	field := make([]float64, plane)
	for i := 0; i < n; i++ {
		sampler.field(field)
		base := i * noised.Strides[0]
		for ch := 0; ch < channels; ch++ {
			offset := base + ch*plane
			for j := 0; j < plane; j++ {
				noised.Data[offset+j] += float32(field[j])
			}
		}
	}
	return noised, nil
}

// independentCopies tiles the input n times and adds i.i.d. Gaussian noise
// to every element, the uncorrelated baseline used by SmoothGrad.
func independentCopies(input *tensor.Tensor, std float64, src rand.Source, n int) (*tensor.Tensor, error) {
	noised, err := input.Repeat(n)
	if err != nil {
		return nil, err
	}

	rng := rand.New(src)
	stride := input.Strides[0]
	for i := 0; i < n; i++ {
		base := i * stride
		for j := 0; j < stride; j++ {
			noised.Data[base+j] += float32(rng.NormFloat64() * std)
		}
	}
	return noised, nil
}
