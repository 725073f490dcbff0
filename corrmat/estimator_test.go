package corrmat

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/tsawler/go-funcinfo/tensor"
)

// buildDataset makes an (N,3,H,W) tensor whose channel-0 planes are given
// per sample. Channels 1 and 2 repeat the plane; their content never enters
// the estimate.
func buildDataset(t *testing.T, planes [][]float32, h, w int) *tensor.Tensor {
	t.Helper()

	n := len(planes)
	data := make([]float32, 0, n*3*h*w)
	for _, plane := range planes {
		if len(plane) != h*w {
			t.Fatalf("plane has %d values, want %d", len(plane), h*w)
		}
		for c := 0; c < 3; c++ {
			data = append(data, plane...)
		}
	}

	ts, err := tensor.New([]int{n, 3, h, w}, data)
	if err != nil {
		t.Fatalf("tensor.New failed: %v", err)
	}
	return ts
}

func newTestEstimator(t *testing.T, config EstimatorConfig) *Estimator {
	t.Helper()
	estimator, err := NewEstimator(config, nil)
	if err != nil {
		t.Fatalf("NewEstimator failed: %v", err)
	}
	return estimator
}

func TestEstimateKnownCorrelation(t *testing.T) {
	// Feature 0 varies, feature 1 = 2*f0, feature 2 = -f0, feature 3 is
	// constant. Expected correlations: corr(0,1)=1, corr(0,2)=-1, and a
	// zeroed row/column for the constant feature.
	planes := [][]float32{
		{1, 2, -1, 5},
		{2, 4, -2, 5},
		{3, 6, -3, 5},
		{4, 8, -4, 5},
	}
	data := buildDataset(t, planes, 2, 2)
	labels := []int{0, 0, 0, 0}

	estimator := newTestEstimator(t, DefaultEstimatorConfig())
	matrices, err := estimator.Estimate(data, labels)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	corr, err := matrices.For(0)
	if err != nil {
		t.Fatalf("For(0) failed: %v", err)
	}
	if corr.SymmetricDim() != 4 {
		t.Fatalf("matrix order = %d, expected 4", corr.SymmetricDim())
	}

	const epsilon = 1e-5
	const tol = 1e-9
	checks := []struct {
		name     string
		i, j     int
		expected float64
	}{
		{"perfectly correlated pair", 0, 1, 1},
		{"perfectly anti-correlated pair", 0, 2, -1},
		{"constant feature off-diagonal", 0, 3, 0},
		{"varying feature diagonal", 0, 0, 1 + epsilon},
		{"constant feature diagonal", 3, 3, epsilon},
	}
	for _, check := range checks {
		t.Run(check.name, func(t *testing.T) {
			got := corr.At(check.i, check.j)
			if math.Abs(got-check.expected) > tol {
				t.Errorf("corr(%d,%d) = %g, expected %g", check.i, check.j, got, check.expected)
			}
		})
	}

	t.Run("symmetry", func(t *testing.T) {
		for i := 0; i < 4; i++ {
			for j := i + 1; j < 4; j++ {
				if corr.At(i, j) != corr.At(j, i) {
					t.Errorf("corr(%d,%d) != corr(%d,%d)", i, j, j, i)
				}
			}
		}
	})

	t.Run("positive definite", func(t *testing.T) {
		var chol mat.Cholesky
		if !chol.Factorize(corr) {
			t.Error("repaired matrix is not positive definite")
		}
	})
}

func TestEstimateSkipRule(t *testing.T) {
	planes := [][]float32{
		{1, 2, 3, 4},
		{4, 3, 2, 1},
		{2, 2, 5, 1},
		{9, 1, 1, 3},
	}
	data := buildDataset(t, planes, 2, 2)
	labels := []int{0, 1, 1, 1} // class 0 has one sample, class 1 has three

	estimator := newTestEstimator(t, DefaultEstimatorConfig())
	matrices, err := estimator.Estimate(data, labels)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	classes := matrices.Classes()
	if len(classes) != 1 || classes[0] != 1 {
		t.Errorf("Classes() = %v, expected [1]", classes)
	}

	if _, err := matrices.For(0); !errors.Is(err, ErrMissingClass) {
		t.Errorf("For(0) error = %v, expected ErrMissingClass", err)
	}
	if _, err := matrices.For(1); err != nil {
		t.Errorf("For(1) failed: %v", err)
	}
}

func TestEstimateRaisedMinSamples(t *testing.T) {
	planes := [][]float32{
		{1, 2, 3, 4},
		{4, 3, 2, 1},
		{2, 2, 5, 1},
		{9, 1, 1, 3},
		{3, 5, 2, 7},
	}
	data := buildDataset(t, planes, 2, 2)
	labels := []int{0, 0, 1, 1, 1} // class 0 has two samples, class 1 has three

	config := DefaultEstimatorConfig()
	config.MinSamples = 3

	estimator := newTestEstimator(t, config)
	matrices, err := estimator.Estimate(data, labels)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	classes := matrices.Classes()
	if len(classes) != 1 || classes[0] != 1 {
		t.Errorf("Classes() = %v, expected only class 1 to clear the raised minimum", classes)
	}
}

func TestEstimateEmptyMapping(t *testing.T) {
	planes := [][]float32{
		{1, 2, 3, 4},
		{4, 3, 2, 1},
	}
	data := buildDataset(t, planes, 2, 2)
	labels := []int{0, 1} // every class below the minimum sample count

	estimator := newTestEstimator(t, DefaultEstimatorConfig())
	matrices, err := estimator.Estimate(data, labels)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if matrices.Len() != 0 {
		t.Errorf("Len() = %d, expected empty mapping", matrices.Len())
	}
}

func TestEstimateSpecificClasses(t *testing.T) {
	planes := [][]float32{
		{1, 2, 3, 4},
		{2, 1, 4, 3},
		{4, 3, 2, 1},
		{3, 4, 1, 2},
	}
	data := buildDataset(t, planes, 2, 2)
	labels := []int{0, 0, 1, 1}

	config := DefaultEstimatorConfig()
	config.Classes = []int{1, 5} // class 5 has no samples and is skipped

	estimator := newTestEstimator(t, config)
	matrices, err := estimator.Estimate(data, labels)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	classes := matrices.Classes()
	if len(classes) != 1 || classes[0] != 1 {
		t.Errorf("Classes() = %v, expected [1]", classes)
	}
	if _, err := matrices.For(0); !errors.Is(err, ErrMissingClass) {
		t.Errorf("For(0) error = %v, expected ErrMissingClass", err)
	}
}

func TestEstimateShapeValidation(t *testing.T) {
	estimator := newTestEstimator(t, DefaultEstimatorConfig())

	t.Run("wrong rank", func(t *testing.T) {
		bad, err := tensor.Zeros([]int{4, 2, 2})
		if err != nil {
			t.Fatalf("Zeros failed: %v", err)
		}
		_, err = estimator.Estimate(bad, []int{0, 0, 1, 1})
		var shapeErr *tensor.ShapeError
		if !errors.As(err, &shapeErr) {
			t.Errorf("expected ShapeError, got %v", err)
		}
	})

	t.Run("too few channels", func(t *testing.T) {
		bad, err := tensor.Zeros([]int{4, 2, 2, 2})
		if err != nil {
			t.Fatalf("Zeros failed: %v", err)
		}
		_, err = estimator.Estimate(bad, []int{0, 0, 1, 1})
		var shapeErr *tensor.ShapeError
		if !errors.As(err, &shapeErr) {
			t.Errorf("expected ShapeError, got %v", err)
		}
	})

	t.Run("label count mismatch", func(t *testing.T) {
		data, err := tensor.Zeros([]int{4, 3, 2, 2})
		if err != nil {
			t.Fatalf("Zeros failed: %v", err)
		}
		if _, err := estimator.Estimate(data, []int{0, 1}); err == nil {
			t.Error("expected error for mismatched label count")
		}
	})
}

func TestEstimatorConfigValidation(t *testing.T) {
	tests := []struct {
		name       string
		epsilon    float64
		minSamples int
		wantErr    bool
	}{
		{"default config", 1e-5, 2, false},
		{"zero epsilon", 0, 2, true},
		{"negative epsilon", -1e-5, 2, true},
		{"raised minimum", 1e-5, 10, false},
		{"minimum below pearson floor", 1e-5, 1, true},
		{"zero minimum", 1e-5, 0, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := DefaultEstimatorConfig()
			config.Epsilon = test.epsilon
			config.MinSamples = test.minSamples
			_, err := NewEstimator(config, nil)
			if (err != nil) != test.wantErr {
				t.Errorf("NewEstimator error = %v, wantErr %v", err, test.wantErr)
			}
		})
	}
}
