package interp

import "errors"

// ErrNotPositiveDefinite reports a scaled covariance the sampler cannot
// factorize. Estimated matrices carry a diagonal repair that prevents this;
// seeing it usually means the store holds a matrix that was built or edited
// elsewhere.
var ErrNotPositiveDefinite = errors.New("interp: scaled covariance is not positive definite")
