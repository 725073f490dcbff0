package corrmat

import "errors"

var (
	// ErrMissingClass reports a lookup for a class that has no correlation
	// matrix, either because it was skipped during estimation (fewer
	// reference samples than the estimator's minimum) or because it was
	// never estimated.
	ErrMissingClass = errors.New("corrmat: no correlation matrix for class")

	// ErrCorruptStore reports a correlation store whose content cannot be
	// decoded, including truncated or partially written files.
	ErrCorruptStore = errors.New("corrmat: corrupt correlation store")
)
