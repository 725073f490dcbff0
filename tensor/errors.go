package tensor

import "fmt"

// ShapeError reports a tensor whose rank or dimensions do not satisfy an
// operation's layout requirement. Callers that need to distinguish layout
// problems from other failures match it with errors.As.
type ShapeError struct {
	Op   string // operation that rejected the tensor
	Got  []int  // offending shape
	Want string // expected layout
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: tensor shape %v, want %s", e.Op, e.Got, e.Want)
}
