package git

import (
	"errors"
	"fmt"
)

// ErrCommitIndexOutOfRange is returned when a 1-based commit index does not
// name a commit of the resolved history.
var ErrCommitIndexOutOfRange = errors.New("commit index out of range")

// IndexError reports the offending index together with the history length.
type IndexError struct {
	Index int
	Total int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("commit index %d out of range [1, %d]", e.Index, e.Total)
}

// Unwrap lets errors.Is match ErrCommitIndexOutOfRange.
func (e *IndexError) Unwrap() error {
	return ErrCommitIndexOutOfRange
}

// CheckIndex validates a 1-based index against a history of total commits.
func CheckIndex(index, total int) error {
	if index < 1 || index > total {
		return &IndexError{Index: index, Total: total}
	}
	return nil
}
