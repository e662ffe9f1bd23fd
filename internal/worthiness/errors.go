package worthiness

import (
	"errors"
	"fmt"

	"github.com/masmgr/commitrounds/internal/filelock"
)

// ErrJudgeUnavailable marks a judge failure. It only ever appears inside the
// reason of a fallback verdict; Step never returns it.
var ErrJudgeUnavailable = errors.New("judge unavailable")

// Resources named by StepError.
const (
	ResourceLock     = "lock"
	ResourceCheckout = "checkout"
	ResourceHistory  = "history"
)

// StepError reports which resource failed while stepping to a commit.
type StepError struct {
	Index    int
	Resource string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step to commit %d: %s: %v", e.Index, e.Resource, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepError(index int, resource string, err error) error {
	if errors.Is(err, filelock.ErrTimeout) {
		resource = ResourceLock
	}
	return &StepError{Index: index, Resource: resource, Err: err}
}
