package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/masmgr/commitrounds/internal/aggregation"
	"github.com/masmgr/commitrounds/internal/filelock"
	"github.com/masmgr/commitrounds/internal/worthiness"
)

// Round is one emitted accumulation of consecutive commits.
type Round struct {
	ID           uuid.UUID                  `json:"id" yaml:"id"`
	Number       int                        `json:"number" yaml:"number"`
	FirstIndex   int                        `json:"first_index" yaml:"first_index"`
	LastIndex    int                        `json:"last_index" yaml:"last_index"`
	State        worthiness.State           `json:"state" yaml:"state"`
	EndOfHistory bool                       `json:"end_of_history" yaml:"end_of_history"`
	Context      worthiness.Context         `json:"-" yaml:"-"`
	Verdict      worthiness.Verdict         `json:"verdict" yaml:"verdict"`
	Metrics      aggregation.ContextMetrics `json:"-" yaml:"-"`
}

// Hashes returns the commit hashes of the round, oldest first.
func (r Round) Hashes() []string {
	return r.Context.Hashes()
}

// Emitter receives each round exactly once.
type Emitter interface {
	Emit(ctx context.Context, r Round) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ctx context.Context, r Round) error

// Emit calls f.
func (f EmitterFunc) Emit(ctx context.Context, r Round) error {
	return f(ctx, r)
}

// Resources named by RoundError.
const (
	ResourceLock     = "lock"
	ResourceClone    = "clone"
	ResourceCheckout = worthiness.ResourceCheckout
	ResourceHistory  = worthiness.ResourceHistory
	ResourceEmit     = "emit"
)

// RoundError reports where a run stopped: the round being built, the commit
// being examined and the resource that failed.
type RoundError struct {
	Round    int
	Index    int
	Resource string
	Err      error
}

func (e *RoundError) Error() string {
	return fmt.Sprintf("round %d, commit %d: %s: %v", e.Round, e.Index, e.Resource, e.Err)
}

func (e *RoundError) Unwrap() error {
	return e.Err
}

func roundError(round, index int, resource string, err error) *RoundError {
	var se *worthiness.StepError
	if errors.As(err, &se) {
		resource = se.Resource
		index = se.Index
	}
	if errors.Is(err, filelock.ErrTimeout) {
		resource = ResourceLock
	}
	return &RoundError{Round: round, Index: index, Resource: resource, Err: err}
}
