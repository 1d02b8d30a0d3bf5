package stats

import (
	"errors"
	"fmt"

	"github.com/bhashahub/crowdsource/internal/models"
)

// ErrRetrieval marks a failure to read contributions from the store.
// It is never returned for a user who simply has no contributions.
var ErrRetrieval = errors.New("contribution retrieval failed")

// ErrInvalidUser is returned when ComputeStats is called without a user.
var ErrInvalidUser = errors.New("user id is required")

// RetrievalError reports which kind partition could not be read.
// It matches both ErrRetrieval and the underlying cause under errors.Is.
type RetrievalError struct {
	Kind models.ContributionKind
	Err  error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s: kind %s: %v", ErrRetrieval, e.Kind, e.Err)
}

func (e *RetrievalError) Unwrap() []error {
	return []error{ErrRetrieval, e.Err}
}
