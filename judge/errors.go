package judge

import (
	"fmt"

	"github.com/CodeDeck/codedeck_backend/utils"
)

// HTTPError is a non-2xx answer from the judge service.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("judge returned HTTP %d: %s", e.StatusCode, utils.Prefix(e.Body, 200))
}

// UnavailableError means the judge could not be reached or answered with
// something that is not the expected JSON.
type UnavailableError struct {
	Cause error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("judge unavailable: %v", e.Cause)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}
