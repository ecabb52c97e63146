package problem

import "fmt"

// MalformedRecordError reports a record that cannot become a Problem.
type MalformedRecordError struct {
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed problem record: %s: %v", e.Reason, e.Err)
	}
	return "malformed problem record: " + e.Reason
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}
