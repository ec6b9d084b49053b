package model

import "fmt"

// ParseError marks a record or response that is not well-formed. At the
// judgment boundary it degrades to a tie outcome; everywhere else it is a
// real error surfaced to the caller.
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Field, e.Reason)
}

// PreconditionError marks a missing input file or credential. The pipeline
// refuses to start; no stage executes.
type PreconditionError struct {
	What string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s", e.What)
}

// InvalidOutputError marks a model response that failed the content sanity
// check (e.g. the model claimed the input text was missing). Captured into
// the record's failure reason; does not abort the stage.
type InvalidOutputError struct {
	Reason string
}

func (e *InvalidOutputError) Error() string {
	return "invalid model output: " + e.Reason
}
