package leads

import "errors"

var (
	// ErrMissingSession is returned when a submission has no session attached
	ErrMissingSession = errors.New("session id is required")

	// ErrInvalidEmail is returned when the email fails syntactic validation
	ErrInvalidEmail = errors.New("a valid email is required")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")
)
