package models

import "errors"

// Domain specific errors shared by the verification pipeline.
var (
	ErrNotFound           = errors.New("requested item not found")
	ErrConflict           = errors.New("item already exists or conflict")
	ErrUnauthenticated    = errors.New("authentication required or invalid credentials")
	ErrValidation         = errors.New("validation failed")
	ErrRateLimitExceeded  = errors.New("daily scan limit exceeded")
	ErrOracleUnavailable  = errors.New("image recognition service unavailable")
	ErrOracleTimeout      = errors.New("image recognition service timed out")
	ErrOracleBusy         = errors.New("image recognition service busy")
	ErrOracleParse        = errors.New("image recognition response could not be parsed")
	ErrCatalogUnavailable = errors.New("attraction catalog unavailable")
)

// DomainError pairs an error kind with a message that can be shown to the end user as is.
type DomainError struct {
	Kind    error
	Message string
	Cause   error
}

func NewDomainError(kind error, message string, cause error) *DomainError {
	return &DomainError{Kind: kind, Message: message, Cause: cause}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return e.Kind.Error() + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *DomainError) Unwrap() error { return e.Kind }

// Is reports a match against either the kind or anything in the cause chain.
func (e *DomainError) Is(target error) bool {
	if errors.Is(e.Kind, target) {
		return true
	}
	return e.Cause != nil && errors.Is(e.Cause, target)
}

// UserMessage extracts the user facing message from err, falling back to def.
func UserMessage(err error, def string) string {
	var de *DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return def
}
