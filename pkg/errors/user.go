package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error that can be shown to the user who caused it
type Kind int

const (
	// KindStatus means the command cannot run in the current state,
	// e.g. a guild command used in DMs or music commands outside voice.
	KindStatus Kind = iota
	KindValue
	KindType
	KindURLExtraction
	KindDownload
	KindPermission
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindValue:
		return "value"
	case KindType:
		return "type"
	case KindURLExtraction:
		return "url_extraction"
	case KindDownload:
		return "download"
	case KindPermission:
		return "permission"
	default:
		return "unknown"
	}
}

// UserError is an error whose message is safe to send back to the invoker.
// Key is an i18n key; Message is the English fallback used when no catalog
// has the key.
type UserError struct {
	Kind    Kind
	Key     string
	Args    []interface{}
	Message string
	cause   error
}

func (e *UserError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Key
}

// Unwrap returns the underlying cause, if any
func (e *UserError) Unwrap() error {
	return e.cause
}

// WithCause attaches the error that triggered this one
func (e *UserError) WithCause(err error) *UserError {
	e.cause = err
	return e
}

func newUserError(kind Kind, key, message string, args ...interface{}) *UserError {
	if len(args) > 0 && message != "" {
		message = fmt.Sprintf(message, args...)
	}
	return &UserError{Kind: kind, Key: key, Args: args, Message: message}
}

// NewStatusError builds a KindStatus error. message is a fmt format for args.
func NewStatusError(key, message string, args ...interface{}) *UserError {
	return newUserError(KindStatus, key, message, args...)
}

// NewValueError builds a KindValue error
func NewValueError(key, message string, args ...interface{}) *UserError {
	return newUserError(KindValue, key, message, args...)
}

// NewTypeError builds a KindType error
func NewTypeError(key, message string, args ...interface{}) *UserError {
	return newUserError(KindType, key, message, args...)
}

// NewURLExtractionError builds a KindURLExtraction error
func NewURLExtractionError(key, message string, args ...interface{}) *UserError {
	return newUserError(KindURLExtraction, key, message, args...)
}

// NewDownloadError builds a KindDownload error
func NewDownloadError(key, message string, args ...interface{}) *UserError {
	return newUserError(KindDownload, key, message, args...)
}

// NewPermissionError builds a KindPermission error
func NewPermissionError(key, message string, args ...interface{}) *UserError {
	return newUserError(KindPermission, key, message, args...)
}

// AsUserError returns the first UserError in err's chain
func AsUserError(err error) (*UserError, bool) {
	var ue *UserError
	if stderrors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// IsUserError reports whether err's chain contains a UserError
func IsUserError(err error) bool {
	_, ok := AsUserError(err)
	return ok
}

// IsKind reports whether err is a UserError of the given kind
func IsKind(err error, kind Kind) bool {
	ue, ok := AsUserError(err)
	return ok && ue.Kind == kind
}
