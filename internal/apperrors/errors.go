package apperrors

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the adapters and the interview pipeline.
var (
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrSizeLimitExceeded    = errors.New("size limit exceeded")
	ErrTranscriptionFailed  = errors.New("failed to transcribe audio")
	ErrSynthesisFailed      = errors.New("failed to generate speech")
	ErrNoResponseGenerated  = errors.New("no response generated")
	ErrStorageFailed        = errors.New("storage operation failed")
	ErrInitializationFailed = errors.New("initialization failed")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrTurnInProgress       = errors.New("a turn is already being processed")
)

// Error ties an error kind to the operation that failed and its root cause.
type Error struct {
	Kind error
	Op   string // Operation that failed (e.g., "Transcribe")
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New returns an Error of the given kind with a formatted cause.
func New(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap returns an Error of the given kind around err. A nil err yields a bare kind error.
func Wrap(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the first known kind found in err's chain, or nil.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrUnsupportedFormat,
		ErrSizeLimitExceeded,
		ErrInvalidArgument,
		ErrDocumentNotFound,
		ErrTurnInProgress,
		ErrTranscriptionFailed,
		ErrSynthesisFailed,
		ErrNoResponseGenerated,
		ErrStorageFailed,
		ErrInitializationFailed,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
