package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyQuery is returned in strict mode when a query yields no
	// weighted features (no valid n-grams, or every bucket's IDF clamps
	// to zero and is pruned).
	ErrEmptyQuery = errors.New("query has no indexable features")

	// ErrUnknownDocument is returned when a document identifier is not
	// present in the loaded index.
	ErrUnknownDocument = errors.New("document not in index")

	// ErrIndexLoad is returned when the persisted index bundle is
	// malformed or internally inconsistent. Fatal at startup.
	ErrIndexLoad = errors.New("index load failed")

	// ErrUnsupportedConcurrency is returned when a batch requests more
	// than one worker with a tokenizer that is not reentrant.
	ErrUnsupportedConcurrency = errors.New("tokenizer is not safe for concurrent use")

	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrUnknownDocument):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyQuery):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedConcurrency):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns a stable machine-readable label for the error's taxonomy
// kind, used in RPC replies and metrics labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyQuery):
		return "empty_query"
	case errors.Is(err, ErrUnknownDocument):
		return "unknown_document"
	case errors.Is(err, ErrIndexLoad):
		return "index_load"
	case errors.Is(err, ErrUnsupportedConcurrency):
		return "unsupported_concurrency"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}

// FromKind maps a Kind label back to its sentinel so errors.Is works on
// errors reconstructed from the wire. Unknown labels map to ErrInternal.
func FromKind(kind string) error {
	switch kind {
	case "empty_query":
		return ErrEmptyQuery
	case "unknown_document":
		return ErrUnknownDocument
	case "index_load":
		return ErrIndexLoad
	case "unsupported_concurrency":
		return ErrUnsupportedConcurrency
	case "invalid_input":
		return ErrInvalidInput
	default:
		return ErrInternal
	}
}
