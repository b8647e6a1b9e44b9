package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrEmptyQuery, http.StatusUnprocessableEntity},
		{ErrUnknownDocument, http.StatusNotFound},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnsupportedConcurrency, http.StatusBadRequest},
		{ErrInternal, http.StatusInternalServerError},
		{fmt.Errorf("looking up %q: %w", "doc-9", ErrUnknownDocument), http.StatusNotFound},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatusCode(tt.err); got != tt.want {
			t.Errorf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	appErr := Newf(ErrEmptyQuery, http.StatusUnprocessableEntity, "query %q has no features", "the the")
	if !errors.Is(appErr, ErrEmptyQuery) {
		t.Error("AppError should unwrap to its sentinel")
	}
	if got := HTTPStatusCode(appErr); got != http.StatusUnprocessableEntity {
		t.Errorf("HTTPStatusCode = %d, want 422", got)
	}
}

func TestKindRoundTrip(t *testing.T) {
	sentinels := []error{
		ErrEmptyQuery,
		ErrUnknownDocument,
		ErrIndexLoad,
		ErrUnsupportedConcurrency,
		ErrInvalidInput,
		ErrInternal,
	}
	for _, sentinel := range sentinels {
		kind := Kind(fmt.Errorf("wrapped: %w", sentinel))
		back := FromKind(kind)
		if !errors.Is(back, sentinel) {
			t.Errorf("FromKind(Kind(%v)) = %v, not the original sentinel", sentinel, back)
		}
	}
	if Kind(nil) != "" {
		t.Errorf("Kind(nil) = %q, want empty", Kind(nil))
	}
	if !errors.Is(FromKind("no-such-kind"), ErrInternal) {
		t.Error("unknown kind should map to ErrInternal")
	}
}
