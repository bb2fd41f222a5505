package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestGetKind_FindsWrappedError(t *testing.T) {
	err := fmt.Errorf("confirm inquiry: %w", NotFound("inquiry not found"))

	if got := GetKind(err); got != KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", got)
	}
	if !Is(err, KindNotFound) {
		t.Fatalf("expected Is to match wrapped kind")
	}
}

func TestHTTPStatus_MapsKinds(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:     http.StatusNotFound,
		KindValidation:   http.StatusBadRequest,
		KindConflict:     http.StatusConflict,
		KindForbidden:    http.StatusForbidden,
		KindUnauthorized: http.StatusUnauthorized,
		KindInternal:     http.StatusInternalServerError,
		KindUnknown:      http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := New(kind, "x").HTTPStatus(); got != want {
			t.Fatalf("kind %v: expected %d, got %d", kind, want, got)
		}
	}
}

func TestError_IncludesCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Internal("send campaign").WithCause(cause)

	if got := err.Error(); got != "send campaign: connection reset" {
		t.Fatalf("unexpected message %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable with errors.Is")
	}
}
