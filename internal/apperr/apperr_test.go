package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", InvalidField("name"), KindValidation},
		{"not found", NotFound("Group", "g1"), KindNotFound},
		{"sentinel", ErrGroupClosed, KindAuthorization},
		{"wrapped sentinel", fmt.Errorf("join: %w", ErrAlreadyInGroup), KindAuthorization},
		{"internal", Internal("CreateGroup", errors.New("db down")), KindInternal},
		{"plain error", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClientMessageHidesInternalDetail(t *testing.T) {
	err := Internal("CreateOrder", errors.New("pq: relation \"orders\" does not exist"))
	if got := ClientMessage(err); got != InternalMessage {
		t.Errorf("ClientMessage() = %q, want generic message", got)
	}
	if got := ClientMessage(errors.New("raw")); got != InternalMessage {
		t.Errorf("ClientMessage(plain) = %q, want generic message", got)
	}
	if got := ClientMessage(ErrIncorrectGroupPassword); got != ErrIncorrectGroupPassword.Message {
		t.Errorf("ClientMessage(sentinel) = %q", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	notFound := NotFound("Order", "o1")

	if got := HTTPStatus(notFound); got != http.StatusBadRequest {
		t.Errorf("HTTPStatus(not found) = %d, want 400", got)
	}
	if got := ReadHTTPStatus(notFound); got != http.StatusNotFound {
		t.Errorf("ReadHTTPStatus(not found) = %d, want 404", got)
	}
	if got := HTTPStatus(ErrGroupClosed); got != http.StatusBadRequest {
		t.Errorf("HTTPStatus(closed) = %d, want 400", got)
	}
	if got := HTTPStatus(errors.New("x")); got != http.StatusInternalServerError {
		t.Errorf("HTTPStatus(plain) = %d, want 500", got)
	}
}

func TestErrorString(t *testing.T) {
	err := Internal("GetGroup", errors.New("timeout"))
	want := "GetGroup: " + InternalMessage + ": timeout"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, err.Err) {
		t.Error("expected Unwrap to expose the cause")
	}
}
