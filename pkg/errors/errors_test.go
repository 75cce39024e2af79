package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("generate ch_001: %w", Wrap(stderrors.New("timeout"), CodeGenerationUnavailable, "generation unavailable"))

	if !Is(err, ErrGenerationUnavailable) {
		t.Fatalf("expected wrapped error to match ErrGenerationUnavailable")
	}
	if Is(err, ErrAlreadyGenerating) {
		t.Fatalf("unexpected match against ErrAlreadyGenerating")
	}
}

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	e := ErrInvalidParam.WithDetail("bad book id")
	if ErrInvalidParam.Detail != "" {
		t.Fatalf("sentinel mutated: %q", ErrInvalidParam.Detail)
	}
	if e.Detail != "bad book id" {
		t.Fatalf("detail = %q", e.Detail)
	}
}

func TestAsAppErrorHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", InvalidParam("x"), http.StatusBadRequest},
		{"book missing", fmt.Errorf("read: %w", ErrBookNotFound), http.StatusNotFound},
		{"in flight", ErrAlreadyGenerating, http.StatusConflict},
		{"unavailable", ErrGenerationUnavailable.WithError(stderrors.New("boom")), http.StatusServiceUnavailable},
		{"plain", stderrors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AsAppError(tt.err).HTTPStatus; got != tt.want {
				t.Fatalf("status = %d, want %d", got, tt.want)
			}
		})
	}
}
