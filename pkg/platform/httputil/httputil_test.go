package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	dErrors "verity/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})
}

func TestWriteError_StatusMapping(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeUnauthorized: http.StatusUnauthorized,
		dErrors.CodeForbidden:    http.StatusForbidden,
		dErrors.CodeNotFound:     http.StatusNotFound,
		dErrors.CodeInvalidInput: http.StatusBadRequest,
	}
	for code, want := range cases {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(code, "x"))
		if w.Code != want {
			t.Fatalf("code %s: expected status %d, got %d", code, want, w.Code)
		}
	}

	w := httptest.NewRecorder()
	WriteError(w, errors.New("plain"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("uncoded errors must map to 500, got %d", w.Code)
	}
}
