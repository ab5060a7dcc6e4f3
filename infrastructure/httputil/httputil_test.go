package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusCreated, map[string]string{"ok": "yes"})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ok"] != "yes" {
		t.Fatalf("body[ok] = %q, want yes", body["ok"])
	}
}

func TestWriteErrorResponse_UsesRequestTraceID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", "trace-abc")
	rr := httptest.NewRecorder()

	WriteErrorResponse(rr, req, http.StatusBadRequest, "BAD_INPUT", "invalid roster id", map[string]any{"field": "id"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if got := rr.Header().Get("X-Trace-ID"); got != "trace-abc" {
		t.Fatalf("X-Trace-ID = %q, want trace-abc", got)
	}

	var body ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "BAD_INPUT" {
		t.Fatalf("code = %q, want BAD_INPUT", body.Code)
	}
	if body.TraceID != "trace-abc" {
		t.Fatalf("trace id = %q, want trace-abc", body.TraceID)
	}
}

func TestWriteErrorResponse_DefaultsCodeFromStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteErrorResponse(rr, nil, http.StatusInternalServerError, "", "boom", nil)

	var body ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "HTTP_500" {
		t.Fatalf("code = %q, want HTTP_500", body.Code)
	}
}
