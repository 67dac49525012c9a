package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDMiddlewareEchoesCallerID(t *testing.T) {
	var seen string
	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := requestIDMiddleware(base)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "caller-supplied-id")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if seen != "caller-supplied-id" {
		t.Fatalf("context request id = %q, want caller-supplied-id", seen)
	}
	if got := res.Header().Get(requestIDHeader); got != "caller-supplied-id" {
		t.Fatalf("response header = %q, want caller-supplied-id", got)
	}
}

func TestRequestIDMiddlewareTruncatesOversizedHeader(t *testing.T) {
	base := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := requestIDMiddleware(base)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDLength+200))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	got := res.Header().Get(requestIDHeader)
	if len(got) != maxRequestIDLength {
		t.Fatalf("request id length = %d, want %d", len(got), maxRequestIDLength)
	}
}

func TestRequestIDMiddlewareGeneratesWhenMissing(t *testing.T) {
	base := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := requestIDMiddleware(base)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a generated request id")
	}
}
