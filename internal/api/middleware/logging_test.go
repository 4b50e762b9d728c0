package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerTagsConversationRoute(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest("GET", "/conversations/c42/messages?limit=5", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log entry not JSON: %v", err)
	}
	if entry["route"] != "/conversations/:id/messages" {
		t.Errorf("route %v, want /conversations/:id/messages", entry["route"])
	}
	if entry["path"] != "/conversations/c42/messages" {
		t.Errorf("path %v", entry["path"])
	}
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("status %v", entry["status"])
	}
	if entry["bytes"] != float64(2) {
		t.Errorf("bytes %v, want 2", entry["bytes"])
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/conversations/c1/messages": "/conversations/:id/messages",
		"/conversations/c1":          "/conversations/:id",
		"/health":                    "/health",
		"/metrics":                   "/metrics",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Errorf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}
