package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/orgthemes/internal/request"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = previous })
	return &buf
}

func TestWithRequestID(t *testing.T) {
	var seen string
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = request.ID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	header := rec.Header().Get(RequestIDHeader)
	if header == "" || header != seen {
		t.Fatalf("header %q does not match context id %q", header, seen)
	}
	if _, err := uuid.Parse(header); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", header, err)
	}
}

func TestWithLoggingRecordsStatusAndRequestID(t *testing.T) {
	buf := captureLogs(t)
	handler := ChainMiddleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
		WithLogging,
		WithRequestID,
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/themes/defaults", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Fatalf("status = %v, want 418", entry["status"])
	}
	if entry["request_id"] != rec.Header().Get(RequestIDHeader) {
		t.Fatalf("request_id = %v, want %s", entry["request_id"], rec.Header().Get(RequestIDHeader))
	}
	if entry["path"] != "/api/v1/themes/defaults" {
		t.Fatalf("path = %v", entry["path"])
	}
}

func TestWithLoggingDefaultsToOK(t *testing.T) {
	buf := captureLogs(t)
	handler := ChainMiddleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}),
		WithLogging,
		WithRequestID,
	)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(buf.String(), `"status":200`) {
		t.Fatalf("log line %q should record status 200", buf.String())
	}
}

func TestWithRecovery(t *testing.T) {
	captureLogs(t)
	handler := WithRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestWithContentType(t *testing.T) {
	var accept string
	handler := WithContentType(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if accept != "application/json" {
		t.Fatalf("Accept = %q, want application/json", accept)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "text/css")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if accept != "text/css" {
		t.Fatalf("explicit Accept overwritten: %q", accept)
	}
}
