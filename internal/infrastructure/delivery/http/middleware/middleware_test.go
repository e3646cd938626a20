package middleware_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"subgrab/internal/infrastructure/delivery/http/middleware"
	"subgrab/pkg/logger"

	"github.com/google/uuid"
)

func TestRecoverer(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantPanic  any
		wantStatus int
	}{
		{
			name: "no panic",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("ok"))
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "string panic",
			handler: func(_ http.ResponseWriter, _ *http.Request) {
				panic("test panic")
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "error panic",
			handler: func(_ http.ResponseWriter, _ *http.Request) {
				panic(errors.New("test error panic"))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "http.ErrAbortHandler re-panic",
			handler: func(_ http.ResponseWriter, _ *http.Request) {
				panic(http.ErrAbortHandler)
			},
			wantPanic: http.ErrAbortHandler,
		},
		{
			name: "panic after response started",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("ok"))
				panic("test panic")
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := middleware.Recoverer(logger.Discard())(tt.handler)
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			rec := httptest.NewRecorder()

			if tt.wantPanic != nil {
				defer func() {
					if recovered := recover(); recovered != tt.wantPanic {
						t.Errorf("got panic %v, want %v", recovered, tt.wantPanic)
					}
				}()
			}

			mw.ServeHTTP(rec, req)

			if got := rec.Result().StatusCode; got != tt.wantStatus {
				t.Errorf("got status %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer

	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "http://example.com/metrics?x=1", nil)
	req.RemoteAddr = "1.2.3.4:1234"

	rec := httptest.NewRecorder()
	middleware.RequestID(middleware.Logger(log)(next)).ServeHTTP(rec, req)

	var entry struct {
		Level     string                `json:"level"`
		Msg       string                `json:"msg"`
		RequestID string                `json:"request_id"`
		Request   middleware.RequestLog `json:"request"`
	}

	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to unmarshal log entry: %v", err)
	}

	if entry.Level != "DEBUG" || entry.Msg != "http request" {
		t.Errorf("got level %q msg %q", entry.Level, entry.Msg)
	}

	if entry.RequestID != rec.Header().Get(middleware.HeaderXRequestID) {
		t.Errorf("logged request id %q, header %q", entry.RequestID, rec.Header().Get(middleware.HeaderXRequestID))
	}

	want := middleware.RequestLog{
		Method:     http.MethodGet,
		URI:        "http://example.com/metrics?x=1",
		RemoteAddr: "1.2.3.4:1234",
		Status:     http.StatusTeapot,
	}

	entry.Request.Duration = 0
	if entry.Request != want {
		t.Errorf("got %+v, want %+v", entry.Request, want)
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name        string
		headerValue string
		validateID  func(string) bool
	}{
		{
			name:        "existing requestID",
			headerValue: "test-request-1234",
			validateID:  func(id string) bool { return id == "test-request-1234" },
		},
		{
			name:        "generated requestID",
			headerValue: "",
			validateID: func(id string) bool {
				_, err := uuid.Parse(id)

				return err == nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctxChecked := false

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reqID, ok := r.Context().Value(middleware.RequestIDKey).(string)
				if !ok || !tt.validateID(reqID) {
					t.Errorf("requestID in context is invalid: %q", reqID)
				}

				ctxChecked = true
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.headerValue != "" {
				req.Header.Set(middleware.HeaderXRequestID, tt.headerValue)
			}

			rec := httptest.NewRecorder()
			middleware.RequestID(next).ServeHTTP(rec, req)

			if !ctxChecked {
				t.Error("next handler was not called")
			}

			if resID := rec.Result().Header.Get(middleware.HeaderXRequestID); !tt.validateID(resID) {
				t.Errorf("X-Request-ID header is invalid: %q", resID)
			}
		})
	}
}
