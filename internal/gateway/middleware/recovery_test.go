package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hostpilot/internal/gateway/handlers"
)

func TestRecovery(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode int
	}{
		{
			name:     "passes through normal requests",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusAccepted) },
			wantCode: http.StatusAccepted,
		},
		{
			name:     "recovers from string panic",
			handler:  func(w http.ResponseWriter, r *http.Request) { panic("tool registry missing") },
			wantCode: http.StatusInternalServerError,
		},
		{
			name:     "recovers from error panic",
			handler:  func(w http.ResponseWriter, r *http.Request) { panic(errors.New("nil orchestrator")) },
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/commands", nil)
			w := httptest.NewRecorder()

			Recovery(tt.handler).ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusInternalServerError {
				return
			}

			var resp handlers.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal error: %v", err)
			}
			if resp.Error.Code != handlers.ErrCodeInternalError {
				t.Errorf("code = %s, want %s", resp.Error.Code, handlers.ErrCodeInternalError)
			}
		})
	}
}

func TestRecovery_AbortHandlerPropagates(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Error("ServeHTTP should have panicked")
}
