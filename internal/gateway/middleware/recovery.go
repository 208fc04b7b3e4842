package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"hostpilot/internal/gateway/handlers"
	"hostpilot/pkg/logger"
)

// Recovery turns a handler panic into a JSON 500.
// http.ErrAbortHandler is re-raised for net/http to handle.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			log := logger.Component("gateway")
			log.Error().
				Interface("panic", rec).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("client_ip", getClientIP(r)).
				Bytes("stack", debug.Stack()).
				Msg("Handler panicked")

			handlers.SendError(w, http.StatusInternalServerError, handlers.ErrCodeInternalError, "internal server error")
		}()

		next.ServeHTTP(w, r)
	})
}
