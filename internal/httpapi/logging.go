package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// requestLogger logs one line per request. Server errors are logged at
// error level, everything else at debug.
func requestLogger(lg zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			ev := lg.Debug()
			if code >= http.StatusInternalServerError {
				ev = lg.Error()
			}
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				ev = ev.Str("request_id", rid)
			}
			ev.Str("method", r.Method).Str("path", r.URL.Path).Int("status", code).Dur("dur", time.Since(start)).Msg("http request")
		})
	}
}
