// Package httpserver contains the JSON API handlers and middleware.
//
// Handlers decode and validate requests, build profiles and delegate to the
// usecase services. Domain errors are mapped to status codes in one place.
package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	obsctx "github.com/fairyhunter13/talent-matcher/internal/adapter/observability"
)

const requestIDHeader = "X-Request-Id"

// Recoverer turns a handler panic into a 500 error envelope and logs the stack.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				LoggerFrom(r).Error("panic recovered",
					slog.Any("recover", rec),
					slog.String("stack", string(debug.Stack())))
				writeJSON(w, http.StatusInternalServerError, errorEnvelope{Error: apiError{
					Code: "INTERNAL", Message: http.StatusText(http.StatusInternalServerError),
				}})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID keeps a caller-supplied X-Request-Id when it is a usable token,
// otherwise mints a ULID. The id and a logger carrying it and the trace ids
// are stored in the request context.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if !ValidateProfileID(requestIDHeader, reqID).Valid {
				reqID = newReqID()
				r.Header.Set(requestIDHeader, reqID)
			}
			sc := trace.SpanContextFromContext(r.Context())
			logger := slog.Default().With(slog.String("request_id", reqID))
			if sc.IsValid() {
				logger = logger.With(
					slog.String("trace_id", sc.TraceID().String()),
					slog.String("span_id", sc.SpanID().String()),
				)
			}
			ctx := obsctx.ContextWithRequestID(obsctx.ContextWithLogger(r.Context(), logger), reqID)
			w.Header().Set(requestIDHeader, reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireJSON rejects requests whose Accept header excludes JSON.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a := r.Header.Get("Accept"); a != "" && !strings.Contains(a, "*/*") && !strings.Contains(a, "application/json") {
			writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]any{"accept": a},
			}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TimeoutMiddleware bounds handler time. Large recommendation pools are the
// usual reason to hit it, so the body says so.
func TimeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	body := fmt.Sprintf(`{"error":{"code":"TIMEOUT","message":"request exceeded %s","details":null}}`, d)
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, body)
	}
}

// SecurityHeaders sets the headers a JSON-only API needs. HSTS is left to the edge.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// LoggerFrom returns the request-scoped logger.
func LoggerFrom(r *http.Request) *slog.Logger { return obsctx.LoggerFromContext(r.Context()) }

func newReqID() string { return ulid.Make().String() }

// AccessLog writes one http_access line per request, at warn for 4xx and
// error for 5xx. Health and scrape endpoints log at debug.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			trace.SpanFromContext(r.Context()).SetName(r.Method + " " + route)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			LoggerFrom(r).LogAttrs(r.Context(), accessLevel(route, status), "http_access",
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration_ms", time.Since(start)),
			)
		})
	}
}

func accessLevel(route string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case route == "/healthz" || route == "/readyz" || route == "/metrics":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
