package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/SigNoz/freshmart-storefront/internal/metrics"
	"github.com/SigNoz/freshmart-storefront/internal/notify"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SessionCookieName is the gorilla/sessions cookie holding the shopper id
	SessionCookieName = "freshmart_session"
	// SessionHeader lets API clients pick a session without cookies
	SessionHeader = "X-Session-ID"

	sessionValueID = "id"
)

type (
	ctxKeyLog       struct{}
	ctxKeyRequestID struct{}
	ctxKeySessionID struct{}
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// MetricsMiddleware records HTTP request metrics
func MetricsMiddleware(metrics *metrics.AppMetrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Milliseconds()

			ctx := r.Context()
			attrs := metrics.WithServiceName([]attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.route", routePattern(r)),
				attribute.Int("http.status_code", rw.statusCode),
			})

			metrics.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

			// Record error requests (4xx, 5xx)
			if rw.statusCode >= 400 {
				metrics.HTTPRequestsErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
			}

			metrics.HTTPRequestDuration.Record(ctx, float64(duration), metric.WithAttributes(attrs...))
		})
	}
}

func routePattern(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if pathTemplate, err := route.GetPathTemplate(); err == nil {
			return pathTemplate
		}
	}
	return "unknown"
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}

// RequestIDMiddleware adds a request ID to the context
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware stores a request scoped logger in the context and logs
// each completed request. It must run after RequestIDMiddleware.
func LoggingMiddleware(log logrus.FieldLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			reqLog := log.WithFields(logrus.Fields{
				"http.req.path":   r.URL.Path,
				"http.req.method": r.Method,
				"http.req.id":     RequestID(r.Context()),
			})
			ctx := context.WithValue(r.Context(), ctxKeyLog{}, logrus.FieldLogger(reqLog))

			defer func() {
				Logger(ctx).WithFields(logrus.Fields{
					"http.resp.took_ms": time.Since(start).Milliseconds(),
					"http.resp.status":  rw.statusCode,
					"http.resp.bytes":   rw.written,
				}).Debug("request complete")
			}()
			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}

// CORSMiddleware adds CORS headers
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, "+SessionHeader)
		w.Header().Set("Access-Control-Expose-Headers", SessionHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ErrorHandlerMiddleware turns panics into JSON 500 responses
func ErrorHandlerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				Logger(r.Context()).WithField("panic", err).Error("request panicked")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal server error","status_code":500}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// SessionMiddleware resolves the shopper session. A valid X-Session-ID header
// wins; otherwise the id comes from the session cookie, which is issued on
// first contact.
func SessionMiddleware(store sessions.Store) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionHeader)
			if !sessionIDPattern.MatchString(id) {
				id = cookieSession(w, r, store)
			}
			w.Header().Set(SessionHeader, id)

			ctx := context.WithValue(r.Context(), ctxKeySessionID{}, id)
			ctx = context.WithValue(ctx, ctxKeyLog{}, Logger(ctx).WithField("session", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func cookieSession(w http.ResponseWriter, r *http.Request, store sessions.Store) string {
	// A cookie that fails to decode yields a fresh session rather than an error
	session, err := store.Get(r, SessionCookieName)
	if err != nil {
		Logger(r.Context()).WithError(err).Debug("discarding unreadable session cookie")
	}
	if id, ok := session.Values[sessionValueID].(string); ok && sessionIDPattern.MatchString(id) {
		return id
	}

	id := uuid.NewString()
	session.Values[sessionValueID] = id
	if err := session.Save(r, w); err != nil {
		Logger(r.Context()).WithError(err).Warn("failed to save session cookie")
	}
	return id
}

// NoticesMiddleware attaches a notify.Collector to every request
func NoticesMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, _ := notify.WithCollector(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger returns the request scoped logger, or the standard logger outside a request
func Logger(ctx context.Context) logrus.FieldLogger {
	if log, ok := ctx.Value(ctxKeyLog{}).(logrus.FieldLogger); ok {
		return log
	}
	return logrus.StandardLogger()
}

// RequestID returns the id assigned by RequestIDMiddleware
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}

// SessionID returns the id resolved by SessionMiddleware
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeySessionID{}).(string)
	return id
}
