package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"account-service/internal/auth"
	"account-service/internal/config"
	"account-service/internal/telemetry"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey = contextKey("request_id")
	claimsKey    = contextKey("claims")
)

type Middleware struct {
	logger zerolog.Logger
	tokens *auth.TokenIssuer
}

func New(app *config.Application) *Middleware {
	return &Middleware{logger: app.Logger, tokens: app.Tokens}
}

// --- RESPONSE WRITER for logging ---
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// --- REQUEST ID ---
func (mw *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// --- LOGGING ---
func (mw *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		logEvent := mw.logger.Info()
		switch {
		case wrapped.statusCode >= 500:
			logEvent = mw.logger.Error()
		case wrapped.statusCode >= 400:
			logEvent = mw.logger.Warn()
		}

		logEvent.
			Str("request_id", RequestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Str("ip", getClientIP(r)).
			Str("user_agent", r.UserAgent()).
			Int64("content_length", r.ContentLength).
			Int("response_size", wrapped.size).
			Msg("HTTP request processed")
	})
}

// --- RECOVERY ---
func (mw *Middleware) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				requestID := RequestIDFrom(r.Context())

				mw.logger.Error().
					Str("request_id", requestID).
					Str("panic", fmt.Sprintf("%v", err)).
					Bytes("stack", debug.Stack()).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("Panic recovered")

				writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// --- AUTHENTICATION ---

// Authenticate requires a valid bearer token and stores its claims in the
// request context.
func (mw *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := RequestIDFrom(r.Context())

		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			telemetry.AuthAttempts.WithLabelValues("bearer", "missing").Inc()
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := mw.tokens.Verify(token)
		if err != nil {
			result := "invalid"
			if errors.Is(err, auth.ErrExpiredToken) {
				result = "expired"
			}
			telemetry.AuthAttempts.WithLabelValues("bearer", result).Inc()
			mw.logger.Warn().
				Str("request_id", requestID).
				Err(err).
				Msg("Token validation failed")
			writeJSONError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin must run after Authenticate.
func (mw *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !claims.IsAdmin() {
			mw.logger.Warn().
				Str("request_id", RequestIDFrom(r.Context())).
				Str("user_id", claims.ID).
				Str("path", r.URL.Path).
				Msg("Non-admin access to admin route")
			writeJSONError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- SECURITY HEADERS ---
func Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// --- TIMEOUT ---

// Timeout bounds the request context. Store and mail calls observe the
// deadline; the handler itself still writes the response.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// --- CONTEXT ACCESSORS ---

func RequestIDFrom(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return "unknown"
}

func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// WithClaims is used by tests that exercise handlers without the middleware.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// --- HELPERS ---

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := r.RemoteAddr
	if colon := strings.LastIndex(ip, ":"); colon != -1 {
		ip = ip[:colon]
	}
	return ip
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}
