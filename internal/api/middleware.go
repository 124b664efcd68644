package api

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// maxRequestBodySize caps request bodies (1 MB). Resource representations
// are small.
const maxRequestBodySize = 1 << 20

type ctxKey int

const (
	keyRequestID ctxKey = iota
	keySubject
)

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(keyRequestID).(string)
	return id
}

// subject is the authenticated token subject, empty without authentication.
func subject(ctx context.Context) string {
	sub, _ := ctx.Value(keySubject).(string)
	return sub
}

// withRequestID echoes X-Request-ID or assigns a fresh one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), keyRequestID, id)))
	})
}

// accessLog logs every request at debug, and recovers handler panics as a
// 500 logged at error.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("panic recovered in HTTP handler",
					"panic", p, "method", r.Method, "path", r.URL.Path, "request_id", requestID(r.Context()))
				if ww.Status() == 0 {
					writeInternalError(ww, "internal server error")
				}
			}
			s.logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// cors answers preflight requests and sets the allow headers for permitted
// origins. An empty allow list permits every origin.
func (s *Server) cors(next http.Handler) http.Handler {
	allowed := s.cfg.CORS.AllowedOrigins
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (len(allowed) == 0 || slices.Contains(allowed, "*") || slices.Contains(allowed, origin)) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireToken checks the bearer token when a JWT secret is configured.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.secCfg.JWT.Secret == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeUnauthorized(w, "bearer token required")
			return
		}
		sub, err := s.verifyToken(token)
		if err != nil {
			s.logger.Debug("token rejected", "error", err, "request_id", requestID(r.Context()))
			writeUnauthorized(w, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), keySubject, sub)))
	})
}
