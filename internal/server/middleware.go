package server

import (
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"blog/internal/auth"
)

// withSession resolves the session cookie, if any, and puts the caller's
// user id into the request context. Anonymous requests pass through.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(auth.CookieName); err == nil && c.Value != "" {
			if uid, err := auth.UserFromSession(r.Context(), s.DB, c.Value); err == nil {
				r = r.WithContext(auth.WithUserID(r.Context(), uid))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth redirects anonymous callers to the login page, carrying the
// original path so login can return them.
func (s *Server) requireAuth(next func(http.ResponseWriter, *http.Request, int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFrom(r.Context())
		if !ok {
			s.redirectToLogin(w, r)
			return
		}
		next(w, r, uid)
	}
}

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/auth/login/?next="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
}

type statusRW struct {
	http.ResponseWriter
	status int
}

func (w *statusRW) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusRW{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.Log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("took", time.Since(start)))
	})
}
