package handlers

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"expensebook/internal/dateutil"
	"expensebook/internal/models"
	"expensebook/internal/storage"

	"github.com/rs/zerolog/log"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// Flash cookie names. Each is written on a redirect and consumed by the
	// next rendered view, then cleared.
	flashWarningCookie = "flash_warning"
	flashSuccessCookie = "flash_success"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db           *storage.DB
	templateDir  string
	secureCookie bool
	sessionTTL   time.Duration
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, templateDir string, secureCookie bool, sessionTTL time.Duration) *Handlers {
	return &Handlers{db: db, templateDir: templateDir, secureCookie: secureCookie, sessionTTL: sessionTTL}
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// AuthMiddleware wraps handlers to require authentication.
// It also implements rolling sessions: if a session is past the halfway point
// of its lifetime, it automatically renews the session.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/user/login", http.StatusFound)
			return
		}

		sessionInfo, err := h.db.ValidateSessionWithInfo(cookie.Value)
		if err != nil {
			// Invalid or expired session, clear the cookie
			h.clearSessionCookie(w)
			http.Redirect(w, r, "/user/login", http.StatusFound)
			return
		}

		// Rolling session: renew if past halfway point
		// This keeps active users logged in while still expiring inactive sessions
		now := time.Now()
		timeUntilExpiry := sessionInfo.ExpiresAt.Sub(now)

		if timeUntilExpiry < h.sessionTTL/2 {
			newExpiresAt := now.Add(h.sessionTTL)
			if err := h.db.RenewSession(cookie.Value, newExpiresAt); err == nil {
				h.setSessionCookie(w, cookie.Value)
			}
			// If renewal fails, just continue with the current session
		}

		ctx := context.WithValue(r.Context(), UserContextKey, sessionInfo.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MethodOverride rewrites a POST's effective verb from the _method form
// field so HTML forms can express PATCH and DELETE. Must run before route
// matching.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			// ParseForm caches the parsed body, so downstream handlers can
			// read the remaining fields as usual.
			if err := r.ParseForm(); err == nil {
				switch r.PostForm.Get("_method") {
				case http.MethodPatch:
					r.Method = http.MethodPatch
				case http.MethodDelete:
					r.Method = http.MethodDelete
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// FlashWarning queues a warning message for the next rendered view.
func (h *Handlers) FlashWarning(w http.ResponseWriter, msg string) {
	h.setFlash(w, flashWarningCookie, msg)
}

// FlashSuccess queues a success message for the next rendered view.
func (h *Handlers) FlashSuccess(w http.ResponseWriter, msg string) {
	h.setFlash(w, flashSuccessCookie, msg)
}

func (h *Handlers) setFlash(w http.ResponseWriter, name, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// consumeFlash reads a flash cookie and clears it, so each message is
// rendered exactly once.
func (h *Handlers) consumeFlash(w http.ResponseWriter, r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	msg, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return msg
}

// ViewData is the envelope every rendered view receives.
type ViewData struct {
	CurrentUser *models.User
	Today       string
	Warning     string
	Success     string
	Data        any
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	h.renderStatus(w, r, viewName, data, http.StatusOK)
}

func (h *Handlers) renderStatus(w http.ResponseWriter, r *http.Request, viewName string, data any, status int) {
	tmpl, err := template.ParseFiles(filepath.Join(h.templateDir, "base.html"), filepath.Join(h.templateDir, viewName))
	if err != nil {
		log.Error().Err(err).Str("view", viewName).Msg("template parse failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	vd := ViewData{
		CurrentUser: GetUserFromContext(r),
		Today:       dateutil.Today(),
		Warning:     h.consumeFlash(w, r, flashWarningCookie),
		Success:     h.consumeFlash(w, r, flashSuccessCookie),
		Data:        data,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base.html", vd); err != nil {
		log.Error().Err(err).Str("view", viewName).Msg("template execution failed")
	}
}
