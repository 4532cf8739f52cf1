package handlers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"rental-console/internal/auth"
	"rental-console/internal/booking"
	"rental-console/internal/gateway"
	"rental-console/internal/logger"
	"rental-console/internal/models"
	"rental-console/internal/storage"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// SessionContextKey is the context key for the authenticated session.
	SessionContextKey contextKey = "session"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// DefaultSessionDuration is how long sessions last (30 days) unless configured.
	DefaultSessionDuration = 30 * 24 * time.Hour
)

const loginFailed = "Login failed. Please check your credentials."

// Backend is the part of the remote data gateway the console calls.
type Backend interface {
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	Signup(ctx context.Context, req models.SignupRequest) (*models.User, error)
	Me(ctx context.Context, token string) (*models.User, error)

	ListRoles(ctx context.Context, token string) ([]models.Role, error)
	GetRole(ctx context.Context, token, id string) (*models.Role, error)
	CreateRole(ctx context.Context, token string, role models.Role) (*models.Role, error)
	UpdateRole(ctx context.Context, token string, role models.Role) (*models.Role, error)
	DeleteRole(ctx context.Context, token, id string) error

	ListItems(ctx context.Context, token string) ([]models.RentalItem, error)
	ListItemsByOwner(ctx context.Context, token, userID string) ([]models.RentalItem, error)
	GetItem(ctx context.Context, token, id string) (*models.RentalItem, error)
	CreateItem(ctx context.Context, token string, item models.RentalItem) (*models.RentalItem, error)
	UpdateItem(ctx context.Context, token string, item models.RentalItem) (*models.RentalItem, error)
	DeleteItem(ctx context.Context, token, id string) error
	UploadImages(ctx context.Context, token, itemID string, files []gateway.ImageFile) ([]string, error)

	CreateOrder(ctx context.Context, token string, req models.BookingRequest) (*models.RentalOrder, error)
	GetOrder(ctx context.Context, token, id string) (*models.RentalOrder, error)
	ListOrdersByUser(ctx context.Context, token, userID string) ([]models.RentalOrder, error)
}

// Config carries the handler settings that do not come from dependencies.
type Config struct {
	TemplateDir     string
	SecureCookie    bool
	SessionDuration time.Duration
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	store           storage.SessionStore
	backend         Backend
	bookings        *booking.Service
	validate        *validator.Validate
	log             *zap.Logger
	templateDir     string
	secureCookie    bool
	sessionDuration time.Duration
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store storage.SessionStore, backend Backend, cfg Config, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	duration := cfg.SessionDuration
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	return &Handlers{
		store:           store,
		backend:         backend,
		bookings:        booking.NewService(backend, log.Named("booking")),
		validate:        validator.New(),
		log:             log,
		templateDir:     cfg.TemplateDir,
		secureCookie:    cfg.SecureCookie,
		sessionDuration: duration,
	}
}

// GetSessionFromContext retrieves the authenticated session from request context.
func GetSessionFromContext(r *http.Request) *models.Session {
	if s, ok := r.Context().Value(SessionContextKey).(*models.Session); ok {
		return s
	}
	return nil
}

func (h *Handlers) logger(r *http.Request) *zap.Logger {
	return logger.WithContext(r.Context(), h.log)
}

// AuthMiddleware wraps handlers to require authentication.
// It also implements rolling sessions: if a session is past the halfway point
// of its lifetime, it is renewed, but never past the bearer token's expiry.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			h.redirectToLogin(w, r)
			return
		}

		info, err := h.store.ValidateSession(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, storage.ErrSessionNotFound) {
				h.logger(r).Error("validate session", zap.Error(err))
			}
			h.clearSessionCookie(w)
			h.redirectToLogin(w, r)
			return
		}

		now := time.Now()
		if info.ExpiresAt.Sub(now) < h.sessionDuration/2 {
			newExpiresAt := storage.CapExpiry(now.Add(h.sessionDuration), info.Session.TokenExpiresAt)
			if newExpiresAt.After(info.ExpiresAt) {
				if err := h.store.RenewSession(r.Context(), cookie.Value, newExpiresAt); err == nil {
					h.setSessionCookie(w, cookie.Value, newExpiresAt)
				} else {
					h.logger(r).Warn("renew session", zap.Error(err))
				}
			}
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, info.Session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionRejected ends the console session when the backend no longer
// accepts its bearer token. It reports whether it wrote the response.
func (h *Handlers) sessionRejected(w http.ResponseWriter, r *http.Request, err error) bool {
	if !gateway.IsUnauthorized(err) {
		return false
	}
	if cookie, cerr := r.Cookie(SessionCookieName); cerr == nil && cookie.Value != "" {
		if derr := h.store.DeleteSession(r.Context(), cookie.Value); derr != nil {
			h.logger(r).Error("delete rejected session", zap.Error(derr))
		}
	}
	h.logger(r).Info("backend rejected session token", zap.Error(err))
	h.clearSessionCookie(w)
	h.redirectToLogin(w, r)
	return true
}

func (h *Handlers) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// Page carries the layout data every view shares.
type Page struct {
	Title   string
	Session *models.Session
	Error   string
	Notice  string
}

// IsAdmin gates the admin navigation entries.
func (p Page) IsAdmin() bool {
	return auth.CanManageRoles(p.Session)
}

func newPage(r *http.Request, title string) Page {
	return Page{Title: title, Session: GetSessionFromContext(r)}
}

// LoginViewModel holds data for the login page.
type LoginViewModel struct {
	Page
	Email string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := h.store.ValidateSession(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
	}
	vm := LoginViewModel{Page: Page{Title: "Sign in"}}
	if r.URL.Query().Get("registered") == "1" {
		vm.Notice = "Account created. Please sign in."
	}
	h.render(w, r, "login.html", vm)
}

// Login exchanges credentials for a backend token and opens a session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	vm := LoginViewModel{Page: Page{Title: "Sign in"}}
	if err := r.ParseForm(); err != nil {
		vm.Error = "Invalid form submission"
		h.renderStatus(w, r, http.StatusBadRequest, "login.html", vm)
		return
	}

	form := LoginFormInput{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	vm.Email = form.Email
	if err := h.validate.Struct(form); err != nil {
		vm.Error = "Please enter a valid email and password"
		h.renderStatus(w, r, http.StatusBadRequest, "login.html", vm)
		return
	}

	log := h.logger(r).With(zap.String("email", logger.MaskEmail(form.Email)))

	resp, err := h.backend.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		log.Info("login rejected", zap.Error(err))
		vm.Error = gateway.MessageOf(err, loginFailed)
		h.renderStatus(w, r, http.StatusUnauthorized, "login.html", vm)
		return
	}

	now := time.Now()
	sess := h.resolveIdentity(r.Context(), log, form.Email, resp.Token)
	if resp.ExpiresIn > 0 {
		sess.TokenExpiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Millisecond)
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		log.Error("generate session token", zap.Error(err))
		vm.Error = "An error occurred. Please try again."
		h.renderStatus(w, r, http.StatusInternalServerError, "login.html", vm)
		return
	}

	expiresAt := storage.CapExpiry(now.Add(h.sessionDuration), sess.TokenExpiresAt)
	if err := h.store.CreateSession(r.Context(), token, sess, expiresAt); err != nil {
		log.Error("create session", zap.Error(err))
		vm.Error = "An error occurred. Please try again."
		h.renderStatus(w, r, http.StatusInternalServerError, "login.html", vm)
		return
	}

	log.Info("login succeeded", zap.String("user_id", sess.UserID), zap.String("role", sess.RoleName))
	h.setSessionCookie(w, token, expiresAt)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// resolveIdentity builds the session identity from the profile endpoint,
// then the token claims, then the login email alone.
func (h *Handlers) resolveIdentity(ctx context.Context, log *zap.Logger, email, token string) models.Session {
	sess := models.Session{Email: email, BearerToken: token}

	user, err := h.backend.Me(ctx, token)
	if err == nil {
		sess.UserID = user.ID
		sess.FullName = user.FullName
		sess.RoleName = user.RoleName()
		if user.Email != "" {
			sess.Email = user.Email
		}
		return sess
	}
	log.Warn("profile fetch failed, falling back to token claims", zap.Error(err))

	claims, err := auth.ClaimsFromToken(token)
	if err != nil {
		log.Warn("token claims unreadable, using email only", zap.Error(err))
		return sess
	}
	sess.UserID = claims.UserID
	sess.FullName = claims.FullName
	sess.RoleName = claims.RoleName
	if claims.Email != "" {
		sess.Email = claims.Email
	}
	return sess
}

// Logout handles user logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.store.DeleteSession(r.Context(), cookie.Value); err != nil {
			h.logger(r).Error("delete session", zap.Error(err))
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   max(int(time.Until(expiresAt).Seconds()), 1),
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

// Healthz reports liveness.
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"join":  strings.Join,
	"deref": func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	},
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	h.renderStatus(w, r, http.StatusOK, viewName, data)
}

// renderStatus executes base.html around viewName, or only its "content"
// block for HTMX requests.
func (h *Handlers) renderStatus(w http.ResponseWriter, r *http.Request, status int, viewName string, data any) {
	target := "base.html"
	if r.Header.Get("HX-Request") == "true" {
		target = "content"
	}
	h.execute(w, r, status, target, data, "base.html", "partials.html", viewName)
}

// renderPartial executes a single named block from partials.html.
func (h *Handlers) renderPartial(w http.ResponseWriter, r *http.Request, name string, data any) {
	h.execute(w, r, http.StatusOK, name, data, "partials.html")
}

func (h *Handlers) execute(w http.ResponseWriter, r *http.Request, status int, target string, data any, files ...string) {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = filepath.Join(h.templateDir, f)
	}
	tmpl, err := template.New(filepath.Base(paths[0])).Funcs(funcs).ParseFiles(paths...)
	if err != nil {
		h.logger(r).Error("template parse", zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, target, data); err != nil {
		h.logger(r).Error("template execute", zap.String("template", target), zap.Error(err))
	}
}

// forbidden renders the Unauthorized page with 403.
func (h *Handlers) forbidden(w http.ResponseWriter, r *http.Request) {
	h.renderStatus(w, r, http.StatusForbidden, "unauthorized.html", newPage(r, "Unauthorized"))
}
