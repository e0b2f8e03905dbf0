package handlers

import (
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	cartCookieName  = "sia_session"
	adminCookieName = "sia_admin"

	// Carts persist server-side; the cookie only carries the identifier.
	cartCookieMaxAge = 180 * 24 * 60 * 60
)

// SessionManager binds anonymous shoppers to their server-side cart through an
// opaque cookie.
type SessionManager struct {
	newID  func() string
	secure bool
}

// NewSessionManager constructs a SessionManager. Secure marks issued cookies
// as HTTPS-only and should be on outside local development.
func NewSessionManager(secure bool) *SessionManager {
	return &SessionManager{
		newID:  func() string { return ulid.Make().String() },
		secure: secure,
	}
}

// CartID returns the shopper's cart identifier, minting a fresh one and
// setting the cookie when the request carries none.
func (m *SessionManager) CartID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(cartCookieName); err == nil {
		if id := strings.TrimSpace(cookie.Value); id != "" {
			return id
		}
	}

	id := m.newID()
	http.SetCookie(w, &http.Cookie{
		Name:     cartCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   cartCookieMaxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// SetAdminCookie issues the dashboard session cookie.
func (m *SessionManager) SetAdminCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAdminCookie expires the dashboard session cookie.
func (m *SessionManager) ClearAdminCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// adminToken extracts the dashboard session token from the cookie or a bearer
// Authorization header.
func adminToken(r *http.Request) string {
	if cookie, err := r.Cookie(adminCookieName); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token
		}
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	return ""
}
