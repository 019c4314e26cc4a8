// Package session manages the browser session cookie.
package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crownlab/crownlab/internal/config"
)

const CookieName = "_sid"

type Manager struct {
	secure bool
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{secure: cfg.AuthCookieSecure}
}

// Set writes the session cookie on the response.
func (m *Manager) Set(c *gin.Context, rawToken string, expiresAt time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    rawToken,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie.
func (m *Manager) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the raw session token from the request, or "".
func (m *Manager) Read(c *gin.Context) string {
	cookie, err := c.Request.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
