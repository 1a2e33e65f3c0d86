package mw

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionCookie identifies a dashboard client across requests.
	SessionCookie = "openair-session"
	clientIDKey   = "clientID"
	// Persisted flags outlive the in-memory session, so the cookie does too.
	sessionCookieMaxAge = 365 * 24 * time.Hour
)

// Session assigns every client a stable id, issuing a cookie on first contact.
func Session(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(sessionCookieMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set(clientIDKey, id)
		c.Next()
	}
}

// ClientID returns the id set by Session.
func ClientID(c *gin.Context) string {
	return c.GetString(clientIDKey)
}
