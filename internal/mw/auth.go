package mw

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ringer-dashboard/internal/model"
	"ringer-dashboard/internal/store"
)

const (
	// ContextUserID is the gin context key holding the signed-in user ID.
	ContextUserID = "userID"
	// ContextSession is the gin context key holding the model.Session.
	ContextSession = "session"
)

// AuthOptions configures RequireSession.
type AuthOptions struct {
	Cookie string
	// LoginPath, when set, makes failures redirect there instead of answering 401.
	LoginPath string
	Now       func() time.Time
}

// RequireSession resolves the session token from the cookie or a Bearer
// Authorization header and aborts requests without a valid session.
func RequireSession(st store.Store, opts AuthOptions) gin.HandlerFunc {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return func(c *gin.Context) {
		token := SessionToken(c, opts.Cookie)
		if token == "" {
			deny(c, opts, "login required")
			return
		}

		session, err := st.GetSession(c.Request.Context(), token, opts.Now())
		switch {
		case errors.Is(err, store.ErrSessionNotFound), errors.Is(err, store.ErrSessionExpired):
			deny(c, opts, err.Error())
			return
		case err != nil:
			log.Printf("Error loading session: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
			return
		}

		c.Set(ContextSession, session)
		c.Set(ContextUserID, session.UserID)
		c.Next()
	}
}

// SessionToken returns the session token carried by the request, if any.
func SessionToken(c *gin.Context, cookie string) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie == "" {
		return ""
	}
	if v, err := c.Cookie(cookie); err == nil {
		return v
	}
	return ""
}

// UserID returns the signed-in user, or "" before RequireSession ran.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// Session returns the session set by RequireSession.
func Session(c *gin.Context) (model.Session, bool) {
	v, ok := c.Get(ContextSession)
	if !ok {
		return model.Session{}, false
	}
	s, ok := v.(model.Session)
	return s, ok
}

func deny(c *gin.Context, opts AuthOptions, reason string) {
	if opts.LoginPath != "" {
		c.Redirect(http.StatusSeeOther, opts.LoginPath)
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
}
