package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ringer-dashboard/internal/model"
	"ringer-dashboard/internal/mw"
	"ringer-dashboard/internal/upstream"
	"ringer-dashboard/internal/view"
)

var (
	passcodePattern = regexp.MustCompile(`^\d{6}$`)

	errInvalidPasscode = errors.New("passcode must be exactly 6 digits")
	errBadCredentials  = errors.New("invalid email/phone or passcode")
	errLoginFailed     = errors.New("login service unavailable, try again later")
)

type loginRequest struct {
	Identifier string `json:"identifier" form:"identifier" binding:"required"`
	Passcode   string `json:"passcode" form:"passcode" binding:"required"`
}

// startSession checks the credentials upstream and persists a new session.
// The returned status code describes the failure when err is non-nil.
func (h *Handler) startSession(ctx context.Context, req loginRequest) (model.Session, int, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if !passcodePattern.MatchString(req.Passcode) {
		return model.Session{}, http.StatusBadRequest, errInvalidPasscode
	}

	user, err := h.auth.Login(ctx, identifier, req.Passcode)
	if err != nil {
		if upstream.IsUnauthorized(err) {
			return model.Session{}, http.StatusUnauthorized, errBadCredentials
		}
		log.Printf("Error logging in %q: %v", identifier, err)
		return model.Session{}, http.StatusBadGateway, errLoginFailed
	}

	now := h.now().UTC()
	session := model.Session{
		Token:      uuid.NewString(),
		UserID:     user.ID,
		Identifier: identifier,
		CreatedAt:  now,
		ExpiresAt:  now.Add(h.server.SessionTTL),
	}
	if err := h.store.CreateSession(ctx, &session); err != nil {
		log.Printf("Error creating session: %v", err)
		return model.Session{}, http.StatusInternalServerError, errors.New("failed to create session")
	}
	return session, http.StatusOK, nil
}

func (h *Handler) setSessionCookie(c *gin.Context, session model.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetCookie(h.server.SessionCookie, session.Token, maxAge, "/", "", h.server.SecureCookie, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.server.SessionCookie, "", -1, "/", "", h.server.SecureCookie, true)
}

// endSession deletes the session carried by the request, if any.
func (h *Handler) endSession(c *gin.Context) error {
	token := mw.SessionToken(c, h.server.SessionCookie)
	if token == "" {
		return nil
	}
	return h.store.DeleteSession(c.Request.Context(), token)
}

// GetLoginPage renders the sign-in form.
func (h *Handler) GetLoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login", view.LoginPage{Page: view.Page{Title: "Sign in"}})
}

// PostLoginPage handles the sign-in form and redirects to the dashboard.
func (h *Handler) PostLoginPage(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusBadRequest, "login", view.LoginPage{
			Page:       view.Page{Title: "Sign in"},
			Identifier: req.Identifier,
			Error:      "Email/phone and passcode are required",
		})
		return
	}

	session, code, err := h.startSession(c.Request.Context(), req)
	if err != nil {
		c.HTML(code, "login", view.LoginPage{
			Page:       view.Page{Title: "Sign in"},
			Identifier: req.Identifier,
			Error:      err.Error(),
		})
		return
	}

	h.setSessionCookie(c, session)
	c.Redirect(http.StatusSeeOther, "/")
}

// PostLogoutPage ends the session and returns to the sign-in form.
func (h *Handler) PostLogoutPage(c *gin.Context) {
	if err := h.endSession(c); err != nil {
		log.Printf("Error deleting session: %v", err)
	}
	h.clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/login")
}

// PostLogin is the JSON sign-in used by scripts and the terminal client.
func (h *Handler) PostLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, code, err := h.startSession(c.Request.Context(), req)
	if err != nil {
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}

	h.setSessionCookie(c, session)
	c.JSON(http.StatusOK, gin.H{
		"token":     session.Token,
		"userId":    session.UserID,
		"expiresAt": session.ExpiresAt,
	})
}

// PostLogout deletes the caller's session.
func (h *Handler) PostLogout(c *gin.Context) {
	if err := h.endSession(c); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}
