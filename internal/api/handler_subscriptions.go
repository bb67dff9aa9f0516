package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ringer-dashboard/internal/model"
	"ringer-dashboard/internal/mw"
	"ringer-dashboard/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

func (h *Handler) requirePush(c *gin.Context) bool {
	if !h.pushEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push notifications are not configured"})
		return false
	}
	return true
}

// PutSubscription registers the caller's browser for plug/unplug notifications.
func (h *Handler) PutSubscription(c *gin.Context) {
	if !h.requirePush(c) {
		return
	}
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subscription := model.PushSubscription{
		Endpoint:  req.Endpoint,
		P256DH:    req.P256DH,
		Auth:      req.Auth,
		UserID:    mw.UserID(c),
		CreatedAt: h.now().UTC(),
	}
	if err := h.store.PutSubscription(c.Request.Context(), &subscription); err != nil {
		if errors.Is(err, store.ErrSubscriptionOwned) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the caller's subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), mw.UserID(c), req.Endpoint); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSubscription reports whether an endpoint is subscribed for the caller.
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	sub, err := h.store.GetSubscription(c.Request.Context(), mw.UserID(c), endpoint)
	if err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"endpoint":   sub.Endpoint,
		"subscribed": true,
		"created_at": sub.CreatedAt.Format(time.RFC3339),
	})
}
