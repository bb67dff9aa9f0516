package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) pushEnabled() bool {
	return h.webpush != nil && h.webpush.VAPIDPublicKey != ""
}

// GetVAPIDPublicKey returns the VAPID public key to the client.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if !h.pushEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vapid keys are not configured"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}
