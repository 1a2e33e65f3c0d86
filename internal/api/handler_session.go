package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetSession returns the caller's access state.
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.gate(c).View())
}

// EnterDemo handles POST /api/session/demo.
func (h *Handler) EnterDemo(c *gin.Context) {
	g := h.gate(c)
	if err := g.EnterDemo(c.Request.Context()); err != nil {
		h.logger.Error("failed to enter demo mode", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enter demo mode"})
		return
	}
	c.JSON(http.StatusOK, g.View())
}

// ExitDemo handles DELETE /api/session/demo.
func (h *Handler) ExitDemo(c *gin.Context) {
	g := h.gate(c)
	if err := g.ExitDemo(c.Request.Context()); err != nil {
		h.logger.Error("failed to exit demo mode", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to exit demo mode"})
		return
	}
	c.JSON(http.StatusOK, g.View())
}

type connectWalletRequest struct {
	PublicKey string `json:"publicKey" binding:"required"`
}

// ConnectWallet handles PUT /api/session/wallet.
func (h *Handler) ConnectWallet(c *gin.Context) {
	var req connectWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	g := h.gate(c)
	g.ConnectWallet(req.PublicKey)
	c.JSON(http.StatusOK, g.View())
}

// DisconnectWallet handles DELETE /api/session/wallet.
func (h *Handler) DisconnectWallet(c *gin.Context) {
	g := h.gate(c)
	g.DisconnectWallet()
	c.JSON(http.StatusOK, g.View())
}
