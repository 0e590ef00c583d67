package health

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	aggregator   *Aggregator
	bearerSecret string
}

func NewHandler(aggregator *Aggregator, bearerSecret string) *Handler {
	return &Handler{
		aggregator:   aggregator,
		bearerSecret: bearerSecret,
	}
}

func (h *Handler) authorized(c *gin.Context) bool {
	if h.bearerSecret == "" {
		return false
	}

	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) != "Bearer" {
		return false
	}

	token := strings.TrimSpace(parts[1])
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.bearerSecret)) == 1
}

// Health handles GET /health. Without the bearer secret the body is
// exactly {"status":"ok"} whatever the real composite state: dependency
// names, versions and failure details stay behind authentication.
func (h *Handler) Health(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	c.JSON(http.StatusOK, h.aggregator.Run(c.Request.Context()))
}
