package public

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Healthz 健康检查
// GET /healthz
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
