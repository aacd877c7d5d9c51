package health

import (
	"instavision/internal/global/response"
	"time"

	"github.com/gin-gonic/gin"
)

func (p *ModuleHealth) InitRouter(r *gin.RouterGroup) {
	r.GET("/health", func(c *gin.Context) {
		response.Success(c, "Server is running successfully", gin.H{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(p.startedAt).Seconds(),
		})
	})
}
