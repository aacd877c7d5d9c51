package auth

import (
	"instavision/internal/global/middleware"
	"instavision/internal/model"

	"github.com/gin-gonic/gin"
)

func (m *ModuleAuth) InitRouter(r *gin.RouterGroup) {
	authGroup := r.Group("/auth")
	authenticate := middleware.Authenticate(m.deps.Tokens, m.deps.Revoker)

	authGroup.POST("/login", m.Login)
	authGroup.GET("/me", authenticate, m.Me)
	// 只有管理员可以创建账号
	authGroup.POST("/register", authenticate, middleware.Authorize(model.RoleAdmin), m.Register)
}
