package user

import (
	"instavision/internal/global/middleware"
	"instavision/internal/model"

	"github.com/gin-gonic/gin"
)

// InitRouter 挂载 /users；除按 id 查询外均要求管理员
func (u *ModuleUser) InitRouter(r *gin.RouterGroup) {
	userGroup := r.Group("/users", middleware.Authenticate(u.deps.Tokens, u.deps.Revoker))
	admin := middleware.Authorize(model.RoleAdmin)

	userGroup.GET("", admin, u.List)
	userGroup.GET("/:id", middleware.Authorize(model.RoleAdmin, model.RoleStudent), u.Get)
	userGroup.PUT("/:id", admin, u.Update)
	userGroup.DELETE("/:id", admin, u.Delete)
	userGroup.PATCH("/:id/status", admin, u.ToggleStatus)
	userGroup.POST("/:id/status", admin, u.ToggleStatus)
	userGroup.POST("/:id/reset-password", admin, u.ResetPassword)
	userGroup.POST("/:id/avatar/presign", admin, u.PresignAvatar)
	userGroup.PUT("/:id/avatar", admin, u.UploadAvatar)
}
