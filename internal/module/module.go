package module

import (
	"instavision/internal/global/app"
	"instavision/internal/module/auth"
	"instavision/internal/module/health"
	"instavision/internal/module/user"

	"github.com/gin-gonic/gin"
)

type Module interface {
	GetName() string
	Init(d *app.Deps)
	InitRouter(r *gin.RouterGroup)
}

// Modules 返回全部模块，每次调用都是新的实例
func Modules() []Module {
	// Register your module here
	return []Module{
		&health.ModuleHealth{},
		&auth.ModuleAuth{},
		&user.ModuleUser{},
	}
}
