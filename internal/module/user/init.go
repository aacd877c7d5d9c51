package user

import (
	"instavision/internal/global/app"
	"instavision/internal/global/logger"
	"instavision/internal/global/validate"
	"instavision/tools"
	"log/slog"
)

var log *slog.Logger

type ModuleUser struct {
	deps *app.Deps
}

func (u *ModuleUser) GetName() string {
	return "User"
}

func (u *ModuleUser) Init(d *app.Deps) {
	log = logger.New("User")
	u.deps = d
	tools.PanicOnErr(validate.Register())
}
