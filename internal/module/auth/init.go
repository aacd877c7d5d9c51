package auth

import (
	"instavision/internal/global/app"
	"instavision/internal/global/logger"
	"log/slog"
)

var log *slog.Logger

type ModuleAuth struct {
	deps *app.Deps
}

func (m *ModuleAuth) GetName() string {
	return "Auth"
}

func (m *ModuleAuth) Init(d *app.Deps) {
	log = logger.New("Auth")
	m.deps = d
}
