package health

import (
	"instavision/internal/global/app"
	"time"
)

type ModuleHealth struct {
	startedAt time.Time
}

func (p *ModuleHealth) GetName() string {
	return "Health"
}

func (p *ModuleHealth) Init(d *app.Deps) {
	p.startedAt = d.StartedAt
	if p.startedAt.IsZero() {
		p.startedAt = time.Now()
	}
}
