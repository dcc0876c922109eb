package httpapi

import (
	"github.com/foxseedlab/multihost/internal/config"
	"github.com/foxseedlab/multihost/internal/repository"
	"github.com/foxseedlab/multihost/internal/session"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		coordinator := do.MustInvoke[*session.Coordinator](i)
		history := do.MustInvoke[repository.Repository](i)
		return NewServer(cfg.HTTPAddr, coordinator, history), nil
	})
}
