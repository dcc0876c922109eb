package session

import (
	"github.com/foxseedlab/multihost/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Coordinator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewCoordinator(cfg), nil
	})
}
