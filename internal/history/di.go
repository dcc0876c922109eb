package history

import (
	"github.com/foxseedlab/multihost/internal/config"
	"github.com/foxseedlab/multihost/internal/repository"
	"github.com/foxseedlab/multihost/internal/session"
	"github.com/foxseedlab/multihost/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Recorder, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		sender := do.MustInvoke[webhook.Sender](i)
		coordinator := do.MustInvoke[*session.Coordinator](i)

		r := NewRecorder(repo, sender, cfg.HistoryQueueSize)
		r.Attach(coordinator)
		return r, nil
	})
}
