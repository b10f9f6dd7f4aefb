package app

import (
	"github.com/yungbote/creator-studio/internal/credential"
	"github.com/yungbote/creator-studio/internal/generation"
	"github.com/yungbote/creator-studio/internal/observability"
	"github.com/yungbote/creator-studio/internal/platform/logger"
	"github.com/yungbote/creator-studio/internal/session"
	"github.com/yungbote/creator-studio/internal/studio"
	"github.com/yungbote/creator-studio/internal/workflow"
)

type Services struct {
	Session      *credential.Session
	Resolver     *credential.Resolver
	Orchestrator *generation.Orchestrator
	Workflow     *workflow.Controller
	Studio       studio.Service
}

func wireServices(log *logger.Logger, cfg Config, host credential.Host, reposet Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	sess := credential.NewSession()
	resolver := credential.NewResolver(log, host,
		credential.WithPremiumRequiresSelection(cfg.PremiumRequiresSelection),
	)
	orch := generation.NewOrchestrator(log, clients.Gemini, resolver, clients.Media, metrics, generation.Config{
		PollInterval: cfg.Generation.PollInterval,
		PollTimeout:  cfg.Generation.PollTimeout,
	})
	controller := workflow.NewController(log, orch, clients.Gemini, resolver)

	svc := studio.NewService(log, studio.Deps{
		History:      reposet.History,
		Assets:       reposet.Assets,
		Session:      sess,
		Resolver:     resolver,
		Orchestrator: orch,
		Workflow:     controller,
		SessionStore: session.NewStore(log, cfg.SessionPath),
		Media:        clients.Media,
		Metrics:      metrics,
	}, studio.Options{
		EnvKey:        cfg.APIKey,
		Audience:      cfg.FederatedAudience,
		ThumbnailSize: cfg.ThumbnailSize,
	})

	return Services{
		Session:      sess,
		Resolver:     resolver,
		Orchestrator: orch,
		Workflow:     controller,
		Studio:       svc,
	}
}
