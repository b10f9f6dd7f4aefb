package workflow

import (
	"context"
	"strings"

	"github.com/yungbote/creator-studio/internal/credential"
	"github.com/yungbote/creator-studio/internal/generation"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
	"github.com/yungbote/creator-studio/internal/platform/gemini"
	"github.com/yungbote/creator-studio/internal/platform/logger"
)

const enhanceInstruction = `Rewrite the following prompt for an image or video generation model.
Keep the subject and intent. Add concrete detail about composition, lighting, camera and style.
Answer with the rewritten prompt only, no preamble, no quotes.

Prompt: `

// Controller runs the multi-step studio workflows on top of the orchestrator.
type Controller struct {
	log      *logger.Logger
	orch     *generation.Orchestrator
	provider gemini.Provider
	resolver *credential.Resolver
}

func NewController(log *logger.Logger, orch *generation.Orchestrator, provider gemini.Provider, resolver *credential.Resolver) *Controller {
	return &Controller{
		log:      log.With("service", "WorkflowController"),
		orch:     orch,
		provider: provider,
		resolver: resolver,
	}
}

// EnhancePrompt rewrites draft with the text model. On any failure draft is
// returned unchanged along with the error.
func (c *Controller) EnhancePrompt(ctx context.Context, sess *credential.Session, draft string) (string, error) {
	if strings.TrimSpace(draft) == "" {
		return draft, nil
	}
	cred, err := c.resolver.Resolve(ctx, sess)
	if err != nil {
		return draft, err
	}
	out, err := c.provider.GenerateText(ctx, cred.Key, gemini.ModelText, enhanceInstruction+draft)
	if err != nil {
		c.log.Warn("Prompt enhancement failed", "error", err)
		return draft, err
	}
	out = strings.Trim(strings.TrimSpace(out), `"`)
	if out == "" {
		return draft, apierr.Newf(apierr.KindEmptyResult, "the model returned no text")
	}
	return out, nil
}
