package app

import (
	"context"
	"fmt"

	"github.com/yungbote/creator-studio/internal/platform/gemini"
	"github.com/yungbote/creator-studio/internal/platform/logger"
	"github.com/yungbote/creator-studio/internal/platform/media"
)

type Clients struct {
	Gemini *gemini.Client
	Media  media.Store
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	mediaStore, err := media.New(ctx, log, cfg.Media)
	if err != nil {
		return Clients{}, fmt.Errorf("init media store (%s): %w", cfg.Media.Mode, err)
	}
	return Clients{
		Gemini: gemini.NewClient(log, cfg.Gemini),
		Media:  mediaStore,
	}, nil
}
