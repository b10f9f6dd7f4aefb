package studio

import (
	"context"

	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/creator-studio/internal/domain"
	"github.com/yungbote/creator-studio/internal/pkg/dbctx"
)

// Library is the user's history and saved assets.
type Library struct {
	History []*types.HistoryItem
	Assets  []*types.ReferenceAsset
}

// Library loads both collections concurrently. Unlike ListHistory it reports
// storage errors.
func (s *studioService) Library(ctx context.Context) (*Library, error) {
	owner, err := s.owner()
	if err != nil {
		return nil, err
	}
	lib := &Library{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.deps.History.ListByOwner(dbctx.Context{Ctx: gctx}, owner)
		lib.History = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.deps.Assets.ListByOwner(dbctx.Context{Ctx: gctx}, owner)
		lib.Assets = rows
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("Failed to load library", "owner_id", owner, "error", err)
		return nil, err
	}
	return lib, nil
}
