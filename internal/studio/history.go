package studio

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/creator-studio/internal/domain"
	"github.com/yungbote/creator-studio/internal/generation"
	"github.com/yungbote/creator-studio/internal/pkg/dbctx"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
	"github.com/yungbote/creator-studio/internal/platform/imagetools"
	"github.com/yungbote/creator-studio/internal/workflow"
)

// HistoryItemFrom turns a finished generation into a record ready for
// SaveHistoryItem.
func HistoryItemFrom(res *generation.Result, now time.Time) *types.HistoryItem {
	item := &types.HistoryItem{
		ID:        uuid.NewString(),
		Kind:      res.Kind,
		URL:       res.URL,
		Prompt:    res.Prompt,
		Tags:      datatypes.JSONSlice[string](append([]string{}, res.Tags...)),
		CreatedAt: now.UnixMilli(),
	}
	item.Metadata = datatypes.NewJSONType(types.Metadata{
		Model:       res.Model,
		AspectRatio: res.AspectRatio,
		Resolution:  res.Resolution,
	})
	return item
}

// ListHistory never fails; storage errors are logged and yield an empty list.
func (s *studioService) ListHistory(ctx context.Context) []*types.HistoryItem {
	owner, err := s.owner()
	if err != nil {
		return []*types.HistoryItem{}
	}
	rows, err := s.deps.History.ListByOwner(dbctx.Context{Ctx: ctx}, owner)
	if err != nil {
		s.log.Error("Failed to load history", "owner_id", owner, "error", err)
		return []*types.HistoryItem{}
	}
	return rows
}

func (s *studioService) SaveHistoryItem(ctx context.Context, item *types.HistoryItem) ([]*types.HistoryItem, error) {
	owner, err := s.owner()
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apierr.Newf(apierr.KindInvalidRequest, "history item is required")
	}
	row := *item
	if strings.TrimSpace(row.ID) == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt == 0 {
		row.CreatedAt = s.opts.Now().UnixMilli()
	}
	s.decorate(&row)
	list, err := s.deps.History.Put(dbctx.Context{Ctx: ctx}, owner, &row)
	s.recordWrite("history", err)
	return list, err
}

// decorate fills image dimensions and a thumbnail for inline images.
func (s *studioService) decorate(item *types.HistoryItem) {
	if item.Kind != types.MediaImage || !imagetools.IsDataURI(item.URL) {
		return
	}
	meta := item.Meta()
	if meta.Width == 0 || meta.Height == 0 {
		if _, data, err := imagetools.DecodeDataURI(item.URL); err == nil {
			if w, h, err := imagetools.Dimensions(data); err == nil {
				meta.Width, meta.Height = w, h
				item.Metadata = datatypes.NewJSONType(meta)
			}
		}
	}
	if item.ThumbnailURL == "" {
		thumb, err := imagetools.ThumbnailDataURI(item.URL, s.opts.ThumbnailSize)
		if err != nil {
			s.log.Debug("Thumbnail skipped", "id", item.ID, "error", err)
			return
		}
		item.ThumbnailURL = thumb
	}
}

func (s *studioService) UpdateHistoryItem(ctx context.Context, id string, patch types.HistoryPatch) ([]*types.HistoryItem, error) {
	owner, err := s.owner()
	if err != nil {
		return nil, err
	}
	list, err := s.deps.History.Update(dbctx.Context{Ctx: ctx}, owner, id, patch)
	s.recordWrite("history", err)
	return list, err
}

// DeleteHistoryItem removes the record and releases stored video bytes behind it.
func (s *studioService) DeleteHistoryItem(ctx context.Context, id string) ([]*types.HistoryItem, error) {
	owner, err := s.owner()
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	existing, err := s.deps.History.GetByID(dbc, owner, id)
	if err != nil {
		return nil, err
	}
	list, err := s.deps.History.Delete(dbc, owner, id)
	s.recordWrite("history", err)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.release(ctx, owner, existing.URL)
	}
	return list, nil
}

func (s *studioService) ClearHistory(ctx context.Context) error {
	owner, err := s.owner()
	if err != nil {
		return err
	}
	dbc := dbctx.Context{Ctx: ctx}
	rows, err := s.deps.History.ListByOwner(dbc, owner)
	if err != nil {
		return err
	}
	err = s.deps.History.Clear(dbc, owner)
	s.recordWrite("history", err)
	if err != nil {
		return err
	}
	for _, r := range rows {
		s.release(ctx, owner, r.URL)
	}
	s.log.Info("History cleared", "owner_id", owner, "items", len(rows))
	return nil
}

func (s *studioService) release(ctx context.Context, owner, url string) {
	if s.deps.Media == nil || url == "" || imagetools.IsDataURI(url) {
		return
	}
	if err := s.deps.Media.Release(ctx, owner, url); err != nil {
		s.log.Warn("Could not release media", "handle", url, "error", err)
	}
}

func (s *studioService) ListAssets(ctx context.Context) []*types.ReferenceAsset {
	owner, err := s.owner()
	if err != nil {
		return []*types.ReferenceAsset{}
	}
	rows, err := s.deps.Assets.ListByOwner(dbctx.Context{Ctx: ctx}, owner)
	if err != nil {
		s.log.Error("Failed to load assets", "owner_id", owner, "error", err)
		return []*types.ReferenceAsset{}
	}
	return rows
}

func (s *studioService) SaveAsset(ctx context.Context, name string, img generation.Image) ([]*types.ReferenceAsset, error) {
	owner, err := s.owner()
	if err != nil {
		return nil, err
	}
	if len(img.Data) == 0 {
		return nil, apierr.Newf(apierr.KindInvalidRequest, "asset image is empty")
	}
	asset := &types.ReferenceAsset{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Content:   img.DataURI(),
		CreatedAt: s.opts.Now().UnixMilli(),
	}
	list, err := s.deps.Assets.Save(dbctx.Context{Ctx: ctx}, owner, asset)
	s.recordWrite("assets", err)
	return list, err
}

func (s *studioService) DeleteAsset(ctx context.Context, id string) ([]*types.ReferenceAsset, error) {
	owner, err := s.owner()
	if err != nil {
		return nil, err
	}
	list, err := s.deps.Assets.Delete(dbctx.Context{Ctx: ctx}, owner, id)
	s.recordWrite("assets", err)
	return list, err
}

func (s *studioService) SuggestTags(ctx context.Context) []string {
	return workflow.SuggestTags(s.ListHistory(ctx))
}

func (s *studioService) ApplySuggestedTag(ctx context.Context, draft *workflow.Draft, tag string) workflow.TagOutcome {
	out := workflow.ApplySuggestedTag(draft, s.ListHistory(ctx), tag)
	if out.CapacityWarning {
		s.log.Info("Reference limit reached; tag added without reference", "tag", tag)
	}
	if out.Err != nil {
		s.log.Warn("Tagged image could not be used as a reference", "tag", tag, "error", out.Err)
	}
	return out
}

func (s *studioService) recordWrite(collection string, err error) {
	status := "ok"
	if err != nil {
		status = string(apierr.KindOf(err))
		if status == "" {
			status = "error"
		}
	}
	s.deps.Metrics.IncStoreWrite(collection, status)
}
