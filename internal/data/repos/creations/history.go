package creations

import (
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/creator-studio/internal/domain/creations"
	"github.com/yungbote/creator-studio/internal/pkg/dbctx"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
	"github.com/yungbote/creator-studio/internal/platform/logger"
)

// HistoryRepo stores generated items per owner. Every mutation returns the owner's
// refreshed collection, newest first.
type HistoryRepo interface {
	ListByOwner(dbc dbctx.Context, ownerID string) ([]*types.HistoryItem, error)
	GetByID(dbc dbctx.Context, ownerID string, id string) (*types.HistoryItem, error)
	FindLatestByTag(dbc dbctx.Context, ownerID string, kind types.MediaKind, tag string) (*types.HistoryItem, error)

	Put(dbc dbctx.Context, ownerID string, item *types.HistoryItem) ([]*types.HistoryItem, error)
	Update(dbc dbctx.Context, ownerID string, id string, patch types.HistoryPatch) ([]*types.HistoryItem, error)
	Delete(dbc dbctx.Context, ownerID string, id string) ([]*types.HistoryItem, error)
	Clear(dbc dbctx.Context, ownerID string) error
}

type historyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHistoryRepo(db *gorm.DB, baseLog *logger.Logger) HistoryRepo {
	return &historyRepo{db: db, log: baseLog.With("repo", "HistoryRepo")}
}

func (r *historyRepo) ListByOwner(dbc dbctx.Context, ownerID string) ([]*types.HistoryItem, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.HistoryItem{}
	if strings.TrimSpace(ownerID) == "" {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("pk ASC").
		Find(&out).Error; err != nil {
		return nil, apierr.New(apierr.KindStorageUnavailable, "list history", err)
	}
	return out, nil
}

func (r *historyRepo) GetByID(dbc dbctx.Context, ownerID string, id string) (*types.HistoryItem, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.HistoryItem
	if err := t.WithContext(dbc.Ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, apierr.New(apierr.KindStorageUnavailable, "get history item", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *historyRepo) FindLatestByTag(dbc dbctx.Context, ownerID string, kind types.MediaKind, tag string) (*types.HistoryItem, error) {
	if strings.TrimSpace(tag) == "" {
		return nil, nil
	}
	rows, err := r.ListByOwner(dbc, ownerID)
	if err != nil {
		return nil, err
	}
	return types.LatestWithTag(rows, kind, tag), nil
}

func (r *historyRepo) Put(dbc dbctx.Context, ownerID string, item *types.HistoryItem) ([]*types.HistoryItem, error) {
	if err := validateItem(ownerID, item); err != nil {
		return nil, err
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	row := *item
	row.OwnerID = ownerID
	row.PK = 0
	if row.Tags == nil {
		row.Tags = datatypes.JSONSlice[string]{}
	}

	err := t.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var existing []*types.HistoryItem
		if err := tx.Where("owner_id = ? AND id = ?", ownerID, row.ID).Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			// replacing keeps the original insertion slot
			row.PK = existing[0].PK
			return tx.Save(&row).Error
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		r.log.Warn("Put history item failed", "owner_id", ownerID, "id", row.ID, "error", err)
		return nil, apierr.New(apierr.KindStorageUnavailable, "save history item", err)
	}
	return r.ListByOwner(dbc, ownerID)
}

func (r *historyRepo) Update(dbc dbctx.Context, ownerID string, id string, patch types.HistoryPatch) ([]*types.HistoryItem, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	err := t.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var rows []*types.HistoryItem
		if err := tx.Where("owner_id = ? AND id = ?", ownerID, id).Limit(1).Find(&rows).Error; err != nil {
			return apierr.New(apierr.KindStorageUnavailable, "load history item", err)
		}
		if len(rows) == 0 {
			return apierr.Newf(apierr.KindNotFound, "history item %q not found", id)
		}
		row := rows[0]
		if patch.Empty() {
			return nil
		}
		if patch.Tags != nil {
			row.Tags = datatypes.JSONSlice[string](cleanTags(*patch.Tags))
		}
		if patch.Prompt != nil {
			row.Prompt = *patch.Prompt
		}
		if patch.ThumbnailURL != nil {
			row.ThumbnailURL = *patch.ThumbnailURL
		}
		if patch.Metadata != nil {
			row.Metadata = datatypes.NewJSONType(*patch.Metadata)
		}
		if err := tx.Save(row).Error; err != nil {
			return apierr.New(apierr.KindStorageUnavailable, "update history item", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.ListByOwner(dbc, ownerID)
}

func (r *historyRepo) Delete(dbc dbctx.Context, ownerID string, id string) ([]*types.HistoryItem, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, apierr.Newf(apierr.KindInvalidRequest, "owner id is required")
	}
	if err := t.WithContext(dbc.Ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&types.HistoryItem{}).Error; err != nil {
		return nil, apierr.New(apierr.KindStorageUnavailable, "delete history item", err)
	}
	return r.ListByOwner(dbc, ownerID)
}

func (r *historyRepo) Clear(dbc dbctx.Context, ownerID string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if strings.TrimSpace(ownerID) == "" {
		return apierr.Newf(apierr.KindInvalidRequest, "owner id is required")
	}
	if err := t.WithContext(dbc.Ctx).
		Where("owner_id = ?", ownerID).
		Delete(&types.HistoryItem{}).Error; err != nil {
		return apierr.New(apierr.KindStorageUnavailable, "clear history", err)
	}
	return nil
}

func validateItem(ownerID string, item *types.HistoryItem) error {
	switch {
	case strings.TrimSpace(ownerID) == "":
		return apierr.Newf(apierr.KindInvalidRequest, "owner id is required")
	case item == nil:
		return apierr.Newf(apierr.KindInvalidRequest, "history item is required")
	case strings.TrimSpace(item.ID) == "":
		return apierr.Newf(apierr.KindInvalidRequest, "history item id is required")
	case !item.Kind.Valid():
		return apierr.Newf(apierr.KindInvalidRequest, "unknown media type %q", item.Kind)
	}
	return nil
}

func cleanTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, tag := range in {
		tag = strings.TrimSpace(tag)
		if tag == "" || types.ContainsTag(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}
