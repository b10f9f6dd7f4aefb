package creations

import (
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/creator-studio/internal/domain/creations"
	"github.com/yungbote/creator-studio/internal/pkg/dbctx"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
	"github.com/yungbote/creator-studio/internal/platform/logger"
)

type AssetRepo interface {
	ListByOwner(dbc dbctx.Context, ownerID string) ([]*types.ReferenceAsset, error)
	Save(dbc dbctx.Context, ownerID string, asset *types.ReferenceAsset) ([]*types.ReferenceAsset, error)
	Delete(dbc dbctx.Context, ownerID string, id string) ([]*types.ReferenceAsset, error)
}

type assetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	return &assetRepo{db: db, log: baseLog.With("repo", "AssetRepo")}
}

func (r *assetRepo) ListByOwner(dbc dbctx.Context, ownerID string) ([]*types.ReferenceAsset, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.ReferenceAsset{}
	if strings.TrimSpace(ownerID) == "" {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("pk ASC").
		Find(&out).Error; err != nil {
		return nil, apierr.New(apierr.KindStorageUnavailable, "list assets", err)
	}
	return out, nil
}

// Save inserts asset. Saving an existing id again is a no-op when the content is
// unchanged and rejected otherwise.
func (r *assetRepo) Save(dbc dbctx.Context, ownerID string, asset *types.ReferenceAsset) ([]*types.ReferenceAsset, error) {
	switch {
	case strings.TrimSpace(ownerID) == "":
		return nil, apierr.Newf(apierr.KindInvalidRequest, "owner id is required")
	case asset == nil || strings.TrimSpace(asset.ID) == "":
		return nil, apierr.Newf(apierr.KindInvalidRequest, "asset id is required")
	case strings.TrimSpace(asset.Content) == "":
		return nil, apierr.Newf(apierr.KindInvalidRequest, "asset content is required")
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	row := *asset
	row.OwnerID = ownerID
	row.PK = 0

	err := t.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var existing []*types.ReferenceAsset
		if err := tx.Where("owner_id = ? AND id = ?", ownerID, row.ID).Limit(1).Find(&existing).Error; err != nil {
			return apierr.New(apierr.KindStorageUnavailable, "load asset", err)
		}
		if len(existing) > 0 {
			if existing[0].Content != row.Content {
				return apierr.Newf(apierr.KindInvalidRequest, "asset %q content is immutable; delete and recreate it", row.ID)
			}
			return nil
		}
		if err := tx.Create(&row).Error; err != nil {
			return apierr.New(apierr.KindStorageUnavailable, "save asset", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.ListByOwner(dbc, ownerID)
}

func (r *assetRepo) Delete(dbc dbctx.Context, ownerID string, id string) ([]*types.ReferenceAsset, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, apierr.Newf(apierr.KindInvalidRequest, "owner id is required")
	}
	if err := t.WithContext(dbc.Ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&types.ReferenceAsset{}).Error; err != nil {
		return nil, apierr.New(apierr.KindStorageUnavailable, "delete asset", err)
	}
	return r.ListByOwner(dbc, ownerID)
}
