package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/creator-studio/internal/data/repos/creations"
	"github.com/yungbote/creator-studio/internal/platform/logger"
)

type HistoryRepo = creations.HistoryRepo
type AssetRepo = creations.AssetRepo

func NewHistoryRepo(db *gorm.DB, baseLog *logger.Logger) HistoryRepo {
	return creations.NewHistoryRepo(db, baseLog)
}
func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	return creations.NewAssetRepo(db, baseLog)
}
