package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/creator-studio/internal/data/repos"
	"github.com/yungbote/creator-studio/internal/platform/logger"
)

type Repos struct {
	History repos.HistoryRepo
	Assets  repos.AssetRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		History: repos.NewHistoryRepo(db, log),
		Assets:  repos.NewAssetRepo(db, log),
	}
}
