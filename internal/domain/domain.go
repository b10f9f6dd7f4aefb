package domain

import (
	"github.com/yungbote/creator-studio/internal/domain/creations"
	"github.com/yungbote/creator-studio/internal/domain/user"
)

type (
	User           = user.User
	MediaKind      = creations.MediaKind
	Metadata       = creations.Metadata
	HistoryItem    = creations.HistoryItem
	HistoryPatch   = creations.HistoryPatch
	ReferenceAsset = creations.ReferenceAsset
)

const (
	MediaImage = creations.MediaImage
	MediaVideo = creations.MediaVideo
	MediaAudio = creations.MediaAudio
)
