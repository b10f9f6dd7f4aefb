package creations

import (
	"strings"

	"gorm.io/datatypes"
)

type MediaKind string

const (
	MediaImage MediaKind = "IMAGE"
	MediaVideo MediaKind = "VIDEO"
	MediaAudio MediaKind = "AUDIO"
)

func (k MediaKind) Valid() bool {
	switch k {
	case MediaImage, MediaVideo, MediaAudio:
		return true
	default:
		return false
	}
}

// Metadata is optional; width/height only make sense for IMAGE and VIDEO.
type Metadata struct {
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Model       string `json:"model,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
}

func (m Metadata) IsZero() bool { return m == Metadata{} }

// HistoryItem is one generated asset in a user's gallery.
// PK is a surrogate insertion counter; (OwnerID, ID) is the identity.
type HistoryItem struct {
	PK           int64                        `gorm:"column:pk;primaryKey;autoIncrement" json:"-"`
	OwnerID      string                       `gorm:"column:owner_id;not null;default:'';uniqueIndex:idx_history_owner_item,priority:1;index:idx_history_owner_created,priority:1" json:"userId"`
	ID           string                       `gorm:"column:id;not null;uniqueIndex:idx_history_owner_item,priority:2" json:"id"`
	Kind         MediaKind                    `gorm:"column:kind;not null" json:"type"`
	URL          string                       `gorm:"column:url;not null" json:"url"`
	ThumbnailURL string                       `gorm:"column:thumbnail_url;not null;default:''" json:"thumbnailUrl,omitempty"`
	Prompt       string                       `gorm:"column:prompt" json:"prompt"`
	Tags         datatypes.JSONSlice[string]  `gorm:"column:tags;not null;default:'[]'" json:"tags"`
	CreatedAt    int64                        `gorm:"column:created_at;not null;autoCreateTime:false;index:idx_history_owner_created,priority:2" json:"createdAt"`
	Metadata     datatypes.JSONType[Metadata] `gorm:"column:metadata;not null;default:'{}'" json:"metadata"`
}

func (HistoryItem) TableName() string { return "history_item" }

func (h *HistoryItem) Meta() Metadata { return h.Metadata.Data() }

// HasTag compares case-insensitively.
func (h *HistoryItem) HasTag(tag string) bool {
	return ContainsTag(h.Tags, tag)
}

func ContainsTag(tags []string, tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, t := range tags {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

// LatestWithTag scans a newest-first list for the first item of kind carrying tag.
// An empty kind matches any kind.
func LatestWithTag(rows []*HistoryItem, kind MediaKind, tag string) *HistoryItem {
	if strings.TrimSpace(tag) == "" {
		return nil
	}
	for _, row := range rows {
		if row == nil || (kind != "" && row.Kind != kind) {
			continue
		}
		if row.HasTag(tag) {
			return row
		}
	}
	return nil
}

// HistoryPatch lists the mutable fields of a history item. Nil fields are left alone.
type HistoryPatch struct {
	Tags         *[]string
	Prompt       *string
	ThumbnailURL *string
	Metadata     *Metadata
}

func (p HistoryPatch) Empty() bool {
	return p.Tags == nil && p.Prompt == nil && p.ThumbnailURL == nil && p.Metadata == nil
}
