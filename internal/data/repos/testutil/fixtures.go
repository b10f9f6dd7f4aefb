package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/creator-studio/internal/domain/creations"
)

func SeedHistoryItem(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID string, kind types.MediaKind, createdAt int64, tags ...string) *types.HistoryItem {
	tb.Helper()
	if tags == nil {
		tags = []string{}
	}
	item := &types.HistoryItem{
		OwnerID:   ownerID,
		ID:        uuid.NewString(),
		Kind:      kind,
		URL:       "data:image/png;base64,iVBORw0KGgo=",
		Prompt:    "seed",
		Tags:      datatypes.JSONSlice[string](tags),
		CreatedAt: createdAt,
		Metadata:  datatypes.NewJSONType(types.Metadata{Model: "seed"}),
	}
	if err := tx.WithContext(ctx).Create(item).Error; err != nil {
		tb.Fatalf("seed history item: %v", err)
	}
	return item
}
