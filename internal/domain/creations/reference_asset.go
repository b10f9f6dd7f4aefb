package creations

// ReferenceAsset is an uploaded character/reference image. Content is immutable:
// replacing it means deleting and saving a new asset.
type ReferenceAsset struct {
	PK        int64  `gorm:"column:pk;primaryKey;autoIncrement" json:"-"`
	OwnerID   string `gorm:"column:owner_id;not null;default:'';uniqueIndex:idx_asset_owner_item,priority:1;index:idx_asset_owner_created,priority:1" json:"userId"`
	ID        string `gorm:"column:id;not null;uniqueIndex:idx_asset_owner_item,priority:2" json:"id"`
	Name      string `gorm:"column:name" json:"name"`
	Content   string `gorm:"column:content;not null" json:"url"`
	CreatedAt int64  `gorm:"column:created_at;not null;autoCreateTime:false;index:idx_asset_owner_created,priority:2" json:"createdAt"`
}

func (ReferenceAsset) TableName() string { return "reference_asset" }
