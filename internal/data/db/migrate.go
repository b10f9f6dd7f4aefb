package db

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/creator-studio/internal/domain/creations"
	"github.com/yungbote/creator-studio/internal/platform/logger"
)

// SchemaMigration records an applied schema version.
type SchemaMigration struct {
	Version   int       `gorm:"column:version;primaryKey;autoIncrement:false"`
	Name      string    `gorm:"column:name;not null"`
	AppliedAt time.Time `gorm:"column:applied_at;not null"`
}

func (SchemaMigration) TableName() string { return "schema_migration" }

type migration struct {
	version int
	name    string
	up      func(tx *gorm.DB) error
}

// Migrations are additive: they add tables, columns and indexes but never drop or
// rewrite stored records.
var migrations = []migration{
	{version: 1, name: "create_collections", up: createCollectionsV1},
	{version: 2, name: "partition_by_owner", up: partitionByOwnerV2},
	{version: 3, name: "history_thumbnails", up: historyThumbnailsV3},
}

// LatestVersion is the schema version Migrate brings a database to.
func LatestVersion() int { return migrations[len(migrations)-1].version }

func Migrate(db *gorm.DB, log *logger.Logger) error {
	return migrateTo(db, log, LatestVersion())
}

func migrateTo(db *gorm.DB, log *logger.Logger, target int) error {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("create schema_migration: %w", err)
	}
	var applied []SchemaMigration
	if err := db.Find(&applied).Error; err != nil {
		return fmt.Errorf("load schema_migration: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, m := range applied {
		done[m.Version] = true
	}

	for _, m := range migrations {
		if m.version > target || done[m.version] {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Version: m.version, Name: m.name, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if log != nil {
			log.Info("Schema migration applied", "version", m.version, "name", m.name)
		}
	}
	return nil
}

// CurrentVersion returns the highest applied version, 0 for a fresh database.
func CurrentVersion(db *gorm.DB) (int, error) {
	if !db.Migrator().HasTable(&SchemaMigration{}) {
		return 0, nil
	}
	var v int
	if err := db.Model(&SchemaMigration{}).Select("COALESCE(MAX(version), 0)").Scan(&v).Error; err != nil {
		return 0, err
	}
	return v, nil
}

// v1 is the single-user layout: records keyed by id alone, no owner column.

type historyItemV1 struct {
	PK        int64                       `gorm:"column:pk;primaryKey;autoIncrement"`
	ID        string                      `gorm:"column:id;not null;uniqueIndex:idx_history_legacy_id"`
	Kind      string                      `gorm:"column:kind;not null"`
	URL       string                      `gorm:"column:url;not null"`
	Prompt    string                      `gorm:"column:prompt"`
	Tags      datatypes.JSONSlice[string] `gorm:"column:tags;not null;default:'[]'"`
	CreatedAt int64                       `gorm:"column:created_at;not null;autoCreateTime:false;index:idx_history_legacy_created"`
	Metadata  datatypes.JSON              `gorm:"column:metadata;not null;default:'{}'"`
}

func (historyItemV1) TableName() string { return "history_item" }

type referenceAssetV1 struct {
	PK        int64  `gorm:"column:pk;primaryKey;autoIncrement"`
	ID        string `gorm:"column:id;not null;uniqueIndex:idx_asset_legacy_id"`
	Name      string `gorm:"column:name"`
	Content   string `gorm:"column:content;not null"`
	CreatedAt int64  `gorm:"column:created_at;not null;autoCreateTime:false;index:idx_asset_legacy_created"`
}

func (referenceAssetV1) TableName() string { return "reference_asset" }

func createCollectionsV1(tx *gorm.DB) error {
	m := tx.Migrator()
	if !m.HasTable(&historyItemV1{}) {
		if err := m.CreateTable(&historyItemV1{}); err != nil {
			return fmt.Errorf("create history_item: %w", err)
		}
	}
	if !m.HasTable(&referenceAssetV1{}) {
		if err := m.CreateTable(&referenceAssetV1{}); err != nil {
			return fmt.Errorf("create reference_asset: %w", err)
		}
	}
	return nil
}

// v2 partitions both collections by owner. Existing rows keep owner_id = "".
func partitionByOwnerV2(tx *gorm.DB) error {
	steps := []struct {
		model       interface{}
		legacy      interface{}
		legacyIdx   []string
		ownerIdxs   []string
		description string
	}{
		{
			model:       &creations.HistoryItem{},
			legacy:      &historyItemV1{},
			legacyIdx:   []string{"idx_history_legacy_id", "idx_history_legacy_created"},
			ownerIdxs:   []string{"idx_history_owner_item", "idx_history_owner_created"},
			description: "history_item",
		},
		{
			model:       &creations.ReferenceAsset{},
			legacy:      &referenceAssetV1{},
			legacyIdx:   []string{"idx_asset_legacy_id", "idx_asset_legacy_created"},
			ownerIdxs:   []string{"idx_asset_owner_item", "idx_asset_owner_created"},
			description: "reference_asset",
		},
	}
	m := tx.Migrator()
	for _, s := range steps {
		if !m.HasColumn(s.model, "owner_id") {
			if err := m.AddColumn(s.model, "OwnerID"); err != nil {
				return fmt.Errorf("%s add owner_id: %w", s.description, err)
			}
		}
		// the id-only unique index would reject the same id under two owners
		for _, idx := range s.legacyIdx {
			if m.HasIndex(s.legacy, idx) {
				if err := m.DropIndex(s.legacy, idx); err != nil {
					return fmt.Errorf("%s drop %s: %w", s.description, idx, err)
				}
			}
		}
		for _, idx := range s.ownerIdxs {
			if !m.HasIndex(s.model, idx) {
				if err := m.CreateIndex(s.model, idx); err != nil {
					return fmt.Errorf("%s create %s: %w", s.description, idx, err)
				}
			}
		}
	}
	return nil
}

func historyThumbnailsV3(tx *gorm.DB) error {
	m := tx.Migrator()
	if m.HasColumn(&creations.HistoryItem{}, "thumbnail_url") {
		return nil
	}
	if err := m.AddColumn(&creations.HistoryItem{}, "ThumbnailURL"); err != nil {
		return fmt.Errorf("history_item add thumbnail_url: %w", err)
	}
	return nil
}
