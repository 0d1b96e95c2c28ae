package models

import (
	"time"

	"gorm.io/gorm"
)

// Image is the catalog row for one logical asset. Ids are generated by the
// application (snowflake), never by the database. One storage path is kept
// per ladder rung plus the original upload.
type Image struct {
	ID            int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	UID           int64  `gorm:"index;not null" json:"uid"`
	PID           string `gorm:"type:varchar(255);not null" json:"pid"`
	Authority     string `gorm:"type:varchar(255);not null" json:"authority"`
	OriginalWidth int    `gorm:"type:int;not null" json:"original_width"`
	OriginalPath  string `gorm:"type:varchar(255);not null" json:"original_path"`
	W320Path      string `gorm:"column:width_320_path;type:varchar(255);not null" json:"width_320_path"`
	W640Path      string `gorm:"column:width_640_path;type:varchar(255);not null" json:"width_640_path"`
	W960Path      string `gorm:"column:width_960_path;type:varchar(255);not null" json:"width_960_path"`
	W1280Path     string `gorm:"column:width_1280_path;type:varchar(255);not null" json:"width_1280_path"`
	W1600Path     string `gorm:"column:width_1600_path;type:varchar(255);not null" json:"width_1600_path"`
	W1920Path     string `gorm:"column:width_1920_path;type:varchar(255);not null" json:"width_1920_path"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Image) TableName() string {
	return "images"
}

// VariantPaths returns the ladder paths in ascending width order.
func (i *Image) VariantPaths() []string {
	return []string{i.W320Path, i.W640Path, i.W960Path, i.W1280Path, i.W1600Path, i.W1920Path}
}

// AllPaths returns every object the catalog row points at, original included.
func (i *Image) AllPaths() []string {
	return append(i.VariantPaths(), i.OriginalPath)
}
