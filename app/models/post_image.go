package models

import (
	"time"

	"gorm.io/gorm"
)

// PostImage memoizes which asset a referring context (origin + post id)
// resolved to, so repeated random picks from the same post stay stable. The
// resolved URL is denormalized including its query condition. No uniqueness
// constraint is enforced; lookups take the first live match.
type PostImage struct {
	ID             int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Origin         string `gorm:"type:varchar(255);index:idx_post_images_context;not null" json:"origin"`
	PostID         string `gorm:"type:varchar(255);index:idx_post_images_context;not null" json:"post_id"`
	ImageID        int64  `gorm:"index;not null" json:"image_id"`
	QueryCondition string `gorm:"type:varchar(255)" json:"query_condition"`
	URL            string `gorm:"type:varchar(512);not null" json:"url"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (PostImage) TableName() string {
	return "post_images"
}
