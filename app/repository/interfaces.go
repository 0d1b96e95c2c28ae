package repository

import (
	"github.com/ShiinaKin/random-img/app/models"
)

// ImageRepository defines data access for the asset catalog
type ImageRepository interface {
	// BatchInsert writes all staged rows in one transaction
	BatchInsert(images []models.Image) error
	// GetByID returns the live row with the given id
	GetByID(id int64) (*models.Image, error)
	// GetByIDOrUID returns all live rows matching either an exact id or an owner id
	GetByIDOrUID(id, uid *int64) ([]models.Image, error)
	// RandomPick samples one live row uniformly, optionally filtered by owner
	RandomPick(uid *int64) (*models.Image, error)
	// SoftDeleteByIDs tombstones the given rows in one batch update
	SoftDeleteByIDs(ids []int64) error
	// PurgeDeleted hard-deletes all tombstoned rows
	PurgeDeleted() (int64, error)
	// DeleteAllPhysically removes every row, live or tombstoned
	DeleteAllPhysically() (int64, error)
	Count() (int64, error)
}

// PostImageRepository defines data access for the context affinity map
type PostImageRepository interface {
	Insert(postImage *models.PostImage) error
	// GetByContext returns the first live mapping for (origin, postID)
	GetByContext(origin, postID string) (*models.PostImage, error)
	SoftDeleteByID(id int64) error
	SoftDeleteByImageIDs(imageIDs []int64) error
	SoftDeleteByContext(origin, postID string) error
	// PurgeDeleted hard-deletes tombstoned rows plus rows whose image is gone
	PurgeDeleted() (int64, error)
	DeleteAllPhysically() (int64, error)
}
