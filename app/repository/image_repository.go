package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ShiinaKin/random-img/app/models"
)

// ErrNoIdentifier is returned when neither an id nor an owner id was supplied.
var ErrNoIdentifier = errors.New("repository: need id or uid")

// imageRepository implements the ImageRepository interface
type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new image repository instance
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

// BatchInsert writes all staged catalog rows in a single transaction.
func (r *imageRepository) BatchInsert(images []models.Image) error {
	if len(images) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&images).Error
	})
}

// GetByID retrieves a live image by its id. gorm's default scope hides
// tombstoned rows on every read path.
func (r *imageRepository) GetByID(id int64) (*models.Image, error) {
	var image models.Image
	if err := r.db.First(&image, id).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// GetByIDOrUID retrieves all live images matching an id or an owner id.
func (r *imageRepository) GetByIDOrUID(id, uid *int64) ([]models.Image, error) {
	var images []models.Image
	query := r.db
	switch {
	case id != nil:
		query = query.Where("id = ?", *id)
	case uid != nil:
		query = query.Where("uid = ?", *uid)
	default:
		return nil, ErrNoIdentifier
	}
	err := query.Find(&images).Error
	return images, err
}

// RandomPick samples one live row uniformly. The ordering happens in the
// database so the pick is uniform over whatever matches the filter at read
// time, and a result is guaranteed whenever at least one row matches.
func (r *imageRepository) RandomPick(uid *int64) (*models.Image, error) {
	var image models.Image
	query := r.db
	if uid != nil {
		query = query.Where("uid = ?", *uid)
	}
	if err := query.Order("RAND()").Limit(1).Take(&image).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// SoftDeleteByIDs tombstones the given images in one batch update.
func (r *imageRepository) SoftDeleteByIDs(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.Image{}).Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"deleted_at": time.Now(),
			"updated_at": time.Now(),
		}).Error
}

// PurgeDeleted hard-deletes tombstoned rows. Soft-deleted rows are invisible
// to every lookup path, so no live read can depend on them.
func (r *imageRepository) PurgeDeleted() (int64, error) {
	result := r.db.Unscoped().Where("deleted_at IS NOT NULL").Delete(&models.Image{})
	return result.RowsAffected, result.Error
}

// DeleteAllPhysically removes every catalog row, live or tombstoned.
func (r *imageRepository) DeleteAllPhysically() (int64, error) {
	result := r.db.Unscoped().Where("1 = 1").Delete(&models.Image{})
	return result.RowsAffected, result.Error
}

// Count returns the number of live images
func (r *imageRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Image{}).Count(&count).Error
	return count, err
}
