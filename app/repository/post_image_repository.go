package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/ShiinaKin/random-img/app/models"
)

// postImageRepository implements the PostImageRepository interface
type postImageRepository struct {
	db *gorm.DB
}

// NewPostImageRepository creates a new post image repository instance
func NewPostImageRepository(db *gorm.DB) PostImageRepository {
	return &postImageRepository{db: db}
}

func (r *postImageRepository) Insert(postImage *models.PostImage) error {
	return r.db.Create(postImage).Error
}

// GetByContext returns the first live mapping for (origin, postID). Duplicate
// mappings are tolerated; first match wins.
func (r *postImageRepository) GetByContext(origin, postID string) (*models.PostImage, error) {
	var postImage models.PostImage
	err := r.db.Where("origin = ? AND post_id = ?", origin, postID).
		Order("id").First(&postImage).Error
	if err != nil {
		return nil, err
	}
	return &postImage, nil
}

func (r *postImageRepository) SoftDeleteByID(id int64) error {
	return r.softDelete(r.db.Where("id = ?", id))
}

func (r *postImageRepository) SoftDeleteByImageIDs(imageIDs []int64) error {
	if len(imageIDs) == 0 {
		return nil
	}
	return r.softDelete(r.db.Where("image_id IN ?", imageIDs))
}

func (r *postImageRepository) SoftDeleteByContext(origin, postID string) error {
	return r.softDelete(r.db.Where("origin = ? AND post_id = ?", origin, postID))
}

func (r *postImageRepository) softDelete(query *gorm.DB) error {
	return query.Model(&models.PostImage{}).
		Updates(map[string]interface{}{
			"deleted_at": time.Now(),
			"updated_at": time.Now(),
		}).Error
}

// PurgeDeleted hard-deletes tombstoned mappings and mappings whose catalog
// row no longer exists.
func (r *postImageRepository) PurgeDeleted() (int64, error) {
	result := r.db.Unscoped().Where("deleted_at IS NOT NULL").Delete(&models.PostImage{})
	if result.Error != nil {
		return result.RowsAffected, result.Error
	}
	purged := result.RowsAffected

	orphans := r.db.Unscoped().
		Where("image_id NOT IN (?)", r.db.Unscoped().Model(&models.Image{}).Select("id")).
		Delete(&models.PostImage{})
	return purged + orphans.RowsAffected, orphans.Error
}

func (r *postImageRepository) DeleteAllPhysically() (int64, error) {
	result := r.db.Unscoped().Where("1 = 1").Delete(&models.PostImage{})
	return result.RowsAffected, result.Error
}
