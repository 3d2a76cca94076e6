package reviews

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists product reviews.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to a GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

type reviewRecord struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	UserName  string
	ProductID int64
	Rating    int
	Comment   *string
	CreatedAt time.Time
}

// ListByProduct returns the reviews of a product newest first, joined with the
// reviewer's display name.
func (r *Repository) ListByProduct(ctx context.Context, productID int64) ([]ReviewDTO, error) {
	var rows []reviewRecord
	err := r.db.WithContext(ctx).
		Table("reviews rv").
		Select("rv.id, rv.user_id, u.name AS user_name, rv.product_id, rv.rating, rv.comment, rv.created_at").
		Joins("JOIN users u ON u.id = rv.user_id").
		Where("rv.product_id = ?", productID).
		Order("rv.created_at DESC").
		Order("rv.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ReviewDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ReviewDTO{
			ID:        row.ID,
			UserID:    row.UserID,
			UserName:  row.UserName,
			ProductID: row.ProductID,
			Rating:    row.Rating,
			Comment:   row.Comment,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

// Create inserts a review.
func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// FindByID loads a single review.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// Delete removes a review.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Review{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UserExists reports whether the reviewer account exists.
func (r *Repository) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
