package wishlist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddItem inserts a wishlist entry. Duplicates surface as unique violations.
func (r *Repository) AddItem(ctx context.Context, item *models.WishlistItem) error {
	if item.UserID == uuid.Nil || item.ProductID == 0 {
		return gorm.ErrInvalidValue
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// RemoveItem deletes the user-product entry and reports whether one existed.
func (r *Repository) RemoveItem(ctx context.Context, userID uuid.UUID, productID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListByUser returns the user's saved products, most recently saved first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]ItemDTO, error) {
	var entries []models.WishlistItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []ItemDTO{}, nil
	}

	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ProductID)
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]ItemDTO, 0, len(entries))
	for _, entry := range entries {
		p, ok := byID[entry.ProductID]
		if !ok {
			continue
		}
		items = append(items, ItemDTO{ID: entry.ID, Product: p, CreatedAt: entry.CreatedAt})
	}
	return items, nil
}
