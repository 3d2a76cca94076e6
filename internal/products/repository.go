package product

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository wraps catalog persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
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

// listQuery narrows the catalog listing. A zero Limit returns every match.
type listQuery struct {
	Category *enums.ProductCategory
	Search   string
	AfterID  int64
	Limit    int
}

// FindByID loads a single product.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads the requested products keyed by id. Missing ids are absent from the map.
func (r *Repository) FindByIDs(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	out := make(map[int64]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *Repository) list(ctx context.Context, query listQuery) ([]models.Product, error) {
	qb := r.db.WithContext(ctx).Model(&models.Product{})
	if query.Category != nil {
		qb = qb.Where("category = ?", *query.Category)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)", pattern, pattern)
	}
	if query.AfterID > 0 {
		qb = qb.Where("id > ?", query.AfterID)
	}
	qb = qb.Order("id ASC")
	if query.Limit > 0 {
		qb = qb.Limit(query.Limit)
	}

	var rows []models.Product
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update persists every column except stock, which only moves through AdjustStock
// and order approval.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Model(product).Omit("stock", "created_at").Select("*").Updates(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product by ID, returning gorm.ErrRecordNotFound when nothing matched.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdjustStock applies delta to the stock counter in a single statement that refuses
// to go below zero. It reports whether a row was changed.
func (r *Repository) AdjustStock(ctx context.Context, id int64, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RecomputeRating refreshes the cached rating average and review count from the
// reviews table.
func (r *Repository) RecomputeRating(ctx context.Context, id int64) error {
	type aggregate struct {
		Count int64
		Avg   *float64
	}
	var agg aggregate
	if err := r.db.WithContext(ctx).
		Table("reviews").
		Select("COUNT(*) AS count, AVG(rating) AS avg").
		Where("product_id = ?", id).
		Scan(&agg).Error; err != nil {
		return err
	}

	avg := 0.0
	if agg.Avg != nil {
		avg = *agg.Avg
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"rating":       roundRating(avg),
			"review_count": agg.Count,
			"updated_at":   time.Now().UTC(),
		}).Error
}
