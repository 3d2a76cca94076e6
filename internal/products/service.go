package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const productNameConstraint = "products_name_key"

// Service exposes catalog reads and admin product management.
type Service interface {
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Update(ctx context.Context, id int64, input UpdateInput) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, text string) ([]models.Product, error)
	FilterByCategory(ctx context.Context, category enums.ProductCategory) ([]models.Product, error)
	AdjustStock(ctx context.Context, id int64, delta int) (*models.Product, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	afterID, err := pagination.ParseIDCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	pageSize := input.Pagination.Size()
	rows, err := s.repo.list(ctx, listQuery{
		Category: input.Category,
		Search:   input.Search,
		AfterID:  afterID,
		Limit:    pageSize + 1,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	result := &ListResult{}
	result.Products, result.NextCursor = pagination.Trim(rows, pageSize, func(p models.Product) string {
		return pagination.EncodeIDCursor(p.ID)
	})
	return result, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return product, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}

	sizes := input.Sizes
	if len(sizes) == 0 {
		sizes = enums.DefaultProductSizes
	}

	product := &models.Product{
		Name:            name,
		Price:           input.Price.Round(2),
		Category:        input.Category,
		Colors:          toArray(input.Colors),
		Sizes:           toArray(sizes),
		Stock:           input.Stock,
		Rating:          decimal.Zero,
		Features:        toArray(input.Features),
		Description:     trimmedPtr(input.Description),
		FullDescription: trimmedPtr(input.FullDescription),
		Image:           trimmedPtr(input.Image),
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, mapWriteError(err, "create product")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id int64, input UpdateInput) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if err := applyUpdate(product, input); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, mapWriteError(err, "update product")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapLoadError(err)
	}
	return nil
}

func (s *service) Search(ctx context.Context, text string) ([]models.Product, error) {
	if strings.TrimSpace(text) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search text is required")
	}
	rows, err := s.repo.list(ctx, listQuery{Search: text})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search products")
	}
	return rows, nil
}

func (s *service) FilterByCategory(ctx context.Context, category enums.ProductCategory) ([]models.Product, error) {
	if !category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	rows, err := s.repo.list(ctx, listQuery{Category: &category})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "filter products")
	}
	return rows, nil
}

// AdjustStock moves the stock counter by delta. A negative delta that would take
// the counter below zero is refused and nothing changes.
func (s *service) AdjustStock(ctx context.Context, id int64, delta int) (*models.Product, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-zero")
	}

	applied, err := s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		// The stock >= 0 CHECK backs the guarded update.
		if !db.IsCheckViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
		}
		applied = false
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !applied {
		return nil, pkgerrors.InsufficientStock(product.ID, product.Stock, -delta)
	}
	return product, nil
}

func mapWriteError(err error, action string) error {
	switch {
	case db.IsUniqueViolation(err, productNameConstraint), db.IsUniqueViolation(err, "products.name"):
		return pkgerrors.New(pkgerrors.CodeConflict, "product name already exists")
	case db.IsCheckViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "product values out of range")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func mapLoadError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.NotFound("product")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}

func applyUpdate(product *models.Product, input UpdateInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = name
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
		}
		product.Price = input.Price.Round(2)
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
		}
		product.Category = *input.Category
	}
	if input.Colors != nil {
		product.Colors = toArray(*input.Colors)
	}
	if input.Sizes != nil {
		product.Sizes = toArray(*input.Sizes)
	}
	if input.Features != nil {
		product.Features = toArray(*input.Features)
	}
	if input.Description != nil {
		product.Description = trimmedPtr(input.Description)
	}
	if input.FullDescription != nil {
		product.FullDescription = trimmedPtr(input.FullDescription)
	}
	if input.Image != nil {
		product.Image = trimmedPtr(input.Image)
	}
	return nil
}

func toArray(values []string) pq.StringArray {
	out := make(pq.StringArray, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func roundRating(avg float64) decimal.Decimal {
	return decimal.NewFromFloat(avg).Round(2)
}
