package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	minRating        = 1
	maxRating        = 5
	maxCommentLength = 2000
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages product reviews and keeps the cached product rating current.
type Service interface {
	ListByProduct(ctx context.Context, productID int64) ([]ReviewDTO, error)
	Create(ctx context.Context, input CreateInput) (*ReviewDTO, error)
	Delete(ctx context.Context, reviewID uuid.UUID, actor Actor) error
}

type service struct {
	repo     *Repository
	products *product.Repository
	tx       txRunner
	now      func() time.Time
}

// NewService wires the review service.
func NewService(repo *Repository, products *product.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     repo,
		products: products,
		tx:       tx,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) ListByProduct(ctx context.Context, productID int64) ([]ReviewDTO, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, mapLoadError(err, "product not found")
	}
	rows, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return rows, nil
}

// Create stores the review and refreshes the product's rating and review count
// in the same transaction.
func (s *service) Create(ctx context.Context, input CreateInput) (*ReviewDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to leave a review")
	}
	if input.Rating < minRating || input.Rating > maxRating {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
			WithDetails(map[string]string{"rating": "must be between 1 and 5"})
	}
	comment := strings.TrimSpace(input.Comment)
	if len(comment) > maxCommentLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment is too long").
			WithDetails(map[string]string{"comment": fmt.Sprintf("must be at most %d characters", maxCommentLength)})
	}

	review := &models.Review{
		ID:        uuid.New(),
		UserID:    input.UserID,
		ProductID: input.ProductID,
		Rating:    input.Rating,
		CreatedAt: s.now(),
	}
	if comment != "" {
		review.Comment = &comment
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)

		if _, err := products.FindByID(ctx, input.ProductID); err != nil {
			return mapLoadError(err, "product not found")
		}
		exists, err := repo.UserExists(ctx, input.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		if !exists {
			return pkgerrors.NotFound("user")
		}
		if err := repo.Create(ctx, review); err != nil {
			if db.IsForeignKeyViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
		}
		if err := products.RecomputeRating(ctx, input.ProductID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product rating")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ReviewDTO{
		ID:        review.ID,
		UserID:    review.UserID,
		ProductID: review.ProductID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
	}, nil
}

// Delete removes a review. Only its author or an admin may do so.
func (s *service) Delete(ctx context.Context, reviewID uuid.UUID, actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		review, err := repo.FindByID(ctx, reviewID)
		if err != nil {
			return mapLoadError(err, "review not found")
		}
		if review.UserID != actor.UserID && !actor.IsAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the author or an admin can delete this review")
		}
		if err := repo.Delete(ctx, reviewID); err != nil {
			return mapLoadError(err, "review not found")
		}
		if err := s.products.WithTx(tx).RecomputeRating(ctx, review.ProductID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product rating")
		}
		return nil
	})
}

func mapLoadError(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load record")
}
