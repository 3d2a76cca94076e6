package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CatalogReader resolves the product behind a cart line.
type CatalogReader interface {
	Get(ctx context.Context, id int64) (*models.Product, error)
}

// OrderCreator places the order at checkout.
type OrderCreator interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error)
}

// AddInput is a request to put a product in the cart.
type AddInput struct {
	ProductID int64
	Quantity  int
	Size      string
	Color     string
}

// LineKey identifies an existing cart line.
type LineKey struct {
	ProductID int64
	Size      string
	Color     string
}

// View is the cart as returned to clients.
type View struct {
	Items        []Item          `json:"items"`
	Total        decimal.Decimal `json:"total"`
	ItemCount    int             `json:"itemCount"`
	StockLimited bool            `json:"stockLimited,omitempty"`
	ExpiresAt    *time.Time      `json:"expiresAt,omitempty"`
	// PriceChanges and Unavailable list what the catalog changed since the
	// lines were added.
	PriceChanges []PriceChange `json:"priceChanges,omitempty"`
	Unavailable  []int64       `json:"unavailable,omitempty"`
}

// catalogDrift collects what a refresh changed in the cart.
type catalogDrift struct {
	prices      []PriceChange
	unavailable []int64
	limited     bool
}

func (d catalogDrift) changed() bool {
	return len(d.prices) > 0 || len(d.unavailable) > 0 || d.limited
}

func (d catalogDrift) annotate(view *View) *View {
	view.PriceChanges = d.prices
	view.Unavailable = d.unavailable
	view.StockLimited = view.StockLimited || d.limited
	return view
}

// Service is the session cart. Carts are keyed by an opaque token issued to the
// client.
type Service interface {
	Get(ctx context.Context, token string) (*View, error)
	AddItem(ctx context.Context, token string, input AddInput) (*View, error)
	UpdateQuantity(ctx context.Context, token string, key LineKey, quantity int) (*View, error)
	RemoveItem(ctx context.Context, token string, key LineKey) (*View, error)
	Clear(ctx context.Context, token string) error
	Checkout(ctx context.Context, token string, input orders.CreateOrderInput) (*models.Order, error)
}

type service struct {
	store   Store
	catalog CatalogReader
	orders  OrderCreator
	ttl     time.Duration
	now     func() time.Time
	logg    *logger.Logger
}

// NewService builds the cart service. A zero ttl uses DefaultTTL.
func NewService(store Store, catalog CatalogReader, creator OrderCreator, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if creator == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &service{
		store:   store,
		catalog: catalog,
		orders:  creator,
		ttl:     ttl,
		now:     time.Now,
		logg:    logg,
	}, nil
}

// Get returns the cart repriced against the catalog. Any drift is saved and
// reported on the view.
func (s *service) Get(ctx context.Context, token string) (*View, error) {
	c, expiresAt, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	drift, err := s.refresh(ctx, token, c, expiresAt)
	if err != nil {
		return nil, err
	}
	return drift.annotate(buildView(c, expiresAt, false)), nil
}

func (s *service) AddItem(ctx context.Context, token string, input AddInput) (*View, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, ErrInvalidQuantity.Error())
	}

	product, err := s.catalog.Get(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	size := strings.TrimSpace(input.Size)
	color := strings.TrimSpace(input.Color)
	if size != "" && len(product.Sizes) > 0 && !containsFold(product.Sizes, size) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size %q is not offered", size))
	}
	if color != "" && len(product.Colors) > 0 && !containsFold(product.Colors, color) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("color %q is not offered", color))
	}

	c, _, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	stock := product.Stock
	result, err := c.AddItem(Item{
		ProductID:    product.ID,
		Name:         product.Name,
		Price:        product.Price,
		Size:         size,
		Color:        color,
		Quantity:     input.Quantity,
		StockCeiling: &stock,
	})
	if err != nil {
		return nil, mapCartError(err, product.ID)
	}
	return s.save(ctx, token, c, result.StockLimited)
}

func (s *service) UpdateQuantity(ctx context.Context, token string, key LineKey, quantity int) (*View, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}
	c, expiresAt, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	drift, err := s.refresh(ctx, token, c, expiresAt)
	if err != nil {
		return nil, err
	}
	result, err := c.UpdateQuantity(key.ProductID, key.Size, key.Color, quantity)
	if err != nil {
		return nil, mapCartError(err, key.ProductID)
	}
	view, err := s.save(ctx, token, c, result.StockLimited)
	if err != nil {
		return nil, err
	}
	return drift.annotate(view), nil
}

func (s *service) RemoveItem(ctx context.Context, token string, key LineKey) (*View, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}
	c, _, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	c.RemoveItem(key.ProductID, key.Size, key.Color)
	return s.save(ctx, token, c, false)
}

func (s *service) Clear(ctx context.Context, token string) error {
	if err := validateToken(token); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Checkout turns the cart into an order. A cart that drifted from the catalog
// is saved repriced and refused with CONFLICT so the shopper can review it;
// the next attempt goes through. The cart is only cleared once the order
// exists.
func (s *service) Checkout(ctx context.Context, token string, input orders.CreateOrderInput) (*models.Order, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}
	c, expiresAt, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	drift, err := s.refresh(ctx, token, c, expiresAt)
	if err != nil {
		return nil, err
	}
	if drift.changed() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed since it was last viewed").
			WithDetails(drift.annotate(buildView(c, expiresAt, false)))
	}

	input.Items = make([]orders.ItemInput, 0, len(c.Items))
	for _, item := range c.Items {
		input.Items = append(input.Items, orders.ItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
		})
	}
	total := c.Total()
	input.TotalAmount = &total

	order, err := s.orders.CreateOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, token); err != nil && s.logg != nil {
		// The order stands even if the cart lingers.
		logCtx := s.logg.WithOrderID(s.logg.WithCartToken(ctx, token), order.ID.String())
		s.logg.Error(logCtx, "cart.checkout.clear_failed", err)
	}
	return order, nil
}

// refresh reprices c from the catalog and persists it, keeping its expiry,
// when anything moved. Products that no longer exist are dropped.
func (s *service) refresh(ctx context.Context, token string, c *Cart, expiresAt *time.Time) (catalogDrift, error) {
	var drift catalogDrift
	for _, id := range c.ProductIDs() {
		product, err := s.catalog.Get(ctx, id)
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			c.RemoveProduct(id)
			drift.unavailable = append(drift.unavailable, id)
			continue
		}
		if err != nil {
			return drift, err
		}
		change, limited := c.Reprice(product.ID, product.Name, product.Price, product.Stock)
		if change != nil {
			drift.prices = append(drift.prices, *change)
		}
		drift.limited = drift.limited || limited
	}
	if !drift.changed() {
		return drift, nil
	}

	if len(c.Items) == 0 || expiresAt == nil {
		if err := s.store.Delete(ctx, token); err != nil {
			return drift, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return drift, nil
	}
	if err := s.store.Save(ctx, token, Record{Items: c.Items, ExpiresAt: *expiresAt}); err != nil {
		return drift, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return drift, nil
}

func (s *service) load(ctx context.Context, token string) (*Cart, *time.Time, error) {
	if err := validateToken(token); err != nil {
		return nil, nil, err
	}
	record, err := s.store.Load(ctx, token)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if record == nil {
		return &Cart{}, nil, nil
	}
	if !record.ExpiresAt.IsZero() && !s.now().Before(record.ExpiresAt) {
		if err := s.store.Delete(ctx, token); err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop expired cart")
		}
		return &Cart{}, nil, nil
	}
	expiresAt := record.ExpiresAt
	return &Cart{Items: record.Items}, &expiresAt, nil
}

func (s *service) save(ctx context.Context, token string, c *Cart, limited bool) (*View, error) {
	if len(c.Items) == 0 {
		if err := s.store.Delete(ctx, token); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return buildView(c, nil, limited), nil
	}
	expiresAt := s.now().Add(s.ttl)
	if err := s.store.Save(ctx, token, Record{Items: c.Items, ExpiresAt: expiresAt}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return buildView(c, &expiresAt, limited), nil
}

func buildView(c *Cart, expiresAt *time.Time, limited bool) *View {
	items := c.Items
	if len(items) == 0 {
		items = []Item{}
		expiresAt = nil
	}
	return &View{
		Items:        items,
		Total:        c.Total(),
		ItemCount:    c.ItemCount(),
		StockLimited: limited,
		ExpiresAt:    expiresAt,
	}
}

func mapCartError(err error, productID int64) error {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	case errors.Is(err, ErrOutOfStock):
		return pkgerrors.New(pkgerrors.CodeOutOfStock, err.Error()).
			WithDetails(map[string]any{"productId": productID})
	case errors.Is(err, ErrItemNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, err.Error())
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart")
	}
}

func validateToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart token required")
	}
	return nil
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}
