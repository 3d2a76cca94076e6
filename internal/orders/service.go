package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service drives the order lifecycle: creation, approval with stock deduction,
// fulfillment transitions and the independent payment dimension.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	ApproveOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	RejectOrder(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, input UpdateStatusInput) (*models.Order, error)
	SetPaymentStatus(ctx context.Context, orderID uuid.UUID, update PaymentUpdate) (*models.Order, error)
	AttachPaymentRef(ctx context.Context, orderID uuid.UUID, ref string) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	recorder TransitionRecorder
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds an order service. recorder may be nil.
func NewService(repo Repository, tx txRunner, recorder TransitionRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		recorder: recorder,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	name := strings.TrimSpace(input.Customer.Name)
	email := strings.ToLower(strings.TrimSpace(input.Customer.Email))
	fieldErrors := map[string]string{}
	if name == "" {
		fieldErrors["customer.name"] = "required"
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		fieldErrors["customer.email"] = "must be a valid email"
	}
	for i, item := range input.Items {
		if item.Quantity < 1 {
			fieldErrors[fmt.Sprintf("items[%d].quantity", i)] = "must be at least 1"
		}
	}
	if len(fieldErrors) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order").WithDetails(fieldErrors)
	}

	products, err := s.repo.FindProducts(ctx, distinctProductIDs(input.Items))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	items, err := snapshotItems(input.Items, products)
	if err != nil {
		return nil, err
	}

	total := items.Total().Round(2)
	if input.TotalAmount != nil && input.TotalAmount.Sub(total).Abs().GreaterThan(TotalTolerance) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total does not match item prices").WithDetails(map[string]string{
			"submitted": input.TotalAmount.StringFixed(2),
			"computed":  total.StringFixed(2),
		})
	}

	now := s.now()
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          input.UserID,
		Items:           items,
		CustomerName:    name,
		CustomerEmail:   email,
		CustomerPhone:   optionalString(input.Customer.Phone),
		ShippingAddress: input.ShippingAddress.Normalize(),
		TotalAmount:     total,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		Notes:           optionalString(input.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return order, nil
}

// ApproveOrder confirms a pending order and deducts stock for every line in one
// transaction. Any failing line rolls the whole approval back.
func (s *service) ApproveOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var approved *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return notPending(order.Status)
		}

		products, err := repo.FindProducts(ctx, order.Items.ProductIDs())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}

		var (
			failures []StockFailure
			errs     error
		)
		for _, item := range aggregateDemand(order.Items) {
			product, ok := products[item.ProductID]
			if !ok {
				failures = append(failures, StockFailure{
					ProductID: item.ProductID,
					Name:      item.Name,
					Requested: item.Quantity,
					Reason:    FailureProductMissing,
				})
				errs = multierr.Append(errs, fmt.Errorf("product %d: %s", item.ProductID, FailureProductMissing))
				continue
			}

			deducted, err := repo.DeductStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deduct stock")
			}
			if !deducted {
				available := product.Stock
				failures = append(failures, StockFailure{
					ProductID: item.ProductID,
					Name:      item.Name,
					Requested: item.Quantity,
					Available: &available,
					Reason:    FailureInsufficientStock,
				})
				errs = multierr.Append(errs, fmt.Errorf("product %d: %s", item.ProductID, FailureInsufficientStock))
			}
		}
		if errs != nil {
			return pkgerrors.Wrap(pkgerrors.CodeOutOfStock, errs, "order cannot be fulfilled").WithDetails(failures)
		}

		swapped, err := repo.CompareAndSetStatus(ctx, orderID, enums.OrderStatusPending, enums.OrderStatusConfirmed, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending")
		}

		approved, err = loadOrder(ctx, repo, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(enums.OrderStatusPending, enums.OrderStatusConfirmed)
	return approved, nil
}

func (s *service) RejectOrder(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error) {
	order, err := loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, notPending(order.Status)
	}

	updates := map[string]any{}
	if reason = strings.TrimSpace(reason); reason != "" {
		updates["notes"] = appendNote(order.Notes, "Rejected: "+reason)
	}
	swapped, err := s.repo.CompareAndSetStatus(ctx, orderID, enums.OrderStatusPending, enums.OrderStatusRejected, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject order")
	}
	if !swapped {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending")
	}

	s.recordTransition(enums.OrderStatusPending, enums.OrderStatusRejected)
	return loadOrder(ctx, s.repo, orderID)
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, input UpdateStatusInput) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	order, err := loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if !canAdvance(order.Status, status) {
		return nil, pkgerrors.InvalidTransition("status", order.Status.String(), status.String())
	}

	updates := map[string]any{}
	if input.TrackingNumber != nil {
		updates["tracking_number"] = optionalString(*input.TrackingNumber)
	}
	if input.Notes != nil && strings.TrimSpace(*input.Notes) != "" {
		updates["notes"] = appendNote(order.Notes, strings.TrimSpace(*input.Notes))
	}
	swapped, err := s.repo.CompareAndSetStatus(ctx, orderID, order.Status, status, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !swapped {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}

	s.recordTransition(order.Status, status)
	return loadOrder(ctx, s.repo, orderID)
}

// SetPaymentStatus moves the payment dimension only; order status is never touched.
func (s *service) SetPaymentStatus(ctx context.Context, orderID uuid.UUID, update PaymentUpdate) (*models.Order, error) {
	sources, ok := paymentSources[update.Status]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	if update.Method != nil && !update.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	order, err := loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if update.Status == enums.PaymentStatusCompleted && settlesAs(order, update) == enums.PaymentMethodCOD &&
		order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cash on delivery is collected once the order is delivered")
	}

	values := map[string]any{"payment_status": update.Status}
	if update.Method != nil {
		values["payment_method"] = update.Method.String()
	}
	if update.Ref != nil {
		values["payment_ref"] = *update.Ref
	}
	if update.GatewayPaymentID != nil {
		values["gateway_payment_id"] = *update.GatewayPaymentID
	}

	swapped, err := s.repo.CompareAndSetPayment(ctx, orderID, sources, values)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
	}
	if !swapped {
		return nil, pkgerrors.InvalidTransition("payment status", order.PaymentStatus.String(), update.Status.String())
	}
	return loadOrder(ctx, s.repo, orderID)
}

// settlesAs is the payment method in effect after update is applied.
func settlesAs(order *models.Order, update PaymentUpdate) enums.PaymentMethod {
	if update.Method != nil {
		return *update.Method
	}
	if order.PaymentMethod != nil {
		return enums.PaymentMethod(*order.PaymentMethod)
	}
	return ""
}

// AttachPaymentRef records the processor's intent reference while payment is open.
func (s *service) AttachPaymentRef(ctx context.Context, orderID uuid.UUID, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	if _, err := loadOrder(ctx, s.repo, orderID); err != nil {
		return err
	}
	swapped, err := s.repo.CompareAndSetPayment(ctx, orderID, paymentSources[enums.PaymentStatusPending], map[string]any{
		"payment_ref": ref,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment reference")
	}
	if !swapped {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order payment is already settled")
	}
	return nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return loadOrder(ctx, s.repo, orderID)
}

func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	pageSize := input.Pagination.Size()
	rows, err := s.repo.List(ctx, listQuery{
		Status: input.Status,
		Email:  strings.ToLower(strings.TrimSpace(input.Email)),
		UserID: input.UserID,
		Cursor: cursor,
		Limit:  pageSize + 1,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	list := &OrderList{}
	list.Orders, list.NextCursor = pagination.Trim(rows, pageSize, func(o models.Order) string {
		return pagination.EncodeCursor(pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID})
	})
	return list, nil
}

func (s *service) recordTransition(from, to enums.OrderStatus) {
	if s.recorder != nil {
		s.recorder.OrderTransition(from.String(), to.String())
	}
}

func loadOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.NotFound("order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func notPending(status enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending").WithDetails(map[string]string{
		"status": status.String(),
	})
}

func snapshotItems(inputs []ItemInput, products map[int64]models.Product) (models.OrderItems, error) {
	var missing []int64
	fieldErrors := map[string]string{}
	items := make(models.OrderItems, 0, len(inputs))
	for i, input := range inputs {
		product, ok := products[input.ProductID]
		if !ok {
			missing = append(missing, input.ProductID)
			continue
		}
		size := strings.TrimSpace(input.Size)
		color := strings.TrimSpace(input.Color)
		if size != "" && len(product.Sizes) > 0 && !containsFold(product.Sizes, size) {
			fieldErrors[fmt.Sprintf("items[%d].size", i)] = "not offered for this product"
		}
		if color != "" && len(product.Colors) > 0 && !containsFold(product.Colors, color) {
			fieldErrors[fmt.Sprintf("items[%d].color", i)] = "not offered for this product"
		}
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  input.Quantity,
			Size:      size,
			Color:     color,
		})
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown products in order").WithDetails(map[string]any{
			"missingProductIds": missing,
		})
	}
	if len(fieldErrors) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order items").WithDetails(fieldErrors)
	}
	return items, nil
}

func distinctProductIDs(items []ItemInput) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

func appendNote(existing *string, note string) string {
	if existing == nil || strings.TrimSpace(*existing) == "" {
		return note
	}
	return *existing + "\n" + note
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

type lineDemand struct {
	ProductID int64
	Name      string
	Quantity  int
}

// aggregateDemand sums quantities per product and orders them by product id, so
// concurrent approvals lock product rows in the same order.
func aggregateDemand(items models.OrderItems) []lineDemand {
	byID := make(map[int64]*lineDemand, len(items))
	out := make([]lineDemand, 0, len(items))
	for _, item := range items {
		if existing, ok := byID[item.ProductID]; ok {
			existing.Quantity += item.Quantity
			continue
		}
		out = append(out, lineDemand{ProductID: item.ProductID, Name: item.Name, Quantity: item.Quantity})
		byID[item.ProductID] = &out[len(out)-1]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
