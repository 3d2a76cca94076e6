package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderItemRequest is one requested line; price and name come from the catalog.
type OrderItemRequest struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Size      string `json:"size" validate:"max=16"`
	Color     string `json:"color" validate:"max=32"`
}

// CustomerRequest carries the contact details stored on the order.
type CustomerRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"max=32"`
}

// CheckoutDetails is the part of an order submission shared by direct orders
// and cart checkout.
type CheckoutDetails struct {
	Customer        CustomerRequest  `json:"customer"`
	ShippingAddress types.Address    `json:"shippingAddress"`
	TotalAmount     *decimal.Decimal `json:"totalAmount" validate:"omitempty,money"`
	Notes           string           `json:"notes" validate:"max=1000"`
}

// ToInput maps the details onto an order submission for userID (nil for guests).
func (d CheckoutDetails) ToInput(userID *uuid.UUID) orders.CreateOrderInput {
	return orders.CreateOrderInput{
		UserID: userID,
		Customer: orders.CustomerInput{
			Name:  validators.SanitizeString(d.Customer.Name, 120),
			Email: d.Customer.Email,
			Phone: strings.TrimSpace(d.Customer.Phone),
		},
		ShippingAddress: d.ShippingAddress,
		TotalAmount:     d.TotalAmount,
		Notes:           validators.SanitizeMultiline(d.Notes, 1000),
	}
}

type orderCreateRequest struct {
	CheckoutDetails
	Items []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// OrderCreate places an order for a guest or a signed-in customer.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var body orderCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := body.ToInput(optionalUserID(r))
		input.Items = make([]orders.ItemInput, 0, len(body.Items))
		for _, item := range body.Items {
			input.Items = append(input.Items, orders.ItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Size:      item.Size,
				Color:     item.Color,
			})
		}

		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderDetail returns an order. Orders placed by an account are visible to that
// account and admins only; guest orders are addressed by id alone.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := uuidParam(r, "orderID", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorizeOrder(r, order); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderListMine lists the caller's orders, newest first.
func OrderListMine(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOrders(r.Context(), orders.ListOrdersInput{UserID: &userID, Pagination: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func authorizeOrder(r *http.Request, order *models.Order) error {
	if order.UserID == nil || middleware.IsAdmin(r.Context()) {
		return nil
	}
	caller := optionalUserID(r)
	if caller == nil || *caller != *order.UserID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
