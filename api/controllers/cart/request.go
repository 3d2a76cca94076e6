package cart

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
)

// TokenHeader carries the opaque cart session token in both directions.
const TokenHeader = middleware.CartTokenHeader

type addItemRequest struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Size      string `json:"size" validate:"max=16"`
	Color     string `json:"color" validate:"max=32"`
}

type updateItemRequest struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size" validate:"max=16"`
	Color     string `json:"color" validate:"max=32"`
}

type removeItemRequest struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Size      string `json:"size" validate:"max=16"`
	Color     string `json:"color" validate:"max=32"`
}

func (r addItemRequest) toInput() cartsvc.AddInput {
	return cartsvc.AddInput{ProductID: r.ProductID, Quantity: r.Quantity, Size: r.Size, Color: r.Color}
}

func lineKey(productID int64, size, color string) cartsvc.LineKey {
	return cartsvc.LineKey{ProductID: productID, Size: size, Color: color}
}

// sessionToken reads the cart token, issuing a fresh one when the client has
// none. The token is always echoed back on the response.
func sessionToken(w http.ResponseWriter, r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get(TokenHeader))
	if token == "" {
		token = uuid.NewString()
	}
	w.Header().Set(TokenHeader, token)
	return token
}
