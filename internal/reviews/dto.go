package reviews

import (
	"time"

	"github.com/google/uuid"
)

// ReviewDTO is a review as shown on a product page.
type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	UserName  string    `json:"userName"`
	ProductID int64     `json:"productId"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateInput is a new review from a signed-in user.
type CreateInput struct {
	UserID    uuid.UUID
	ProductID int64
	Rating    int
	Comment   string
}

// Actor is the caller attempting a moderation action.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}
