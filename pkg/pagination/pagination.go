// Package pagination implements keyset paging for the catalog and order lists.
// Cursors are opaque to clients: URL-safe base64 of a small JSON document.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// ErrInvalidCursor is returned for any cursor this package did not produce.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params carries the client's limit and cursor.
type Params struct {
	Limit  int
	Cursor string
}

// Size clamps the requested limit into [1, MaxLimit], defaulting when unset.
func (p Params) Size() int {
	return NormalizeLimit(p.Limit)
}

func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Cursor positions an order listing sorted by (created_at DESC, id DESC).
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        uuid.UUID `json:"id"`
}

type idCursor struct {
	After int64 `json:"after"`
}

func encode(v any) string {
	raw, _ := json.Marshal(v)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decode(value string, dst any) error {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return ErrInvalidCursor
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return ErrInvalidCursor
	}
	return nil
}

func EncodeCursor(c Cursor) string {
	c.CreatedAt = c.CreatedAt.UTC()
	return encode(c)
}

// ParseCursor returns nil for an empty value.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var c Cursor
	if err := decode(value, &c); err != nil {
		return nil, err
	}
	if c.CreatedAt.IsZero() || c.ID == uuid.Nil {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// EncodeIDCursor positions a listing sorted by ascending integer id.
func EncodeIDCursor(id int64) string {
	return encode(idCursor{After: id})
}

// ParseIDCursor returns 0 for an empty value.
func ParseIDCursor(value string) (int64, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	var c idCursor
	if err := decode(value, &c); err != nil {
		return 0, err
	}
	if c.After <= 0 {
		return 0, ErrInvalidCursor
	}
	return c.After, nil
}

// Trim cuts rows fetched with size+1 down to size. When a further page
// exists it returns the cursor built from the last kept row.
func Trim[T any](rows []T, size int, cursorOf func(T) string) ([]T, string) {
	if rows == nil {
		rows = []T{}
	}
	if len(rows) <= size {
		return rows, ""
	}
	rows = rows[:size]
	return rows, cursorOf(rows[size-1])
}
