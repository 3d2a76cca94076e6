package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm sentinel", err: gorm.ErrDuplicatedKey, want: true},
		{name: "pgx any constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "products_name_key"}, want: true},
		{name: "pgx named constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "products_name_key"}, constraint: "products_name_key", want: true},
		{name: "pgx other constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, constraint: "products_name_key", want: false},
		{name: "pgx wrapped", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), want: true},
		{name: "pq", err: &pq.Error{Code: "23505", Constraint: "wishlist_items_user_product_key"}, want: true},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: products.name"), want: true},
		{name: "check is not unique", err: &pgconn.PgError{Code: "23514"}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUniqueViolation(tc.err, tc.constraint))
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(gorm.ErrForeignKeyViolated, ""))
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503", ConstraintName: "reviews_product_id_fkey"}, "reviews_product_id_fkey"))
	assert.True(t, IsForeignKeyViolation(&pq.Error{Code: "23503"}, ""))
	assert.True(t, IsForeignKeyViolation(errors.New("FOREIGN KEY constraint failed"), ""))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}, ""))
	assert.False(t, IsForeignKeyViolation(errors.New("connection reset"), ""))
}

func TestIsCheckViolation(t *testing.T) {
	assert.True(t, IsCheckViolation(&pgconn.PgError{Code: "23514", ConstraintName: "products_stock_check"}, "products_stock_check"))
	assert.False(t, IsCheckViolation(&pgconn.PgError{Code: "23514", ConstraintName: "products_price_check"}, "products_stock_check"))
	assert.True(t, IsCheckViolation(errors.New("CHECK constraint failed: stock >= 0"), ""))
	assert.True(t, IsCheckViolation(gorm.ErrCheckConstraintViolated, ""))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("load: %w", gorm.ErrRecordNotFound)))
	assert.False(t, IsNotFound(errors.New("boom")))
}
