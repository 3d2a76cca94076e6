// Package dbtest opens throwaway sqlite databases carrying the storefront schema.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

var schema = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  name TEXT NOT NULL,
  is_admin INTEGER NOT NULL DEFAULT 0,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  price NUMERIC NOT NULL,
  category TEXT NOT NULL,
  colors TEXT NOT NULL DEFAULT '{}',
  sizes TEXT NOT NULL DEFAULT '{}',
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  rating NUMERIC NOT NULL DEFAULT 0,
  review_count INTEGER NOT NULL DEFAULT 0,
  features TEXT NOT NULL DEFAULT '{}',
  description TEXT,
  full_description TEXT,
  image TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  items TEXT NOT NULL,
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  customer_phone TEXT,
  shipping_address TEXT NOT NULL DEFAULT '{}',
  total_amount NUMERIC NOT NULL,
  status TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  payment_method TEXT,
  payment_ref TEXT,
  gateway_payment_id TEXT,
  tracking_number TEXT,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE reviews (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id INTEGER NOT NULL,
  rating INTEGER NOT NULL,
  comment TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE wishlist_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id INTEGER NOT NULL,
  created_at DATETIME,
  UNIQUE (user_id, product_id)
);`,
}

// Open returns an isolated in-memory database with every storefront table created.
// The pool is pinned to one connection so concurrent transactions serialize the
// way row locks would on Postgres.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:storefront_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

// CreateProduct inserts a product with sensible defaults and the given stock.
func CreateProduct(t *testing.T, conn *gorm.DB, name string, price string, stock int) models.Product {
	t.Helper()

	product := models.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: enums.ProductCategoryEssential,
		Colors:   pq.StringArray{"black", "white"},
		Sizes:    pq.StringArray(enums.DefaultProductSizes),
		Stock:    stock,
		Rating:   decimal.Zero,
		Features: pq.StringArray{},
	}
	require.NoError(t, conn.WithContext(context.Background()).Create(&product).Error)
	return product
}

// CreateUser inserts a user row.
func CreateUser(t *testing.T, conn *gorm.DB, email string, isAdmin bool) models.User {
	t.Helper()

	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "not-a-real-hash",
		Name:         "Test " + email,
		IsAdmin:      isAdmin,
	}
	require.NoError(t, conn.WithContext(context.Background()).Create(&user).Error)
	return user
}

// ProductStock reads the persisted stock counter.
func ProductStock(t *testing.T, conn *gorm.DB, id int64) int {
	t.Helper()

	var stock int
	require.NoError(t, conn.Raw("SELECT stock FROM products WHERE id = ?", id).Scan(&stock).Error)
	return stock
}
