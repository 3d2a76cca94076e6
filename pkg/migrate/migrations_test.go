package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func TestEmbeddedMigrationsValidate(t *testing.T) {
	n, err := Validate(Embedded())
	if err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 migrations, got %d", n)
	}

	onDisk, err := Validate(Source("migrations"))
	if err != nil || onDisk != n {
		t.Fatalf("embedded and on-disk sets differ: %d vs %d (%v)", n, onDisk, err)
	}
}

func TestValidateRejects(t *testing.T) {
	good := "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	cases := map[string]fstest.MapFS{
		"bad name": {
			"add_things.sql": {Data: []byte(good)},
		},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte(good)},
			"20260101000000_b.sql": {Data: []byte(good)},
		},
		"missing down": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Validate(fsys); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	n, err := Validate(fstest.MapFS{
		"README.md":            {Data: []byte("notes")},
		"20260101000000_a.sql": {Data: []byte(good)},
	})
	if err != nil || n != 1 {
		t.Fatalf("non-sql files should be ignored: n=%d err=%v", n, err)
	}
}

func TestProductsMigrationGuardsStock(t *testing.T) {
	content := readMigration(t, "*_create_products_table.sql")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS products",
		"stock integer NOT NULL DEFAULT 0 CHECK (stock >= 0)",
		"CONSTRAINT products_name_key UNIQUE (name)",
		"CHECK (category IN ('Essential', 'Premium', 'Limited', 'Seasonal'))",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationStatusConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders_table.sql")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"items jsonb NOT NULL",
		"'pending','confirmed','processing','dispatched','shipped','delivered','cancelled','rejected'",
		"'pending','completed','failed','refunded'",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestWishlistMigrationUniquePerUserProduct(t *testing.T) {
	content := readMigration(t, "*_create_wishlist_items_table.sql")
	if !strings.Contains(content, "CONSTRAINT wishlist_items_user_product_key UNIQUE (user_id, product_id)") {
		t.Fatalf("wishlist uniqueness constraint missing")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 10, 1, 12, 30, 0, 0, time.UTC)

	path, err := createAt(dir, "Add Order Notes!", at)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20261001123000_add_order_notes.sql" {
		t.Fatalf("unexpected filename %s", path)
	}
	if _, err := Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := createAt(dir, "add order notes", at); err == nil {
		t.Fatal("expected an error for an existing migration")
	}
	if _, err := createAt(dir, "!!!", at); err == nil {
		t.Fatal("expected an error for an unusable name")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := fs.Glob(Embedded(), pattern)
	if err != nil || len(matches) == 0 {
		t.Fatalf("no migration matching %s (%v)", pattern, err)
	}
	data, err := fs.ReadFile(Embedded(), matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	return string(data)
}
