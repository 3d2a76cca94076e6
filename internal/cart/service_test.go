package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
)

type fakeKV struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", redisclient.Nil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
		delete(f.ttls, k)
	}
	return nil
}

func (f *fakeKV) CartKey(token string) string { return "cart:" + token }

type fixture struct {
	svc      *service
	store    Store
	conn     *gorm.DB
	orders   orders.Service
	clock    time.Time
	products product.Service
}

func newFixture(t *testing.T, store Store) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	products, err := product.NewService(product.NewRepository(conn))
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orders.NewRepository(conn), db.Wrap(conn), nil)
	require.NoError(t, err)

	svc, err := NewService(store, products, orderSvc, 0, nil)
	require.NoError(t, err)
	f := &fixture{
		svc:      svc.(*service),
		store:    store,
		conn:     conn,
		orders:   orderSvc,
		products: products,
		clock:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func checkoutInput() orders.CreateOrderInput {
	return orders.CreateOrderInput{
		Customer: orders.CustomerInput{Name: "Ada", Email: "ada@example.com"},
	}
}

func TestServiceAddCapturesCatalogAndClamps(t *testing.T) {
	f := newFixture(t, NewMemoryStore())
	ctx := context.Background()
	tee := dbtest.CreateProduct(t, f.conn, "Crew Tee", "25.00", 3)

	view, err := f.svc.AddItem(ctx, "tok", AddInput{ProductID: tee.ID, Quantity: 2, Size: "M", Color: "black"})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Crew Tee", view.Items[0].Name)
	assert.True(t, decimal.RequireFromString("25").Equal(view.Items[0].Price))
	require.NotNil(t, view.Items[0].StockCeiling)
	assert.Equal(t, 3, *view.Items[0].StockCeiling)
	assert.False(t, view.StockLimited)

	view, err = f.svc.AddItem(ctx, "tok", AddInput{ProductID: tee.ID, Quantity: 5, Size: "M", Color: "black"})
	require.NoError(t, err)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.True(t, view.StockLimited)
	assert.True(t, decimal.RequireFromString("75").Equal(view.Total))
	require.NotNil(t, view.ExpiresAt)
	assert.Equal(t, f.clock.Add(DefaultTTL), *view.ExpiresAt)
}

func TestServiceAddRejectsUnknownVariantsAndSoldOut(t *testing.T) {
	f := newFixture(t, NewMemoryStore())
	ctx := context.Background()
	tee := dbtest.CreateProduct(t, f.conn, "Crew Tee", "25.00", 3)
	soldOut := dbtest.CreateProduct(t, f.conn, "Sold Out Hoodie", "60.00", 0)

	_, err := f.svc.AddItem(ctx, "tok", AddInput{ProductID: tee.ID, Quantity: 1, Size: "XXXL"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.svc.AddItem(ctx, "tok", AddInput{ProductID: tee.ID, Quantity: 1, Color: "teal"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.svc.AddItem(ctx, "tok", AddInput{ProductID: soldOut.ID, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock), "got %v", err)

	_, err = f.svc.AddItem(ctx, "tok", AddInput{ProductID: 9999, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = f.svc.AddItem(ctx, "", AddInput{ProductID: tee.ID, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	view, err := f.svc.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestServiceUpdateRemoveAndClear(t *testing.T) {
	f := newFixture(t, NewMemoryStore())
	ctx := context.Background()
	tee := dbtest.CreateProduct(t, f.conn, "Crew Tee", "10.00", 5)
	hat := dbtest.CreateProduct(t, f.conn, "Dad Cap", "15.00", 5)

	_, err := f.svc.AddItem(ctx, "tok", AddInput{ProductID: tee.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "tok", AddInput{ProductID: hat.ID, Quantity: 1})
	require.NoError(t, err)

	view, err := f.svc.UpdateQuantity(ctx, "tok", LineKey{ProductID: tee.ID}, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, view.ItemCount)

	_, err = f.svc.UpdateQuantity(ctx, "tok", LineKey{ProductID: 404}, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	view, err = f.svc.RemoveItem(ctx, "tok", LineKey{ProductID: hat.ID})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.True(t, decimal.RequireFromString("40").Equal(view.Total))

	require.NoError(t, f.svc.Clear(ctx, "tok"))
	view, err = f.svc.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Nil(t, view.ExpiresAt)
}

func TestServiceDropsExpiredCart(t *testing.T) {
	store := NewMemoryStore()
	f := newFixture(t, store)
	ctx := context.Background()
	tee := dbtest.CreateProduct(t, f.conn, "Crew Tee", "10.00", 5)

	_, err := f.svc.AddItem(ctx, "tok", AddInput{ProductID: tee.ID, Quantity: 2})
	require.NoError(t, err)

	f.clock = f.clock.Add(DefaultTTL - time.Minute)
	view, err := f.svc.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)

	f.clock = f.clock.Add(2 * time.Minute)
	view, err = f.svc.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	record, err := store.Load(ctx, "tok")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestCheckoutClearsCartOnSuccess(t *testing.T) {
	f := newFixture(t, NewMemoryStore())
	ctx := context.Background()
	tee := dbtest.CreateProduct(t, f.conn, "Crew Tee", "19.99", 10)

	_, err := f.svc.AddItem(ctx, "tok", AddInput{ProductID: tee.ID, Quantity: 3, Size: "L", Color: "white"})
	require.NoError(t, err)

	order, err := f.svc.Checkout(ctx, "tok", checkoutInput())
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.True(t, decimal.RequireFromString("59.97").Equal(order.TotalAmount))
	require.Len(t, order.Items, 1)
	assert.Equal(t, "L", order.Items[0].Size)
	assert.Equal(t, 10, dbtest.ProductStock(t, f.conn, tee.ID), "stock moves on approval only")

	view, err := f.svc.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestCheckoutKeepsCartWhenOrderRejected(t *testing.T) {
	f := newFixture(t, NewMemoryStore())
	ctx := context.Background()
	tee := dbtest.CreateProduct(t, f.conn, "Crew Tee", "19.99", 10)

	_, err := f.svc.AddItem(ctx, "tok", AddInput{ProductID: tee.ID, Quantity: 2})
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, "tok", orders.CreateOrderInput{Customer: orders.CustomerInput{Name: "Ada"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "missing email: %v", err)

	view, err := f.svc.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Len(t, view.Items, 1, "cart survives a failed checkout")

	_, err = f.svc.Checkout(ctx, "empty", checkoutInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestCheckoutRepricesStaleCart(t *testing.T) {
	f := newFixture(t, NewMemoryStore())
	ctx := context.Background()
	tee := dbtest.CreateProduct(t, f.conn, "Crew Tee", "19.99", 10)

	_, err := f.svc.AddItem(ctx, "tok", AddInput{ProductID: tee.ID, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, f.conn.Exec("UPDATE products SET price = ? WHERE id = ?", "24.99", tee.ID).Error)

	_, err = f.svc.Checkout(ctx, "tok", checkoutInput())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	drifted, ok := typed.Details().(*View)
	require.True(t, ok, "details carry the repriced cart, got %T", typed.Details())
	require.Len(t, drifted.PriceChanges, 1)
	assert.True(t, decimal.RequireFromString("19.99").Equal(drifted.PriceChanges[0].OldPrice))
	assert.True(t, decimal.RequireFromString("24.99").Equal(drifted.PriceChanges[0].NewPrice))
	assert.True(t, decimal.RequireFromString("49.98").Equal(drifted.Total))

	order, err := f.svc.Checkout(ctx, "tok", checkoutInput())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("49.98").Equal(order.TotalAmount))
}

func TestGetReportsCatalogDrift(t *testing.T) {
	f := newFixture(t, NewMemoryStore())
	ctx := context.Background()
	tee := dbtest.CreateProduct(t, f.conn, "Crew Tee", "19.99", 10)
	hat := dbtest.CreateProduct(t, f.conn, "Dad Cap", "15.00", 5)

	added, err := f.svc.AddItem(ctx, "tok", AddInput{ProductID: tee.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "tok", AddInput{ProductID: hat.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, f.conn.Exec("UPDATE products SET price = ?, stock = ? WHERE id = ?", "24.99", 2, tee.ID).Error)
	require.NoError(t, f.products.Delete(ctx, hat.ID))
	f.clock = f.clock.Add(time.Hour)

	view, err := f.svc.Get(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.True(t, view.StockLimited)
	assert.Equal(t, []int64{hat.ID}, view.Unavailable)
	require.Len(t, view.PriceChanges, 1)
	assert.True(t, decimal.RequireFromString("49.98").Equal(view.Total))
	require.NotNil(t, view.ExpiresAt)
	assert.Equal(t, *added.ExpiresAt, *view.ExpiresAt, "a read does not extend the cart")

	again, err := f.svc.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Empty(t, again.PriceChanges, "drift is reported once")
	assert.Empty(t, again.Unavailable)

	order, err := f.svc.Checkout(ctx, "tok", checkoutInput())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("49.98").Equal(order.TotalAmount))
}

func TestUpdateQuantityUsesCurrentPrice(t *testing.T) {
	f := newFixture(t, NewMemoryStore())
	ctx := context.Background()
	tee := dbtest.CreateProduct(t, f.conn, "Crew Tee", "19.99", 10)

	_, err := f.svc.AddItem(ctx, "tok", AddInput{ProductID: tee.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, f.conn.Exec("UPDATE products SET price = ? WHERE id = ?", "24.99", tee.ID).Error)

	view, err := f.svc.UpdateQuantity(ctx, "tok", LineKey{ProductID: tee.ID}, 2)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("24.99").Equal(view.Items[0].Price))
	assert.True(t, decimal.RequireFromString("49.98").Equal(view.Total))
	require.Len(t, view.PriceChanges, 1)
}

type stickyStore struct {
	*MemoryStore
}

func (stickyStore) Delete(context.Context, string) error {
	return errors.New("redis: connection reset")
}

func TestCheckoutReturnsOrderWhenCartClearFails(t *testing.T) {
	f := newFixture(t, stickyStore{NewMemoryStore()})
	var logs bytes.Buffer
	f.svc.logg = logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: &logs})
	ctx := context.Background()
	tee := dbtest.CreateProduct(t, f.conn, "Crew Tee", "10.00", 10)

	_, err := f.svc.AddItem(ctx, "tok", AddInput{ProductID: tee.ID, Quantity: 1})
	require.NoError(t, err)

	order, err := f.svc.Checkout(ctx, "tok", checkoutInput())
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Contains(t, logs.String(), "cart.checkout.clear_failed")
	assert.Contains(t, logs.String(), order.ID.String())
}

func TestRedisStoreRoundTripsWithTTL(t *testing.T) {
	kv := newFakeKV()
	store := newRedisStore(kv)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	missing, err := store.Load(ctx, "tok")
	require.NoError(t, err)
	assert.Nil(t, missing)

	record := Record{
		Items:     []Item{{ProductID: 1, Name: "Crew Tee", Price: decimal.RequireFromString("19.99"), Quantity: 2}},
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, "tok", record))
	assert.Equal(t, time.Hour, kv.ttls["cart:tok"])

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(kv.values["cart:tok"]), &raw))
	assert.Contains(t, raw, "items")

	loaded, err := store.Load(ctx, "tok")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Items, 1)
	assert.True(t, decimal.RequireFromString("19.99").Equal(loaded.Items[0].Price))
	assert.True(t, record.ExpiresAt.Equal(loaded.ExpiresAt))

	require.NoError(t, store.Save(ctx, "tok", Record{Items: record.Items, ExpiresAt: now.Add(-time.Second)}))
	assert.NotContains(t, kv.values, "cart:tok")

	kv.getErr = errors.New("connection refused")
	_, err = store.Load(ctx, "tok")
	assert.Error(t, err)
}

func TestServiceOverRedisStore(t *testing.T) {
	kv := newFakeKV()
	store := newRedisStore(kv)
	f := newFixture(t, store)
	store.now = func() time.Time { return f.clock }
	ctx := context.Background()
	tee := dbtest.CreateProduct(t, f.conn, "Crew Tee", "10.00", 5)

	_, err := f.svc.AddItem(ctx, "tok", AddInput{ProductID: tee.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Contains(t, kv.values, "cart:tok")

	kv.getErr = errors.New("connection refused")
	_, err = f.svc.Get(ctx, "tok")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)
}
