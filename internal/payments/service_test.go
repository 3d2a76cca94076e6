package payments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/razorpay"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

const testSecret = "rzp_secret"

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type settlementCounter struct {
	mu      sync.Mutex
	results map[string]int
}

func (c *settlementCounter) Settlement(method string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = map[string]int{}
	}
	key := method + ":fail"
	if ok {
		key = method + ":ok"
	}
	c.results[key]++
}

type fixture struct {
	conn     *gorm.DB
	svc      Service
	orders   orders.Service
	order    *models.Order
	counter  *settlementCounter
	requests []razorpay.CreateOrderRequest
}

func newFixture(t *testing.T, withGateway bool) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	orderSvc, err := orders.NewService(orders.NewRepository(conn), db.Wrap(conn), nil)
	require.NoError(t, err)

	product := dbtest.CreateProduct(t, conn, "Crew Tee", "100.00", 10)
	order, err := orderSvc.CreateOrder(context.Background(), orders.CreateOrderInput{
		Items:    []orders.ItemInput{{ProductID: product.ID, Quantity: 2}},
		Customer: orders.CustomerInput{Name: "Ada", Email: "ada@example.com"},
	})
	require.NoError(t, err)

	f := &fixture{conn: conn, orders: orderSvc, order: order, counter: &settlementCounter{}}

	params := ServiceParams{Orders: orderSvc, Recorder: f.counter}
	if withGateway {
		client, err := razorpay.NewClient("rzp_test_key", testSecret,
			razorpay.WithBaseURL("http://gateway.test"),
			razorpay.WithRetry(1, time.Millisecond),
			razorpay.WithHTTPClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				var body razorpay.CreateOrderRequest
				if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
					return nil, err
				}
				f.requests = append(f.requests, body)
				return &http.Response{
					StatusCode: http.StatusOK,
					Header:     http.Header{"Content-Type": []string{"application/json"}},
					Body:       io.NopCloser(strings.NewReader(`{"id":"order_Gw1","amount":20000,"currency":"INR","status":"created"}`)),
				}, nil
			})}),
		)
		require.NoError(t, err)
		params.Gateway = client
	}

	svc, err := NewService(params)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestCreatePaymentIntentRecordsReference(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	intent, err := f.svc.CreatePaymentIntent(ctx, Payer{}, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_Gw1", intent.IntentRef)
	assert.Equal(t, int64(20000), intent.Amount)
	assert.Equal(t, "INR", intent.Currency)
	assert.Equal(t, "rzp_test_key", intent.KeyID)

	require.Len(t, f.requests, 1)
	assert.Equal(t, int64(20000), f.requests[0].Amount)
	assert.Equal(t, f.order.ID.String(), f.requests[0].Receipt)
	assert.Equal(t, "ada@example.com", f.requests[0].Notes["customer_email"])

	order, err := f.orders.GetOrder(ctx, f.order.ID)
	require.NoError(t, err)
	require.NotNil(t, order.PaymentRef)
	assert.Equal(t, "order_Gw1", *order.PaymentRef)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
}

func TestVerifyPaymentCompletesOnValidSignature(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	_, err := f.svc.CreatePaymentIntent(ctx, Payer{}, f.order.ID)
	require.NoError(t, err)

	signature := security.NewMessageSigner(testSecret).Sign("order_Gw1", "pay_777")
	paid, err := f.svc.VerifyPayment(ctx, Payer{}, f.order.ID, "order_Gw1", "pay_777", signature)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, paid.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, paid.Status)
	require.NotNil(t, paid.GatewayPaymentID)
	assert.Equal(t, "pay_777", *paid.GatewayPaymentID)

	again, err := f.svc.VerifyPayment(ctx, Payer{}, f.order.ID, "order_Gw1", "pay_777", signature)
	require.NoError(t, err, "replaying the same callback is idempotent")
	assert.Equal(t, enums.PaymentStatusCompleted, again.PaymentStatus)

	assert.Equal(t, 2, f.counter.results["gateway:ok"])
}

func TestVerifyPaymentWithTamperedSignatureStaysPending(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	_, err := f.svc.CreatePaymentIntent(ctx, Payer{}, f.order.ID)
	require.NoError(t, err)

	good := security.NewMessageSigner(testSecret).Sign("order_Gw1", "pay_777")
	tampered := []string{
		security.NewMessageSigner("wrong-secret").Sign("order_Gw1", "pay_777"),
		security.NewMessageSigner(testSecret).Sign("order_Gw1", "pay_778"),
		strings.Repeat("0", len(good)),
	}
	for _, sig := range tampered {
		_, err := f.svc.VerifyPayment(ctx, Payer{}, f.order.ID, "order_Gw1", "pay_777", sig)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePayment), "got %v", err)
	}

	_, err = f.svc.VerifyPayment(ctx, Payer{}, f.order.ID, "order_Other", "pay_777",
		security.NewMessageSigner(testSecret).Sign("order_Other", "pay_777"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePayment), "intent from another order: %v", err)

	order, err := f.orders.GetOrder(ctx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, 4, f.counter.results["gateway:fail"])

	paid, err := f.svc.VerifyPayment(ctx, Payer{}, f.order.ID, "order_Gw1", "pay_777", good)
	require.NoError(t, err, "a failed verification can be retried")
	assert.Equal(t, enums.PaymentStatusCompleted, paid.PaymentStatus)
}

func TestVerifyPaymentRequiresFields(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.svc.VerifyPayment(context.Background(), Payer{}, f.order.ID, "order_Gw1", "", "sig")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestCashOnDeliveryKeepsPaymentPending(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	order, err := f.svc.ProcessCashOnDelivery(ctx, Payer{}, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	require.NotNil(t, order.PaymentMethod)
	assert.Equal(t, "cod", *order.PaymentMethod)

	view, err := f.svc.PaymentStatus(ctx, Payer{}, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, view.PaymentStatus)
	require.NotNil(t, view.PaymentMethod)
	assert.Equal(t, "cod", *view.PaymentMethod)
	assert.Equal(t, 1, f.counter.results["cod:ok"])
}

func TestCashOnDeliveryRequiresPendingOrder(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.orders.RejectOrder(ctx, f.order.ID, "fraud check")
	require.NoError(t, err)

	_, err = f.svc.ProcessCashOnDelivery(ctx, Payer{}, f.order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	_, err = f.svc.ProcessCashOnDelivery(ctx, Payer{}, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
	assert.Equal(t, 2, f.counter.results["cod:fail"])
}

func TestGatewayOperationsWithoutGateway(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.CreatePaymentIntent(ctx, Payer{}, f.order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)

	_, err = f.svc.VerifyPayment(ctx, Payer{}, f.order.ID, "order_Gw1", "pay_1", "sig")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)
}

func TestAccountOrderPaymentsBelongToTheOwner(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	owner := dbtest.CreateUser(t, f.conn, "owner@example.com", false)

	order, err := f.orders.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:   &owner.ID,
		Items:    []orders.ItemInput{{ProductID: f.order.Items[0].ProductID, Quantity: 1}},
		Customer: orders.CustomerInput{Name: "Owner", Email: "owner@example.com"},
	})
	require.NoError(t, err)

	stranger := uuid.New()
	for name, payer := range map[string]Payer{"guest": {}, "other customer": {UserID: &stranger}} {
		_, err := f.svc.PaymentStatus(ctx, payer, order.ID)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "%s status: %v", name, err)

		_, err = f.svc.ProcessCashOnDelivery(ctx, payer, order.ID)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "%s cod: %v", name, err)
	}

	untouched, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, untouched.PaymentMethod)

	view, err := f.svc.PaymentStatus(ctx, Payer{IsAdmin: true}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, view.OrderID)

	settled, err := f.svc.ProcessCashOnDelivery(ctx, Payer{UserID: &owner.ID}, order.ID)
	require.NoError(t, err)
	require.NotNil(t, settled.PaymentMethod)
	assert.Equal(t, "cod", *settled.PaymentMethod)
}
