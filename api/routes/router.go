package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	products "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// KeyValueStore backs idempotency replay and auth rate limiting.
// *redis.Client satisfies it.
type KeyValueStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Auth     auth.Service
	Products products.Service
	Reviews  reviews.Service
	Cart     cart.Service
	Orders   orders.Service
	Payments payments.Service
	Wishlist wishlist.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	gatherer prometheus.Gatherer,
	observer middleware.HTTPObserver,
	pingers map[string]controllers.Pinger,
	store KeyValueStore,
	sessions session.Checker,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, observer),
		middleware.CORS(cfg.CORS),
	)
	// Replay scope is the caller, so it has to run after authentication.
	idempotency := middleware.Idempotency(store, logg)

	limits := cfg.RateLimit
	loginLimit := middleware.RateLimit(
		middleware.NewAuthRateLimitPolicy("login", limits.LoginWindow, limits.LoginIPLimit, limits.LoginEmailLimit),
		store, logg,
	)
	registerLimit := middleware.RateLimit(
		middleware.NewAuthRateLimitPolicy("register", limits.RegisterWindow, limits.RegisterIPLimit, limits.RegisterEmailLimit),
		store, logg,
	)
	orderLimit := middleware.RateLimit(
		middleware.NewRateLimitPolicy("orders", limits.OrderWindow, middleware.ByClientIP(limits.OrderIPLimit)),
		store, logg,
	)
	verifyLimit := middleware.RateLimit(
		middleware.NewRateLimitPolicy("payment_verify", limits.VerifyWindow, middleware.ByBodyField("orderId", limits.VerifyOrderLimit)),
		store, logg,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Guests and signed-in customers.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, sessions, logg), idempotency)

			r.With(registerLimit).Post("/auth/register", controllers.AuthRegister(svc.Auth, logg))
			r.With(loginLimit).Post("/auth/login", controllers.AuthLogin(svc.Auth, logg))

			r.Get("/products", controllers.ProductList(svc.Products, logg))
			r.Get("/products/{productID}", controllers.ProductDetail(svc.Products, logg))
			r.Get("/products/{productID}/reviews", controllers.ProductReviews(svc.Reviews, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(svc.Cart, logg))
				r.Delete("/", cartcontrollers.CartClear(svc.Cart, logg))
				r.Post("/items", cartcontrollers.CartAddItem(svc.Cart, logg))
				r.Patch("/items", cartcontrollers.CartUpdateItem(svc.Cart, logg))
				r.Delete("/items", cartcontrollers.CartRemoveItem(svc.Cart, logg))
				r.With(orderLimit).Post("/checkout", cartcontrollers.CartCheckout(svc.Cart, logg))
			})

			r.With(orderLimit).Post("/orders", controllers.OrderCreate(svc.Orders, logg))
			r.Get("/orders/{orderID}", controllers.OrderDetail(svc.Orders, logg))

			r.Route("/payments", func(r chi.Router) {
				r.Post("/intent", controllers.PaymentIntent(svc.Payments, logg))
				r.With(verifyLimit).Post("/verify", controllers.PaymentVerify(svc.Payments, logg))
				r.Post("/cod", controllers.PaymentCashOnDelivery(svc.Payments, logg))
				r.Get("/{orderID}/status", controllers.PaymentStatus(svc.Payments, logg))
			})
		})

		// Signed-in customers only.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))

			r.Post("/auth/logout", controllers.AuthLogout(svc.Auth, logg))
			r.Get("/auth/me", controllers.AuthMe(svc.Auth, logg))
			r.Get("/orders", controllers.OrderListMine(svc.Orders, logg))
			r.Post("/products/{productID}/reviews", controllers.ReviewCreate(svc.Reviews, logg))
			r.Delete("/reviews/{reviewID}", controllers.ReviewDelete(svc.Reviews, logg))

			r.Get("/wishlist", controllers.WishlistList(svc.Wishlist, logg))
			r.Post("/wishlist", controllers.WishlistAdd(svc.Wishlist, logg))
			r.Delete("/wishlist/{productID}", controllers.WishlistRemove(svc.Wishlist, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireAdmin(logg), idempotency)

		r.Post("/products", controllers.AdminCreateProduct(svc.Products, logg))
		r.Put("/products/{productID}", controllers.AdminUpdateProduct(svc.Products, logg))
		r.Delete("/products/{productID}", controllers.AdminDeleteProduct(svc.Products, logg))
		r.Patch("/products/{productID}/stock", controllers.AdminAdjustStock(svc.Products, logg))

		r.Get("/orders", controllers.AdminListOrders(svc.Orders, logg))
		r.Post("/orders/{orderID}/approve", controllers.AdminApproveOrder(svc.Orders, logg))
		r.Post("/orders/{orderID}/reject", controllers.AdminRejectOrder(svc.Orders, logg))
		r.Patch("/orders/{orderID}/status", controllers.AdminUpdateOrderStatus(svc.Orders, logg))
		r.Patch("/orders/{orderID}/payment", controllers.AdminUpdateOrderPayment(svc.Orders, logg))
	})

	return r
}
