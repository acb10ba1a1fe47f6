package httpapi

import (
	"net/http"

	"dinehub-order-service/internal/auth"
	"dinehub-order-service/internal/config"
	"dinehub-order-service/internal/http/handlers"
	"dinehub-order-service/internal/middleware"
	"dinehub-order-service/internal/payments"
	"dinehub-order-service/internal/queue"
	"dinehub-order-service/internal/storage"
	"dinehub-order-service/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func NewRouter(
	db *pgxpool.Pool,
	logger *zap.Logger,
	cfg config.Config,
	queueClient *queue.Client,
	paymentsClient *payments.Client,
	store *storage.ObjectStore,
	wsServer *ws.Server,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(logger))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"Cache-Control",
				"Pragma",
			},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	h := &handlers.Handler{
		DB:       db,
		Logger:   logger,
		Config:   cfg,
		Queue:    queueClient,
		Payments: paymentsClient,
		Store:    store,
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", h.AuthSignup)
		r.Post("/login", h.AuthLogin)
		r.With(middleware.OptionalAuth(db, cfg.JWTSecret)).Get("/role", h.AuthRole)
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/menu/{restaurantCode}", h.PublicMenu)
		r.Get("/orders/{orderNumber}", h.PublicOrderTrack)
		// Checkout works anonymously; a logged-in customer gets the order
		// attached to their account.
		r.With(middleware.OptionalAuth(db, cfg.JWTSecret)).Post("/checkout", h.PublicCheckout)
	})

	r.Post("/api/webhooks/stripe", h.StripeWebhook)

	r.Route("/api/owner", func(r chi.Router) {
		r.Use(middleware.RequireRole(db, cfg.JWTSecret, auth.RoleOwner))

		r.Get("/orders", h.OwnerOrdersList)
		r.Get("/orders/active", h.OwnerActiveOrders)
		r.Get("/tables", h.OwnerKitchenTables)
		r.Put("/orders/{orderId}/status", h.OwnerOrderUpdateStatus)
		r.Put("/orders/{orderId}/assign-driver", h.OwnerOrderAssignDriver)
		r.Delete("/orders/{orderId}", h.OwnerOrderDelete)

		r.Get("/menu", h.OwnerMenuList)
		r.Post("/menu", h.OwnerMenuCreate)
		r.Put("/menu/{itemId}", h.OwnerMenuUpdate)
		r.Delete("/menu/{itemId}", h.OwnerMenuDelete)
		r.Post("/menu/{itemId}/image", h.OwnerMenuUploadImage)

		r.Get("/workers", h.OwnerWorkersList)
		r.Post("/workers/associate", h.OwnerWorkerAssociate)
		r.Delete("/workers/{workerId}", h.OwnerWorkerRemove)

		r.Get("/subscription", h.OwnerSubscriptionGet)
		r.Post("/subscription/checkout", h.OwnerSubscriptionCheckout)
		r.Post("/subscription/renew", h.OwnerSubscriptionRenew)
		r.Post("/subscription/portal", h.OwnerSubscriptionPortal)
	})

	r.Route("/api/waiter", func(r chi.Router) {
		r.Use(middleware.RequireRole(db, cfg.JWTSecret, auth.RoleWaiter))

		r.Get("/tables", h.WaiterTablesList)
		r.Post("/tables", h.WaiterTableCreate)
		r.Get("/tables/{tableNumber}", h.WaiterTableGet)
		r.Delete("/tables/{tableNumber}", h.WaiterTableDelete)
		r.Post("/tables/{tableNumber}/seats", h.WaiterSeatAdd)
		r.Delete("/tables/{tableNumber}/seats/{seatId}", h.WaiterSeatRemove)
		r.Post("/tables/{tableNumber}/seats/{seatId}/items", h.WaiterItemAdd)
		r.Delete("/tables/{tableNumber}/seats/{seatId}/items/{itemId}", h.WaiterItemRemove)
		r.Put("/tables/{tableNumber}/payment-method", h.WaiterTableSetPayment)
		r.Post("/tables/{tableNumber}/send", h.WaiterTableSendToKitchen)
		r.Post("/tables/{tableNumber}/close", h.WaiterTableClose)

		r.Get("/bills", h.WaiterBillsList)
		r.Get("/bills/{billId}/receipt", h.WaiterBillReceipt)

		r.Post("/leave", h.WaiterLeave)
	})

	r.Route("/api/driver", func(r chi.Router) {
		r.Use(middleware.RequireRole(db, cfg.JWTSecret, auth.RoleDriver))

		r.Get("/orders", h.DriverOrdersList)
		r.Post("/orders/{orderId}/confirm", h.DriverConfirmDelivery)
		r.Post("/associate", h.DriverAssociate)
		r.Post("/leave", h.DriverLeave)
	})

	if wsServer != nil {
		r.Get("/ws/public/order", wsServer.PublicOrderWS)
		r.Get("/ws/kitchen", wsServer.KitchenWS)
		r.Get("/ws/driver", wsServer.DriverWS)
	}

	return r
}
