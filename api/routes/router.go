package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yawasante/databundles-backend/api/controllers"
	webhookcontrollers "github.com/yawasante/databundles-backend/api/controllers/webhooks"
	"github.com/yawasante/databundles-backend/api/middleware"
	"github.com/yawasante/databundles-backend/internal/catalog"
	"github.com/yawasante/databundles-backend/internal/fulfillment"
	internalorders "github.com/yawasante/databundles-backend/internal/orders"
	"github.com/yawasante/databundles-backend/internal/purchases"
	paystackwebhook "github.com/yawasante/databundles-backend/internal/webhooks/paystack"
	wirenetwebhook "github.com/yawasante/databundles-backend/internal/webhooks/wirenet"
	"github.com/yawasante/databundles-backend/pkg/config"
	"github.com/yawasante/databundles-backend/pkg/enums"
	"github.com/yawasante/databundles-backend/pkg/logger"
	"github.com/yawasante/databundles-backend/pkg/paystack"
	"github.com/yawasante/databundles-backend/pkg/wirenet"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisPinger controllers.Pinger,
	purchaseService purchases.Service,
	ordersRepo internalorders.Repository,
	catalogRepo catalog.Repository,
	toggles *catalog.ToggleSnapshot,
	fulfillmentService fulfillment.Service,
	sweeper *fulfillment.Sweeper,
	supplier *wirenet.Client,
	gateway *paystack.Client,
	paystackWebhookService *paystackwebhook.Service,
	wirenetWebhookService *wirenetwebhook.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"postgres": dbPinger,
			"redis":    redisPinger,
		}))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(paystackWebhookService, gateway, logg))
		r.Post("/wirenet/orders", webhookcontrollers.WirenetOrderWebhook(wirenetWebhookService, logg))
		r.Post("/wirenet/settings", webhookcontrollers.WirenetSettingsWebhook(wirenetWebhookService, logg))
	})

	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/bundles", controllers.ListBundles(catalogRepo, toggles, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/v1/purchases", func(r chi.Router) {
			r.Post("/", controllers.InitPurchase(purchaseService, logg))
			r.Post("/bulk", controllers.InitBulkPurchase(purchaseService, logg))
			r.Get("/verify", controllers.VerifyPurchase(purchaseService, logg))
		})
		r.Get("/v1/orders", controllers.MyOrders(purchaseService, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(ordersRepo, logg))
			r.Post("/{orderId}/status", controllers.AdminForceOrderStatus(ordersRepo, logg))
			r.Post("/{orderId}/retry", controllers.AdminRetryOrder(fulfillmentService, logg))
		})
		r.Route("/v1/reconcile", func(r chi.Router) {
			r.Post("/sweep", controllers.AdminTriggerSweep(sweeper, cfg.Sweeper, logg))
			r.Get("/stuck", controllers.AdminStuckOrders(sweeper, cfg.Sweeper, logg))
		})
		r.Route("/v1/supplier", func(r chi.Router) {
			r.Get("/balance", controllers.AdminSupplierBalance(supplier, logg))
			r.Get("/catalog", controllers.AdminSupplierCatalog(supplier, logg))
		})
		r.Route("/v1/toggles", func(r chi.Router) {
			r.Get("/", controllers.AdminListServiceToggles(catalogRepo, toggles, logg))
			r.Put("/", controllers.AdminSetServiceToggle(catalogRepo, toggles, logg))
		})
	})

	return r
}
