package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moralesdev/fieldbill-backend/api/controllers"
	webhookcontrollers "github.com/moralesdev/fieldbill-backend/api/controllers/webhooks"
	"github.com/moralesdev/fieldbill-backend/api/middleware"
	"github.com/moralesdev/fieldbill-backend/internal/channels/hostedlink"
	"github.com/moralesdev/fieldbill-backend/internal/channels/manual"
	"github.com/moralesdev/fieldbill-backend/internal/fees"
	"github.com/moralesdev/fieldbill-backend/internal/invoices"
	"github.com/moralesdev/fieldbill-backend/internal/ledger"
	"github.com/moralesdev/fieldbill-backend/pkg/config"
	"github.com/moralesdev/fieldbill-backend/pkg/db"
	"github.com/moralesdev/fieldbill-backend/pkg/logger"
	"github.com/moralesdev/fieldbill-backend/pkg/redis"
	"github.com/moralesdev/fieldbill-backend/pkg/square"
)

// Services bundles the wired domain services handed to the router.
type Services struct {
	Ledger       ledger.Service
	HostedLink   *hostedlink.Service
	Manual       *manual.Service
	Invoices     *invoices.Service
	Fees         fees.Service
	WebhookGuard *hostedlink.IdempotencyGuard
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	squareClient *square.Client,
	registry *prometheus.Registry,
	svcs Services,
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
		r.Get("/ready", controllers.HealthReady(cfg, dbClient, redisClient, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// Token-scoped payer surface. No JWT; the capability token in the path
	// is the whole credential.
	r.Route("/api/public/invoices", func(r chi.Router) {
		r.Get("/{token}", controllers.ViewInvoice(svcs.Invoices, logg))
		r.Post("/{token}/declare", controllers.DeclareInvoicePaid(svcs.Invoices, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/square", webhookcontrollers.SquareWebhook(svcs.HostedLink, squareClient, svcs.WebhookGuard, logg))
	})

	r.Route("/api/v1/settlement", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/entries", func(r chi.Router) {
			r.Post("/", controllers.CreateEntry(svcs.Ledger, logg))
			r.Get("/", controllers.ListEntries(svcs.Ledger, logg))
			r.Get("/{entryId}", controllers.GetEntry(svcs.Ledger, logg))
			r.Delete("/{entryId}", controllers.DeleteEntry(svcs.Ledger, logg))
			r.Post("/{entryId}/confirm", controllers.ConfirmEntry(svcs.Manual, logg))
		})
		r.Post("/links", controllers.CreateLink(svcs.HostedLink, logg))
		r.Post("/fees/quote", controllers.QuoteFee(svcs.Fees, logg))
	})

	return r
}
