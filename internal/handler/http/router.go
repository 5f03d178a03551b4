package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/promo-backoffice/internal/service"
	"github.com/utafrali/promo-backoffice/pkg/health"
	"github.com/utafrali/promo-backoffice/pkg/middleware"
)

// NewRouter creates a chi router with all promotion back-office routes
// registered.
func NewRouter(
	promotionService *service.PromotionService,
	campaignService *service.CampaignService,
	cartService *service.CartService,
	cartLocker CartLocker,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("promo-backoffice"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	promotionHandler := NewPromotionHandler(promotionService, logger)
	campaignHandler := NewCampaignHandler(campaignService, logger)
	cartHandler := NewCartHandler(cartService, cartLocker, logger)

	r.Route("/api/v1/promotions", func(r chi.Router) {
		r.Use(TenantContext)
		r.Use(ContentTypeJSON)

		r.Post("/", promotionHandler.CreatePromotion)
		r.Get("/", promotionHandler.ListPromotions)
		r.Get("/{id}", promotionHandler.GetPromotion)
		r.Put("/{id}", promotionHandler.UpdatePromotion)
		r.Delete("/{id}", promotionHandler.DeletePromotion)
		r.Post("/{id}/status", promotionHandler.UpdateStatus)
		r.Put("/{id}/rules", promotionHandler.ReplaceRules)
	})

	r.Route("/api/v1/campaigns", func(r chi.Router) {
		r.Use(TenantContext)
		r.Use(ContentTypeJSON)

		r.Post("/", campaignHandler.CreateCampaign)
		r.Get("/", campaignHandler.ListCampaigns)
		r.Get("/{id}", campaignHandler.GetCampaign)
		r.Put("/{id}", campaignHandler.UpdateCampaign)
		r.Delete("/{id}", campaignHandler.DeleteCampaign)
		r.Post("/{id}/promotions", campaignHandler.AttachPromotion)
		r.Delete("/{id}/promotions/{promotionId}", campaignHandler.DetachPromotion)
	})

	r.Route("/api/v1/carts", func(r chi.Router) {
		r.Use(TenantContext)
		r.Use(ContentTypeJSON)

		r.Post("/{id}/recompute", cartHandler.RecomputePromotions)
	})

	return r
}

// ContentTypeJSON rejects mutating requests whose body is not JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && ct != "application/json" && ct != "application/json; charset=utf-8" {
				writeJSON(w, http.StatusUnsupportedMediaType, response{
					Error: &errorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
