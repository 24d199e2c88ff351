package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/lead-analyzer/internal/audit"
	httpmiddleware "github.com/wolfman30/lead-analyzer/internal/http/middleware"
	"github.com/wolfman30/lead-analyzer/internal/leads"
	"github.com/wolfman30/lead-analyzer/internal/qualify"
	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	AnalyzeHandler *qualify.Handler
	StreamHandler  *qualify.StreamHandler
	LeadsHandler   *leads.Handler
	AuditHandler   *audit.Handler
	MetricsHandler http.Handler

	AdminAuthSecret    string
	CORSAllowedOrigins []string
	// RateLimitRPS <= 0 disables the per-IP limiter on /v1.
	RateLimitRPS   float64
	RateLimitBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/v1", func(v1 chi.Router) {
		if cfg.RateLimitRPS > 0 {
			v1.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
		// The socket resolves its org itself: browsers cannot set headers on
		// the upgrade request, so ?org= is accepted too.
		if cfg.StreamHandler != nil {
			v1.Handle("/leads/stream", cfg.StreamHandler)
		}
		if cfg.AnalyzeHandler != nil {
			v1.Group(func(tenant chi.Router) {
				tenant.Use(requireOrgID)
				tenant.Use(middleware.Compress(5))
				tenant.Post("/leads/analyze", cfg.AnalyzeHandler.Analyze)
			})
		}
	})

	// Admin routes (HMAC JWT)
	if cfg.AdminAuthSecret != "" && cfg.LeadsHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Route("/orgs/{orgID}", func(org chi.Router) {
				org.Use(httpmiddleware.RequireOrgAccess)
				org.Get("/leads", cfg.LeadsHandler.ListLeads)
				org.Get("/leads/{leadID}", cfg.LeadsHandler.GetLead)
				if cfg.AuditHandler != nil {
					org.Get("/audit", cfg.AuditHandler.ListRecords)
				}
			})
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
