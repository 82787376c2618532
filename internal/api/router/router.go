package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/http/middleware"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/leads"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/webchat"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	ChatHandler    *webchat.Handler
	LeadsHandler   *leads.Handler
	MetricsHandler http.Handler

	CORSAllowedOrigins []string
	// Requests per minute per IP on the chat surface. Zero disables the
	// HTTP-level limiter (the engine still enforces per-session limits).
	ChatRateLimitPerMinute int
}

// New creates the Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ChatHandler != nil {
		r.Route("/chat", func(chat chi.Router) {
			if cfg.ChatRateLimitPerMinute > 0 {
				rate := float64(cfg.ChatRateLimitPerMinute) / 60
				chat.Use(httpmiddleware.RateLimit(rate, cfg.ChatRateLimitPerMinute))
			}
			chat.Post("/session", cfg.ChatHandler.HandleStart)
			chat.Post("/message", cfg.ChatHandler.HandleMessage)
			chat.Get("/history", cfg.ChatHandler.HandleHistory)
			chat.Get("/ws", cfg.ChatHandler.HandleWebSocket)
			chat.Get("/widget.js", cfg.ChatHandler.HandleWidgetJS)
		})
	}

	if cfg.LeadsHandler != nil {
		r.Route("/leads", func(lr chi.Router) {
			lr.Post("/", cfg.LeadsHandler.CreateLead)
			lr.Get("/{reference}", cfg.LeadsHandler.GetLead)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
