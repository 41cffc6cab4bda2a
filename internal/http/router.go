package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"livepoll/internal/domain/poll"
	"livepoll/internal/domain/verification"
	"livepoll/internal/domain/vote"
	"livepoll/internal/ratelimit"
	"livepoll/internal/realtime"
)

type Handler struct {
	pollSvc   *poll.Service
	engine    *vote.Engine
	codeSvc   *verification.Service
	hub       *realtime.Hub
	db        *sql.DB
	publicURL string
}

func NewRouter(
	pollSvc *poll.Service,
	engine *vote.Engine,
	codeSvc *verification.Service,
	limiter *ratelimit.Limiter,
	hub *realtime.Hub,
	db *sql.DB,
	publicURL string,
	frontendURL string,
) http.Handler {
	h := &Handler{
		pollSvc:   pollSvc,
		engine:    engine,
		codeSvc:   codeSvc,
		hub:       hub,
		db:        db,
		publicURL: publicURL,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORSMiddleware(frontendURL))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(GlobalRateLimit(rate.Every(15*time.Minute/100), 20))

		// Long-lived stream, kept outside the request timeout.
		r.Get("/polls/{id}/events", h.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(60 * time.Second))

			r.Post("/polls", h.handleCreatePoll)
			r.Route("/polls/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetPoll)
				r.Get("/check-vote", h.handleCheckVote)
				r.With(VoteRateLimit(limiter)).Post("/request-verification", h.handleRequestVerification)
				r.Post("/vote-verified", h.handleVoteVerified)
				r.With(VoteRateLimit(limiter)).Post("/vote", h.handleVote)
				r.With(VoteRateLimit(limiter)).Put("/vote", h.handleChangeVote)
				r.Delete("/vote", h.handleRetractVote)
			})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not ready",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
