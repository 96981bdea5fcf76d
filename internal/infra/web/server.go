package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"course-access-platform/internal/config"
	"course-access-platform/internal/usecase"
)

// Limiter is the rate-limit surface the handlers need; satisfied by the
// redis fixed-window limiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Server is the authenticated web API: auth, session refresh, checkout, and
// the admin surface.
type Server struct {
	accountUC *usecase.AccountUseCase
	accessUC  *usecase.AccessUseCase
	promoUC   *usecase.PromoUseCase
	paymentUC *usecase.PaymentUseCase
	statsUC   *usecase.StatsUseCase
	auth      *AuthManager
	limiter   Limiter
	log       *zerolog.Logger
	srv       *http.Server
}

func NewServer(
	cfg *config.WebConfig,
	accountUC *usecase.AccountUseCase,
	accessUC *usecase.AccessUseCase,
	promoUC *usecase.PromoUseCase,
	paymentUC *usecase.PaymentUseCase,
	statsUC *usecase.StatsUseCase,
	limiter Limiter,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	s := &Server{
		accountUC: accountUC,
		accessUC:  accessUC,
		promoUC:   promoUC,
		paymentUC: paymentUC,
		statsUC:   statsUC,
		auth:      NewAuthManager(cfg.JWTSecret, cfg.SecureCookies, cfg.CookieDomain, cfg.SessionTTL),
		limiter:   limiter,
		log:       &l,
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID())
	r.Use(Recover(s.log))
	r.Use(RequestLog(s.log))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/signin", s.handleSignin)
		r.Post("/auth/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.RequireSession)
			r.Get("/me", s.handleMe)
			r.Post("/checkout", s.handleCheckout)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.RequireAdmin)
			r.Get("/stats", s.handleStats)
			r.Get("/users", s.handleUsersList)
			r.Get("/users/{id}", s.handleUserGet)
			r.Post("/users/{id}/premium", s.handlePremiumToggle)
			r.Get("/codes", s.handleCodesList)
			r.Post("/codes", s.handleCodeCreate)
			r.Delete("/codes/{id}", s.handleCodeDeactivate)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("web server listening")
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
