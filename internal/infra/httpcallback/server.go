// Package httpcallback hosts the unauthenticated endpoint the payment
// gateway posts results to, plus health and metrics.
package httpcallback

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"course-access-platform/internal/config"
	"course-access-platform/internal/infra/logging"
	"course-access-platform/internal/usecase"
)

type Server struct {
	cfg       *config.CallbackConfig
	paymentUC *usecase.PaymentUseCase
	log       *zerolog.Logger
	srv       *http.Server
}

func NewServer(cfg *config.CallbackConfig, paymentUC *usecase.PaymentUseCase, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "CallbackServer").Logger()
	s := &Server{cfg: cfg, paymentUC: paymentUC, log: &l}

	mux := http.NewServeMux()
	mux.HandleFunc("/payment/callback", s.handleCallback)
	mux.HandleFunc("/payment/status", s.handleStatusPage)
	mux.HandleFunc("/health", s.handleHealthCheck)
	mux.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("callback server listening")
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// handleCallback accepts POST (form-encoded) or GET from the gateway and
// answers with a 303 redirect to the status page. The raw gateway body is
// never echoed back; only the sanctioned query parameters travel.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	in, err := readCallbackInput(r)
	if err != nil {
		s.log.Warn().Err(err).Msg("malformed payment callback")
		s.redirect(w, r, url.Values{"error": {"true"}})
		return
	}

	ctx := logging.WithTranRef(r.Context(), in.TranRef)
	result, err := s.paymentUC.HandleCallback(ctx, in)
	if err != nil {
		s.log.Error().Err(err).Str("tran_ref", in.TranRef).Msg("payment callback processing failed")
		s.redirect(w, r, url.Values{"error": {"true"}})
		return
	}

	q := url.Values{}
	if result.Success {
		q.Set("success", "true")
		q.Set("tranRef", result.TranRef)
		if result.CartID != "" {
			q.Set("cartId", result.CartID)
		}
	} else {
		q.Set("success", "false")
		q.Set("message", result.Message)
	}
	s.redirect(w, r, q)
}

func readCallbackInput(r *http.Request) (usecase.CallbackInput, error) {
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			return usecase.CallbackInput{}, fmt.Errorf("parse form: %w", err)
		}
		return usecase.CallbackInput{
			RespStatus:  r.PostFormValue("respStatus"),
			TranRef:     r.PostFormValue("tranRef"),
			CartID:      r.PostFormValue("cartId"),
			RespMessage: r.PostFormValue("respMessage"),
		}, nil
	}
	q := r.URL.Query()
	return usecase.CallbackInput{
		RespStatus:  q.Get("respStatus"),
		TranRef:     q.Get("tranRef"),
		CartID:      q.Get("cartId"),
		RespMessage: q.Get("respMessage"),
	}, nil
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, q url.Values) {
	http.Redirect(w, r, s.cfg.StatusPageURL+"?"+q.Encode(), http.StatusSeeOther)
}

// handleStatusPage renders the minimal landing page users see after the
// gateway redirect when no SPA route is configured.
func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if r.URL.Query().Get("success") == "true" {
		fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Payment Successful</title><meta charset="utf-8"></head>
<body>
  <h1>Payment Successful!</h1>
  <p>Your account has been upgraded to Premium. You can return to your dashboard.</p>
</body>
</html>`)
		return
	}
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Payment Failed</title><meta charset="utf-8"></head>
<body>
  <h1>Payment Failed</h1>
  <p>Your payment could not be processed. Please try again or contact support.</p>
</body>
</html>`)
}
