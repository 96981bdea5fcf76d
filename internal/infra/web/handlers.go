package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"course-access-platform/internal/domain"
	"course-access-platform/internal/domain/model"
	"course-access-platform/internal/infra/redis"
)

// accountView is the serializable account shape; the password hash never
// leaves the service.
type accountView struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	IsAdmin             bool       `json:"is_admin"`
	IsPremium           bool       `json:"is_premium"`
	RenewDate           *time.Time `json:"renew_date,omitempty"`
	SubscriptionExpired bool       `json:"subscription_expired"`
	PaymentCompleted    bool       `json:"payment_completed"`
	JoinedAt            time.Time  `json:"joined_at"`
}

func viewOf(a *model.Account) accountView {
	return accountView{
		ID:                  a.ID,
		Email:               a.Email,
		FirstName:           a.FirstName,
		LastName:            a.LastName,
		IsAdmin:             a.IsAdmin,
		IsPremium:           a.IsPremium,
		RenewDate:           a.RenewDate,
		SubscriptionExpired: a.SubscriptionExpired,
		PaymentCompleted:    a.PaymentCompleted,
		JoinedAt:            a.JoinedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	account, err := s.accountUC.Signup(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			http.Error(w, "Email already registered", http.StatusConflict)
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, "Invalid signup details", http.StatusBadRequest)
		default:
			http.Error(w, "Failed to create account", http.StatusInternalServerError)
		}
		return
	}

	if _, err := s.auth.Mint(w, account.ID, account.IsAdmin); err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Account accountView      `json:"account"`
		Tier    model.AccessTier `json:"tier"`
	}{viewOf(account), model.TierFree})
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	key := redis.SigninKey(model.NormalizeEmail(req.Email))
	if ok, err := s.limiter.Allow(r.Context(), key, 10, time.Minute); err == nil && !ok {
		http.Error(w, "Too many attempts, try again later", http.StatusTooManyRequests)
		return
	}

	account, tier, err := s.accountUC.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			http.Error(w, "Invalid email or password", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Failed to sign in", http.StatusInternalServerError)
		return
	}

	if _, err := s.auth.Mint(w, account.ID, account.IsAdmin); err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Account accountView      `json:"account"`
		Tier    model.AccessTier `json:"tier"`
	}{viewOf(account), tier})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleMe is the per-session evaluation point: every protected page load
// re-derives the tier from a fresh snapshot.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	account, tier, err := s.accessUC.EvaluateByID(r.Context(), claims.AccountID, time.Now())
	if err != nil && account == nil {
		http.Error(w, "Failed to load account", http.StatusInternalServerError)
		return
	}
	if account == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Account accountView      `json:"account"`
		Tier    model.AccessTier `json:"tier"`
	}{viewOf(account), tier})
}

type checkoutRequest struct {
	PromoCode string `json:"promo_code"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.PromoCode != "" {
		key := redis.PromoKey(claims.AccountID)
		if ok, err := s.limiter.Allow(r.Context(), key, 20, time.Minute); err == nil && !ok {
			http.Error(w, "Too many attempts, try again later", http.StatusTooManyRequests)
			return
		}
	}

	checkout, err := s.paymentUC.BeginCheckout(r.Context(), claims.AccountID, req.PromoCode)
	if err != nil {
		if errors.Is(err, domain.ErrPricingNotConfigured) {
			http.Error(w, "Checkout unavailable, please contact support", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "Failed to start checkout", http.StatusInternalServerError)
		return
	}
	if checkout.PromoRejected {
		writeJSON(w, http.StatusUnprocessableEntity, struct {
			Valid  bool   `json:"valid"`
			Reason string `json:"reason"`
		}{false, checkout.PromoReason})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		CheckoutURL        string `json:"checkout_url"`
		CartID             string `json:"cart_id"`
		FullPrice          string `json:"full_price"`
		DiscountPercentage string `json:"discount_percentage"`
		FinalPrice         string `json:"final_price"`
	}{
		CheckoutURL:        checkout.URL,
		CartID:             checkout.CartID,
		FullPrice:          checkout.Quote.FullPrice.String(),
		DiscountPercentage: model.PercentageKey(checkout.Quote.DiscountPercentage),
		FinalPrice:         checkout.Quote.FinalPrice.String(),
	})
}
