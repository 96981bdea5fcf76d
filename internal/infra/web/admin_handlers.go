package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"course-access-platform/internal/domain"
	"course-access-platform/internal/domain/model"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.statsUC.Totals(r.Context())
	if err != nil {
		http.Error(w, "Failed to get totals", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleUsersList returns a paginated account list.
// It accepts 'offset' and 'limit' query parameters.
func (s *Server) handleUsersList(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50 // Default page size
	}
	if offset < 0 {
		offset = 0
	}

	accounts, err := s.accountUC.List(r.Context(), offset, limit)
	if err != nil {
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}
	total, err := s.accountUC.Count(r.Context())
	if err != nil {
		http.Error(w, "Failed to count users", http.StatusInternalServerError)
		return
	}

	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, viewOf(a))
	}
	writeJSON(w, http.StatusOK, struct {
		Data   []accountView `json:"data"`
		Total  int           `json:"total"`
		Limit  int           `json:"limit"`
		Offset int           `json:"offset"`
	}{views, total, limit, offset})
}

func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	account, err := s.accountUC.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Failed to get user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		User accountView `json:"user"`
	}{viewOf(account)})
}

type premiumToggleRequest struct {
	Premium bool `json:"premium"`
}

// handlePremiumToggle grants or revokes premium for an account. A grant
// starts a fresh three-month window; a revoke follows the configured
// renew-date policy.
func (s *Server) handlePremiumToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req premiumToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var (
		account *model.Account
		err     error
	)
	if req.Premium {
		account, err = s.accessUC.GrantPremium(r.Context(), nil, id, "admin-grant", time.Now())
	} else {
		account, err = s.accessUC.RevokePremium(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Failed to update premium status", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		User accountView `json:"user"`
	}{viewOf(account)})
}

type codeCreateRequest struct {
	Title      string `json:"title"`
	Percentage int    `json:"percentage"`
}

func (s *Server) handleCodeCreate(w http.ResponseWriter, r *http.Request) {
	var req codeCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	code, err := s.promoUC.Create(r.Context(), req.Title, req.Percentage)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, "Title required and percentage must be one of 50/60/70", http.StatusBadRequest)
		case errors.Is(err, domain.ErrAlreadyExists):
			http.Error(w, "A code with this title already exists", http.StatusConflict)
		default:
			http.Error(w, "Failed to create code", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, code)
}

func (s *Server) handleCodesList(w http.ResponseWriter, r *http.Request) {
	codes, err := s.promoUC.List(r.Context())
	if err != nil {
		http.Error(w, "Failed to list codes", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Data []*model.PromoCode `json:"data"`
	}{codes})
}

// handleCodeDeactivate is the admin delete; it ends in the same state as a
// checkout redemption, so an already-consumed code 404s.
func (s *Server) handleCodeDeactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.promoUC.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrCodeNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Failed to deactivate code", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
