package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"budgetme/internal/core"
)

type budgetRequest struct {
	CategoryID     string  `json:"category_id"`
	Amount         float64 `json:"amount"`
	Period         string  `json:"period"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	AlertThreshold float64 `json:"alert_threshold"`
}

const requestDateLayout = "2006-01-02"

func (req budgetRequest) toBudget(userID string) (core.Budget, error) {
	b := core.Budget{
		UserID:         userID,
		CategoryID:     req.CategoryID,
		Amount:         req.Amount,
		Period:         req.Period,
		AlertThreshold: req.AlertThreshold,
	}
	if req.StartDate != "" {
		t, err := time.Parse(requestDateLayout, req.StartDate)
		if err != nil {
			return core.Budget{}, core.NewValidationError("invalid start_date", err)
		}
		b.StartDate = t
	}
	if req.EndDate != "" {
		t, err := time.Parse(requestDateLayout, req.EndDate)
		if err != nil {
			return core.Budget{}, core.NewValidationError("invalid end_date", err)
		}
		b.EndDate = t
	}
	return b, nil
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, tier, err := s.budgets.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: budgets, Source: tier})
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.budgets.Get(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: b})
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	b, err := req.toBudget(userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := s.budgets.Create(r.Context(), b)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Data: created})
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	b, err := req.toBudget(userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	b.ID = mux.Vars(r)["id"]
	updated, err := s.budgets.Update(r.Context(), b)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: updated})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.budgets.Delete(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
