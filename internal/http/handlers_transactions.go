package http

import (
	"net/http"
	"strconv"
	"time"

	"budgetme/internal/core"
	"budgetme/internal/storage"
)

type transactionRequest struct {
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
	Type     string  `json:"type"`
	Category string  `json:"category"`
	GoalID   string  `json:"goal_id"`
	Notes    string  `json:"notes"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.TransactionFilter{
		Type:     core.TransactionType(q.Get("type")),
		Category: q.Get("category"),
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(requestDateLayout, v)
		if err != nil {
			writeError(w, core.NewValidationError("invalid since date", err))
			return
		}
		filter.Since = t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(requestDateLayout, v)
		if err != nil {
			writeError(w, core.NewValidationError("invalid until date", err))
			return
		}
		filter.Until = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, core.NewValidationError("invalid limit", err))
			return
		}
		filter.Limit = n
	}

	txns, err := s.transactions.List(r.Context(), userID(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: txns})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tx := core.Transaction{
		UserID:   userID(r),
		Amount:   req.Amount,
		Type:     core.TransactionType(req.Type),
		Category: req.Category,
		GoalID:   req.GoalID,
		Notes:    req.Notes,
	}
	if req.Date != "" {
		t, err := time.Parse(requestDateLayout, req.Date)
		if err != nil {
			writeError(w, core.NewValidationError("invalid date", err))
			return
		}
		tx.Date = t
	}

	created, err := s.transactions.Record(r.Context(), tx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Data: created})
}
