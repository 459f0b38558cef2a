package http

import (
	"net/http"
	"strconv"

	"budgetme/internal/core"
	"budgetme/internal/prediction"
	"budgetme/internal/reports"
)

func monthsBackParam(r *http.Request) (int, error) {
	v := r.URL.Query().Get("months")
	if v == "" {
		return 6, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 36 {
		return 0, core.NewValidationError("months must be between 1 and 36", err)
	}
	return n, nil
}

func (s *Server) handleSpendingReport(w http.ResponseWriter, r *http.Request) {
	months, err := monthsBackParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	txns, err := s.transactions.History(r.Context(), userID(r), months)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: reports.SpendingBreakdown(txns)})
}

func (s *Server) handleContributionReport(w http.ResponseWriter, r *http.Request) {
	months, err := monthsBackParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	txns, err := s.transactions.History(r.Context(), userID(r), months)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: reports.ContributionsByMember(txns)})
}

func (s *Server) handleHealthScore(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	txns, err := s.transactions.History(r.Context(), uid, 6)
	if err != nil {
		writeError(w, err)
		return
	}
	profile, _ := prediction.BuildProfile(txns, s.incomeFactor)

	budgets, tier, err := s.budgets.List(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Data:   reports.ComputeHealthScore(profile, budgets),
		Source: tier,
	})
}
