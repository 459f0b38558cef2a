package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"budgetme/internal/core"
)

type goalRequest struct {
	Name         string  `json:"name"`
	TargetAmount float64 `json:"target_amount"`
	TargetDate   string  `json:"target_date"`
	FamilyID     string  `json:"family_id"`
	IsFamilyGoal bool    `json:"is_family_goal"`
}

type contributionRequest struct {
	Amount float64 `json:"amount"`
	Notes  string  `json:"notes"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, tier, err := s.goals.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: goals, Source: tier})
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	g, err := s.goals.Get(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: g})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	g := core.Goal{
		UserID:       userID(r),
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		FamilyID:     req.FamilyID,
		IsFamilyGoal: req.IsFamilyGoal,
	}
	if req.TargetDate != "" {
		t, err := time.Parse(requestDateLayout, req.TargetDate)
		if err != nil {
			writeError(w, core.NewValidationError("invalid target_date", err))
			return
		}
		g.TargetDate = t
	}

	created, err := s.goals.Create(r.Context(), g)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Data: created})
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	g, err := s.goals.Contribute(r.Context(), userID(r), mux.Vars(r)["id"], req.Amount, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: g})
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.goals.Delete(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
