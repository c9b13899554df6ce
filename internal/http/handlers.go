package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetpulse/internal/core"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	overview, err := s.engine.CompleteOverview(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleCategoryMetric(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	categoryID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category id"})
		return
	}

	period := core.CurrentPeriod(time.Now())
	if tag := r.URL.Query().Get("period"); tag != "" {
		if period, err = core.ParsePeriod(tag); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid period, want YYYY-MM"})
			return
		}
	}

	metric, err := s.engine.CategoryMetric(r.Context(), userID, categoryID, period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metric)
}

type previewRequest struct {
	UserID     uuid.UUID       `json:"userId"`
	CategoryID uuid.UUID       `json:"categoryId"`
	Amount     decimal.Decimal `json:"amount"`
	AsOf       time.Time       `json:"asOf,omitempty"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	preview, err := s.engine.PreviewImpact(r.Context(), req.UserID, req.CategoryID, req.Amount, req.AsOf)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

type allocationRequest struct {
	UserID            uuid.UUID       `json:"userId"`
	ProposedDelta     decimal.Decimal `json:"proposedDelta"`
	ExcludeCategoryID uuid.UUID       `json:"excludeCategoryId,omitempty"`
}

func (s *Server) handleAllocationCheck(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := s.engine.ValidateAllocation(r.Context(), req.UserID, req.ProposedDelta, req.ExcludeCategoryID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type categoryRequest struct {
	ID           uuid.UUID       `json:"id,omitempty"`
	UserID       uuid.UUID       `json:"userId"`
	Name         string          `json:"name"`
	MonthlyLimit decimal.Decimal `json:"monthlyLimit"`
	IsEssential  bool            `json:"isEssential"`
	Color        string          `json:"color,omitempty"`
	Icon         string          `json:"icon,omitempty"`
}

func (s *Server) handleSaveCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	saved, err := s.mutations.SaveCategory(r.Context(), core.BudgetCategory{
		ID:           req.ID,
		UserID:       req.UserID,
		Name:         req.Name,
		MonthlyLimit: req.MonthlyLimit,
		IsEssential:  req.IsEssential,
		Color:        req.Color,
		Icon:         req.Icon,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.mutations.DeleteCategory)
}

type expenseRequest struct {
	UserID        uuid.UUID       `json:"userId"`
	CategoryID    uuid.UUID       `json:"categoryId"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description,omitempty"`
	SavingsGoalID uuid.UUID       `json:"savingsGoalId,omitempty"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	saved, err := s.mutations.CreateExpense(r.Context(), core.Expense{
		UserID:        req.UserID,
		CategoryID:    req.CategoryID,
		Amount:        req.Amount,
		Date:          req.Date,
		Description:   req.Description,
		SavingsGoalID: req.SavingsGoalID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.mutations.DeleteExpense)
}

type incomeSourceRequest struct {
	ID        uuid.UUID       `json:"id,omitempty"`
	UserID    uuid.UUID       `json:"userId"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency string          `json:"frequency"`
}

func (s *Server) handleSaveIncomeSource(w http.ResponseWriter, r *http.Request) {
	var req incomeSourceRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	frequency, err := core.ParseFrequency(req.Frequency)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	saved, err := s.mutations.SaveIncomeSource(r.Context(), core.IncomeSource{
		ID:        req.ID,
		UserID:    req.UserID,
		Name:      req.Name,
		Amount:    req.Amount,
		Frequency: frequency,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteIncomeSource(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.mutations.DeleteIncomeSource)
}

type savingsGoalRequest struct {
	ID                   uuid.UUID       `json:"id,omitempty"`
	UserID               uuid.UUID       `json:"userId"`
	Name                 string          `json:"name"`
	TargetAmount         decimal.Decimal `json:"targetAmount"`
	MonthlySavingsTarget decimal.Decimal `json:"monthlySavingsTarget,omitempty"`
}

func (s *Server) handleSaveSavingsGoal(w http.ResponseWriter, r *http.Request) {
	var req savingsGoalRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	saved, err := s.mutations.SaveSavingsGoal(r.Context(), core.SavingsGoal{
		ID:                   req.ID,
		UserID:               req.UserID,
		Name:                 req.Name,
		TargetAmount:         req.TargetAmount,
		MonthlySavingsTarget: req.MonthlySavingsTarget,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteSavingsGoal(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.mutations.DeleteSavingsGoal)
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	goalID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid goal id"})
		return
	}

	progress, err := s.engine.GoalProgress(r.Context(), userID, goalID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

type contributionRequest struct {
	UserID uuid.UUID       `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleRecordContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	goalID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid goal id"})
		return
	}

	if err := s.mutations.RecordContribution(r.Context(), req.UserID, goalID, req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}

	progress, err := s.engine.GoalProgress(r.Context(), req.UserID, goalID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) deleteByID(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, userID, id uuid.UUID) error) {
	userID, err := userFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := del(r.Context(), userID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userFromQuery(r *http.Request) (uuid.UUID, error) {
	raw := r.URL.Query().Get("user")
	if raw == "" {
		return uuid.Nil, errors.New("missing user query parameter")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id: %w", err)
	}
	return userID, nil
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
