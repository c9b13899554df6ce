package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetpulse/internal/cache"
	"budgetpulse/internal/core"
	"budgetpulse/internal/engine"
	"budgetpulse/internal/memory"
	"budgetpulse/internal/services"
)

var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestServer(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.New().WithClock(fixedClock)
	eng := engine.New(engine.Config{
		Store:       store,
		Contributor: store,
		Cache:       cache.NewTTLStore(256),
		Clock:       fixedClock,
	})
	mutations := services.NewMutationService(store, eng, eng.Invalidator(), nil, nil)
	return NewServer(":0", eng, mutations, nil).Handler, store
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestDashboardRequiresUser(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/dashboard", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCategoryRoundTrip(t *testing.T) {
	handler, _ := newTestServer(t)
	userID := uuid.New()

	rec := doJSON(t, handler, http.MethodPost, "/api/categories", map[string]any{
		"userId":       userID,
		"name":         "Groceries",
		"monthlyLimit": "500",
		"isEssential":  true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body)
	}
	var created core.BudgetCategory
	decodeInto(t, rec, &created)
	if created.ID == uuid.Nil {
		t.Fatal("created category has no ID")
	}

	target := fmt.Sprintf("/api/categories/%s/metric?user=%s", created.ID, userID)
	rec = doJSON(t, handler, http.MethodGet, target, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metric status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var metric core.CategoryMetric
	decodeInto(t, rec, &metric)
	if !metric.MonthlyLimit.Equal(decimal.NewFromInt(500)) {
		t.Errorf("MonthlyLimit = %s, want 500", metric.MonthlyLimit)
	}
	if metric.HealthStatus != core.HealthExcellent {
		t.Errorf("HealthStatus = %s, want excellent", metric.HealthStatus)
	}

	rec = doJSON(t, handler, http.MethodDelete,
		fmt.Sprintf("/api/categories/%s?user=%s", created.ID, userID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, handler, http.MethodGet, target, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("metric after delete status = %d, want 404", rec.Code)
	}
}

func TestCreateCategoryValidation(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/categories", map[string]any{
		"userId":       uuid.New(),
		"name":         "Bad",
		"monthlyLimit": "0",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body)
	}
}

func TestCreateCategoryRejectsUnknownFields(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/categories", map[string]any{
		"userId":       uuid.New(),
		"name":         "Groceries",
		"monthlyLimit": "500",
		"budget":       "extra",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown field", rec.Code)
	}
}

func TestPreviewOverBudget(t *testing.T) {
	handler, store := newTestServer(t)
	userID := uuid.New()

	category, err := store.PutCategory(context.Background(), core.BudgetCategory{
		UserID: userID, Name: "Groceries", MonthlyLimit: decimal.NewFromInt(500), IsEssential: true,
	})
	if err != nil {
		t.Fatalf("PutCategory: %v", err)
	}
	if _, err := store.PutExpense(context.Background(), core.Expense{
		UserID: userID, CategoryID: category.ID, Amount: decimal.NewFromInt(150), Date: fixedNow.AddDate(0, 0, -1),
	}); err != nil {
		t.Fatalf("PutExpense: %v", err)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/preview", map[string]any{
		"userId":     userID,
		"categoryId": category.ID,
		"amount":     "400",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var preview core.ImpactPreview
	decodeInto(t, rec, &preview)
	if preview.HealthStatus != core.HealthConcern {
		t.Errorf("HealthStatus = %s, want concern", preview.HealthStatus)
	}
	if !strings.Contains(preview.NarrativeMessage, "$50.00 over budget") {
		t.Errorf("NarrativeMessage = %q, want overage figure", preview.NarrativeMessage)
	}
}

func TestPreviewRejectsZeroAmount(t *testing.T) {
	handler, store := newTestServer(t)
	userID := uuid.New()
	category, err := store.PutCategory(context.Background(), core.BudgetCategory{
		UserID: userID, Name: "Groceries", MonthlyLimit: decimal.NewFromInt(500),
	})
	if err != nil {
		t.Fatalf("PutCategory: %v", err)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/preview", map[string]any{
		"userId":     userID,
		"categoryId": category.ID,
		"amount":     "0",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body)
	}
}

func TestAllocationCheck(t *testing.T) {
	handler, store := newTestServer(t)
	userID := uuid.New()

	if _, err := store.PutIncomeSource(context.Background(), core.IncomeSource{
		UserID: userID, Name: "Salary", Amount: decimal.NewFromInt(5000), Frequency: core.Monthly,
	}); err != nil {
		t.Fatalf("PutIncomeSource: %v", err)
	}
	if _, err := store.PutCategory(context.Background(), core.BudgetCategory{
		UserID: userID, Name: "Rent", MonthlyLimit: decimal.NewFromInt(4800),
	}); err != nil {
		t.Fatalf("PutCategory: %v", err)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/allocation/check", map[string]any{
		"userId":        userID,
		"proposedDelta": "300",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var result core.AllocationResult
	decodeInto(t, rec, &result)
	if result.IsValid {
		t.Error("allocation over income should be invalid")
	}
	if !strings.Contains(result.Explanation, "$100.00") {
		t.Errorf("Explanation = %q, want the overage amount", result.Explanation)
	}
}

func TestExpenseFutureDateRejected(t *testing.T) {
	handler, store := newTestServer(t)
	userID := uuid.New()
	category, err := store.PutCategory(context.Background(), core.BudgetCategory{
		UserID: userID, Name: "Groceries", MonthlyLimit: decimal.NewFromInt(500),
	})
	if err != nil {
		t.Fatalf("PutCategory: %v", err)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/expenses", map[string]any{
		"userId":     userID,
		"categoryId": category.ID,
		"amount":     "25",
		"date":       fixedNow.Add(48 * time.Hour),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body)
	}
}

func TestContributionUpdatesProgress(t *testing.T) {
	handler, store := newTestServer(t)
	userID := uuid.New()
	goal, err := store.PutSavingsGoal(context.Background(), core.SavingsGoal{
		UserID: userID, Name: "Vacation", TargetAmount: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("PutSavingsGoal: %v", err)
	}

	rec := doJSON(t, handler, http.MethodPost,
		fmt.Sprintf("/api/savings-goals/%s/contributions", goal.ID), map[string]any{
			"userId": userID,
			"amount": "250",
		})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var progress core.GoalProgress
	decodeInto(t, rec, &progress)
	if !progress.CurrentProgress.Equal(decimal.NewFromInt(250)) {
		t.Errorf("CurrentProgress = %s, want 250", progress.CurrentProgress)
	}
	if progress.PercentageComplete != 25 {
		t.Errorf("PercentageComplete = %v, want 25", progress.PercentageComplete)
	}
}

func TestDeleteUnknownExpense(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodDelete,
		fmt.Sprintf("/api/expenses/%s?user=%s", uuid.New(), uuid.New()), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", rec.Code, rec.Body)
	}
}
