package api

import (
	"context"
	"encoding/json"
	"errors"
	"finance_planner/internal/domain"
	"finance_planner/internal/rates"
	"finance_planner/internal/repository"
	"finance_planner/internal/service"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type APIHandler struct {
	planning       *service.PlanningService
	rates          *service.RateService
	recurring      *service.RecurringService
	logger         *slog.Logger
	requestTimeout time.Duration
	now            func() time.Time
}

func NewAPIHandler(
	planning *service.PlanningService,
	rateService *service.RateService,
	recurring *service.RecurringService,
	logger *slog.Logger,
) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &APIHandler{
		planning:       planning,
		rates:          rateService,
		recurring:      recurring,
		logger:         logger,
		requestTimeout: 30 * time.Second,
		now:            time.Now,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type AmortizeRequest struct {
	Principal               float64  `json:"principal"`
	AnnualRatePercent       float64  `json:"annual_rate_percent"`
	TermMonths              int      `json:"term_months"`
	PromotionalRatePercent  *float64 `json:"promotional_rate_percent,omitempty"`
	PromotionalPeriodMonths int      `json:"promotional_period_months,omitempty"`
	IncludeSchedule         bool     `json:"include_schedule"`
}

type CustomScenarioRequest struct {
	Name        string                      `json:"name"`
	Overrides   domain.ScenarioOverrides    `json:"overrides"`
	Assumptions *domain.EconomicAssumptions `json:"assumptions,omitempty"`
}

type ProcessRequest struct {
	AsOf string `json:"as_of,omitempty"`
}

func (h *APIHandler) AmortizeHandler(w http.ResponseWriter, r *http.Request) {
	var req AmortizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	loan, err := domain.NewLoanParameters(req.Principal, req.AnnualRatePercent, req.TermMonths)
	if err == nil && req.PromotionalRatePercent != nil {
		loan, err = loan.WithPromotion(*req.PromotionalRatePercent, req.PromotionalPeriodMonths)
	}
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	result, err := h.rates.Amortize(loan)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	if !req.IncludeSchedule {
		result.Schedule = nil
	}
	h.sendJSON(w, result, http.StatusOK)
}

func (h *APIHandler) RecommendHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req rates.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	rec, err := h.rates.Recommend(ctx, req)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, rec, http.StatusOK)
}

func (h *APIHandler) DefaultRateHandler(w http.ResponseWriter, r *http.Request) {
	purpose := domain.LoanPurpose(mux.Vars(r)["purpose"])
	d, err := h.rates.DefaultRate(purpose)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, d, http.StatusOK)
}

func (h *APIHandler) CreatePlanHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var plan domain.PlanRecord
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if err := h.planning.CreatePlan(ctx, &plan); err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, plan, http.StatusCreated)
}

func (h *APIHandler) GetPlanHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	plan, err := h.planning.GetPlan(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, plan, http.StatusOK)
}

func (h *APIHandler) ScenariosHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	results, err := h.planning.GenerateScenarios(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, results, http.StatusOK)
}

func (h *APIHandler) CustomScenarioHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req CustomScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	result, err := h.planning.GenerateCustom(ctx, mux.Vars(r)["id"], req.Name, req.Overrides, req.Assumptions)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, result, http.StatusOK)
}

func (h *APIHandler) ComparisonHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	cmp, err := h.planning.Compare(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, cmp, http.StatusOK)
}

func (h *APIHandler) AnalysisHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	analyses, err := h.planning.Analyze(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, analyses, http.StatusOK)
}

func (h *APIHandler) CreateRecurringHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req service.CreateDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	def, err := h.recurring.CreateDefinition(ctx, req)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, def, http.StatusCreated)
}

func (h *APIHandler) GetRecurringHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	def, err := h.recurring.GetDefinition(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, def, http.StatusOK)
}

func (h *APIHandler) RecurringEntriesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	entries, err := h.recurring.Entries(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntryRequest{}
	}
	h.sendJSON(w, entries, http.StatusOK)
}

func (h *APIHandler) OwnerRecurringHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	defs, err := h.recurring.ListByOwner(ctx, mux.Vars(r)["owner"])
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	if defs == nil {
		defs = []*domain.RecurringDefinition{}
	}
	h.sendJSON(w, defs, http.StatusOK)
}

func (h *APIHandler) ProcessRecurringHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req ProcessRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
			return
		}
	}

	asOf := h.now()
	if req.AsOf != "" {
		parsed, err := time.Parse(time.DateOnly, req.AsOf)
		if err != nil {
			h.sendError(w, "as_of must be YYYY-MM-DD", http.StatusBadRequest, "INVALID_PARAMETER")
			return
		}
		asOf = parsed
	}

	report, err := h.recurring.ProcessDue(ctx, asOf)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		h.logger.Warn("Recurrence run interrupted",
			slog.String("error", err.Error()),
			slog.Int("saved", len(report.Saved)))
		h.sendJSON(w, report, http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		h.logger.Error("Recurrence run failed", slog.String("error", err.Error()))
		h.sendError(w, "Recurrence run failed", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	h.sendJSON(w, report, http.StatusOK)
}

func (h *APIHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	}
	h.sendJSON(w, response, http.StatusOK)
}

func (h *APIHandler) sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidParameter):
		h.sendError(w, err.Error(), http.StatusBadRequest, "INVALID_PARAMETER")
	case errors.Is(err, domain.ErrInvalidScenarioInput):
		h.sendError(w, err.Error(), http.StatusUnprocessableEntity, "INVALID_SCENARIO_INPUT")
	case errors.Is(err, domain.ErrNoRateAvailable):
		h.sendError(w, err.Error(), http.StatusUnprocessableEntity, "NO_RATE_AVAILABLE")
	case errors.Is(err, repository.ErrNotFound):
		h.sendError(w, err.Error(), http.StatusNotFound, "NOT_FOUND")
	case errors.Is(err, repository.ErrDuplicate):
		h.sendError(w, err.Error(), http.StatusConflict, "DUPLICATE")
	default:
		h.logger.Error("Request failed", slog.String("error", err.Error()))
		h.sendError(w, "Internal server error", http.StatusInternalServerError, "SERVER_ERROR")
	}
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func (h *APIHandler) sendError(w http.ResponseWriter, message string, statusCode int, code string) {
	errorResponse := ErrorResponse{
		Error: message,
		Code:  code,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse)

	h.logger.Warn("API error response",
		slog.String("message", message),
		slog.String("code", code),
		slog.Int("status", statusCode))
}

func (h *APIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/health", h.HealthCheckHandler).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/loans/amortize", h.AmortizeHandler).Methods("POST")
	v1.HandleFunc("/rates/recommend", h.RecommendHandler).Methods("POST")
	v1.HandleFunc("/rates/defaults/{purpose}", h.DefaultRateHandler).Methods("GET")

	v1.HandleFunc("/plans", h.CreatePlanHandler).Methods("POST")
	v1.HandleFunc("/plans/{id}", h.GetPlanHandler).Methods("GET")
	v1.HandleFunc("/plans/{id}/scenarios", h.ScenariosHandler).Methods("POST")
	v1.HandleFunc("/plans/{id}/scenarios/custom", h.CustomScenarioHandler).Methods("POST")
	v1.HandleFunc("/plans/{id}/comparison", h.ComparisonHandler).Methods("GET")
	v1.HandleFunc("/plans/{id}/analysis", h.AnalysisHandler).Methods("GET")

	v1.HandleFunc("/recurring", h.CreateRecurringHandler).Methods("POST")
	v1.HandleFunc("/recurring/process", h.ProcessRecurringHandler).Methods("POST")
	v1.HandleFunc("/recurring/{id}", h.GetRecurringHandler).Methods("GET")
	v1.HandleFunc("/recurring/{id}/entries", h.RecurringEntriesHandler).Methods("GET")
	v1.HandleFunc("/owners/{owner}/recurring", h.OwnerRecurringHandler).Methods("GET")
}
