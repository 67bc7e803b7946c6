package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cashlytics/server/internal/finance/application"
	"github.com/cashlytics/server/internal/finance/domain"
	financeErrors "github.com/cashlytics/server/internal/finance/errors"
	"github.com/shopspring/decimal"
)

const dateFormat = "2006-01-02"

type TransactionServiceInterface interface {
	CreateTransaction(ctx context.Context, transaction *domain.Transaction) error
	GetUserTransactions(ctx context.Context, userID string, skip, limit int) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, changes domain.TransactionUpdate) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) (bool, error)
}

type ReportServiceInterface interface {
	WeeklyReport(ctx context.Context, userID string, referenceDate *time.Time) (*application.WeeklyReport, error)
}

type TransactionHandler struct {
	service       TransactionServiceInterface
	reportService ReportServiceInterface
	respondJSON   func(w http.ResponseWriter, status int, payload interface{})
	respondError  func(w http.ResponseWriter, status int, message string)
}

func NewTransactionHandler(
	service TransactionServiceInterface,
	reportService ReportServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string),
) *TransactionHandler {
	if service == nil || reportService == nil {
		log.Fatal("Service must not be nil")
		return nil
	}
	if respondJSON == nil || respondError == nil {
		log.Fatal("Respond functions must not be nil")
		return nil
	}
	return &TransactionHandler{
		service:       service,
		reportService: reportService,
		respondJSON:   respondJSON,
		respondError:  respondError,
	}
}

type transactionPayload struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Date        string          `json:"date"`
	CreatedAt   string          `json:"created_at"`
}

func newTransactionPayload(transaction domain.Transaction) transactionPayload {
	return transactionPayload{
		ID:          transaction.ID,
		UserID:      transaction.UserID,
		Amount:      transaction.Amount,
		Type:        string(transaction.Type),
		Category:    transaction.Category,
		Description: transaction.Description,
		Date:        transaction.Date.Format(dateFormat),
		CreatedAt:   transaction.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type dailyActivityPayload struct {
	Date    string          `json:"date"`
	Credits decimal.Decimal `json:"credits"`
	Debits  decimal.Decimal `json:"debits"`
}

type weeklyReportPayload struct {
	TotalCredits   decimal.Decimal        `json:"total_credits"`
	TotalDebits    decimal.Decimal        `json:"total_debits"`
	NetBalance     decimal.Decimal        `json:"net_balance"`
	StartDate      string                 `json:"start_date"`
	EndDate        string                 `json:"end_date"`
	DailyBreakdown []dailyActivityPayload `json:"daily_breakdown"`
}

func newWeeklyReportPayload(report *application.WeeklyReport) weeklyReportPayload {
	breakdown := make([]dailyActivityPayload, len(report.DailyBreakdown))
	for i, day := range report.DailyBreakdown {
		breakdown[i] = dailyActivityPayload{
			Date:    day.Date.Format(dateFormat),
			Credits: day.Credits,
			Debits:  day.Debits,
		}
	}
	return weeklyReportPayload{
		TotalCredits:   report.TotalCredits,
		TotalDebits:    report.TotalDebits,
		NetBalance:     report.NetBalance,
		StartDate:      report.StartDate.Format(dateFormat),
		EndDate:        report.EndDate.Format(dateFormat),
		DailyBreakdown: breakdown,
	}
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		Type        string          `json:"type"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Date        string          `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	date, err := time.Parse(dateFormat, req.Date)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD")
		return
	}

	transaction := domain.Transaction{
		UserID:      userID,
		Amount:      req.Amount,
		Type:        domain.TransactionType(req.Type),
		Category:    req.Category,
		Description: req.Description,
		Date:        date,
	}
	if err := h.service.CreateTransaction(r.Context(), &transaction); err != nil {
		if financeErrors.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Error during transaction creation: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to create transaction")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Transaction successfully created.",
		"data":    newTransactionPayload(transaction),
	})
}

func (h *TransactionHandler) GetUserTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	skip := 0
	limit := application.DefaultListLimit
	var err error

	if skipStr := r.URL.Query().Get("skip"); skipStr != "" {
		skip, err = strconv.Atoi(skipStr)
		if err != nil || skip < 0 {
			h.respondError(w, http.StatusBadRequest, "Invalid skip value")
			return
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > application.MaxListLimit {
			h.respondError(w, http.StatusBadRequest, "Invalid limit value")
			return
		}
	}

	transactions, err := h.service.GetUserTransactions(r.Context(), userID, skip, limit)
	if err != nil {
		log.Printf("Error retrieving transactions: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve transactions")
		return
	}

	payload := make([]transactionPayload, len(transactions))
	for i, transaction := range transactions {
		payload[i] = newTransactionPayload(transaction)
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Transactions retrieved successfully.",
		"data":    payload,
	})
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	transaction, err := h.service.GetTransaction(r.Context(), userID, r.PathValue("transactionID"))
	if err != nil {
		if errors.Is(err, financeErrors.ErrTransactionNotFound) {
			h.respondError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		log.Printf("Error retrieving transaction: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve transaction")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Transaction retrieved successfully.",
		"data":    newTransactionPayload(*transaction),
	})
}

func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Amount      *decimal.Decimal `json:"amount"`
		Type        *string          `json:"type"`
		Category    *string          `json:"category"`
		Description *string          `json:"description"`
		Date        *string          `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	changes := domain.TransactionUpdate{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
	}
	if req.Type != nil {
		transactionType := domain.TransactionType(*req.Type)
		changes.Type = &transactionType
	}
	if req.Date != nil {
		date, err := time.Parse(dateFormat, *req.Date)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD")
			return
		}
		changes.Date = &date
	}

	transaction, err := h.service.UpdateTransaction(r.Context(), userID, r.PathValue("transactionID"), changes)
	if err != nil {
		if financeErrors.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, financeErrors.ErrTransactionNotFound) {
			h.respondError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		log.Printf("Error during transaction update: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to update transaction")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Transaction successfully updated.",
		"data":    newTransactionPayload(*transaction),
	})
}

func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	deleted, err := h.service.DeleteTransaction(r.Context(), userID, r.PathValue("transactionID"))
	if err != nil {
		log.Printf("Error during transaction delete: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}
	if !deleted {
		h.respondError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TransactionHandler) GetWeeklyReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var referenceDate *time.Time
	if referenceDateStr := r.URL.Query().Get("reference_date"); referenceDateStr != "" {
		parsed, err := time.Parse(dateFormat, referenceDateStr)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid reference date format, expected YYYY-MM-DD")
			return
		}
		referenceDate = &parsed
	}

	report, err := h.reportService.WeeklyReport(r.Context(), userID, referenceDate)
	if err != nil {
		log.Printf("Error generating weekly report: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to generate weekly report")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Weekly report generated successfully.",
		"data":    newWeeklyReportPayload(report),
	})
}
