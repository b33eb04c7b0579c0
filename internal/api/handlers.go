/**
 * @description
 * This file contains the HTTP handlers for the wallet-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paisaflow/wallet-service/internal/app"
	"github.com/paisaflow/wallet-service/internal/domain"
	"github.com/paisaflow/wallet-service/internal/store"
)

// WalletHandlers holds the application service that handlers will use.
type WalletHandlers struct {
	service *app.Service

	limiter            *app.RedisTransferRateLimiter
	transfersPerMinute int
}

// NewWalletHandlers creates a new instance of WalletHandlers.
func NewWalletHandlers(service *app.Service, limiter *app.RedisTransferRateLimiter, transfersPerMinute int) *WalletHandlers {
	return &WalletHandlers{
		service:            service,
		limiter:            limiter,
		transfersPerMinute: transfersPerMinute,
	}
}

// mapMovementError translates engine errors into HTTP status codes and
// client-safe messages.
func mapMovementError(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrAccountNotFound):
		return http.StatusNotFound, "Account not found."
	case errors.Is(err, app.ErrSelfTransfer):
		return http.StatusBadRequest, "Sender and recipient must be different accounts."
	case errors.Is(err, app.ErrInvalidAmount):
		return http.StatusBadRequest, "Amount must be a positive number of paise."
	case errors.Is(err, store.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "Insufficient funds."
	}
	return http.StatusInternalServerError, "Could not process the request."
}

// TransferHandler handles requests for peer-to-peer transfers. The sender is
// the authenticated account; the Idempotency-Key header is forwarded to the
// engine as a reserved extension point.
func (h *WalletHandlers) TransferHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		http.Error(w, "Could not get account ID from context", http.StatusInternalServerError)
		return
	}

	if !h.allowMovement(w, r, "transfer", accountID.String()) {
		return
	}

	var payload domain.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	result, err := h.service.Transfer(r.Context(), accountID, payload.RecipientID, payload.Amount, payload.Description, idempotencyKey)
	if err != nil {
		status, message := mapMovementError(err)
		if status == http.StatusInternalServerError {
			log.Printf("level=error component=api endpoint=transfer outcome=failed sender_id=%s err=%v", accountID, err)
		}
		h.writeError(w, status, message)
		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

// DepositHandler handles requests to top up the authenticated account.
func (h *WalletHandlers) DepositHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		http.Error(w, "Could not get account ID from context", http.StatusInternalServerError)
		return
	}

	if !h.allowMovement(w, r, "deposit", accountID.String()) {
		return
	}

	var payload domain.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	result, err := h.service.Deposit(r.Context(), accountID, payload.Amount, payload.Description)
	if err != nil {
		status, message := mapMovementError(err)
		if status == http.StatusInternalServerError {
			log.Printf("level=error component=api endpoint=deposit outcome=failed account_id=%s err=%v", accountID, err)
		}
		h.writeError(w, status, message)
		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

// AccountHandler returns the authenticated account with its current balance.
func (h *WalletHandlers) AccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		http.Error(w, "Could not get account ID from context", http.StatusInternalServerError)
		return
	}

	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		status, message := mapMovementError(err)
		if status == http.StatusInternalServerError {
			log.Printf("level=error component=api endpoint=account outcome=failed account_id=%s err=%v", accountID, err)
		}
		h.writeError(w, status, message)
		return
	}

	h.writeJSON(w, http.StatusOK, account)
}

// ListTransactionsHandler returns one page of the authenticated account's
// ledger history. Supported query parameters: direction, q, from, to (RFC
// 3339), page, limit.
func (h *WalletHandlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		http.Error(w, "Could not get account ID from context", http.StatusInternalServerError)
		return
	}

	opts, err := parseHistoryOptions(r.URL.Query().Get("direction"), r.URL.Query().Get("q"),
		r.URL.Query().Get("from"), r.URL.Query().Get("to"),
		r.URL.Query().Get("page"), r.URL.Query().Get("limit"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.service.ListTransactions(r.Context(), accountID, opts)
	if err != nil {
		status, message := mapMovementError(err)
		if status == http.StatusInternalServerError {
			log.Printf("level=error component=api endpoint=list_transactions outcome=failed account_id=%s err=%v", accountID, err)
		}
		h.writeError(w, status, message)
		return
	}

	h.writeJSON(w, http.StatusOK, page)
}

// StatisticsHandler returns windowed activity statistics for the authenticated
// account. The window is selected with the `range` query parameter.
func (h *WalletHandlers) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		http.Error(w, "Could not get account ID from context", http.StatusInternalServerError)
		return
	}

	timeRange := r.URL.Query().Get("range")
	if timeRange == "" {
		timeRange = app.RangeMonth
	}

	stats, err := h.service.GetStatistics(r.Context(), accountID, timeRange)
	if err != nil {
		if errors.Is(err, app.ErrInvalidTimeRange) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		status, message := mapMovementError(err)
		if status == http.StatusInternalServerError {
			log.Printf("level=error component=api endpoint=statistics outcome=failed account_id=%s err=%v", accountID, err)
		}
		h.writeError(w, status, message)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// allowMovement consumes one rate-limit token for the subject and writes the
// 429 response itself when the limit is exceeded. Limiter errors fail open:
// money movement must not depend on Redis availability.
func (h *WalletHandlers) allowMovement(w http.ResponseWriter, r *http.Request, scope, subject string) bool {
	if h.limiter == nil || h.transfersPerMinute <= 0 {
		return true
	}
	count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), scope, subject, h.transfersPerMinute, time.Minute)
	if err != nil {
		log.Printf("level=warn component=api msg=\"rate limiter unavailable; allowing request\" scope=%s err=%v", scope, err)
		return true
	}
	if count > h.transfersPerMinute {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		h.writeError(w, http.StatusTooManyRequests, "Too many requests. Please slow down.")
		return false
	}
	return true
}

// parseHistoryOptions validates and converts raw query values.
func parseHistoryOptions(direction, search, fromRaw, toRaw, pageRaw, limitRaw string) (domain.HistoryListOptions, error) {
	opts := domain.HistoryListOptions{Search: strings.TrimSpace(search)}

	switch direction {
	case "", domain.DirectionCredit, domain.DirectionDebit:
		opts.Direction = direction
	default:
		return opts, errors.New("direction must be credit or debit")
	}

	if fromRaw != "" {
		from, err := time.Parse(time.RFC3339, fromRaw)
		if err != nil {
			return opts, errors.New("from must be an RFC 3339 timestamp")
		}
		opts.From = &from
	}
	if toRaw != "" {
		to, err := time.Parse(time.RFC3339, toRaw)
		if err != nil {
			return opts, errors.New("to must be an RFC 3339 timestamp")
		}
		opts.To = &to
	}

	page, err := parseOptionalPositiveInt(pageRaw, 1)
	if err != nil {
		return opts, errors.New("page must be a positive integer")
	}
	opts.Page = page

	limit, err := parseOptionalPositiveInt(limitRaw, 0)
	if err != nil {
		return opts, errors.New("limit must be a positive integer")
	}
	opts.Limit = limit

	return opts, nil
}

func parseOptionalPositiveInt(raw string, fallback int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errors.New("invalid integer")
	}
	return value, nil
}

// writeJSON is a helper for writing JSON responses.
func (h *WalletHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *WalletHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
