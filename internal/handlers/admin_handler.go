package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pointmart/backend/internal/logger"
	"github.com/pointmart/backend/internal/middleware"
	"github.com/pointmart/backend/internal/models"
	"github.com/pointmart/backend/internal/services"
	"github.com/shopspring/decimal"
)

type StatsReader interface {
	Stats(ctx context.Context) (models.Stats, error)
}

type Accounts interface {
	Lookup(ctx context.Context, userID int64) (models.Account, error)
	Adjust(ctx context.Context, userID int64, signed decimal.Decimal, description string, force bool) (decimal.Decimal, error)
	UserIDs(ctx context.Context) ([]int64, error)
}

type Broadcaster interface {
	Broadcast(ctx context.Context, recipients []int64, text string) models.BroadcastResult
}

type Catalog interface {
	IngestBatch(ctx context.Context, entries []models.CatalogEntry) (int, error)
	Lookup(ctx context.Context, assetID string) (models.CatalogEntry, error)
}

type AuditTrail interface {
	BalanceUpdated(ctx context.Context, adminID, userID int64, delta, balance decimal.Decimal)
	Broadcast(ctx context.Context, adminID int64, result models.BroadcastResult)
}

type AdminDeps struct {
	Stats     StatsReader
	Accounts  Accounts
	Broadcast Broadcaster
	Catalog   Catalog
	Audit     AuditTrail
}

// AdminHandler exposes the admin chat commands over HTTP.
type AdminHandler struct {
	stats     StatsReader
	accounts  Accounts
	broadcast Broadcaster
	catalog   Catalog
	audit     AuditTrail
	validator *services.ValidationHelper
	log       *logger.Logger
}

func NewAdminHandler(deps AdminDeps, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		stats:     deps.Stats,
		accounts:  deps.Accounts,
		broadcast: deps.Broadcast,
		catalog:   deps.Catalog,
		audit:     deps.Audit,
		validator: services.NewValidationHelper(),
		log:       log.With("handler", "AdminHandler"),
	}
}

// AdjustRequest is a signed balance change
// @Description Signed balance change for one user
type AdjustRequest struct {
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" example:"-2.5"`
	Description string          `json:"description,omitempty" validate:"max=256" example:"Manual top up"`
	Force       bool            `json:"force,omitempty"` // allow a negative result
}

type AdjustResponse struct {
	UserID  int64           `json:"userId"`
	Delta   decimal.Decimal `json:"delta" swaggertype:"string"`
	Balance decimal.Decimal `json:"balance" swaggertype:"string"`
}

type BroadcastRequest struct {
	Message string `json:"message" validate:"required,max=4096"`
}

type CatalogBatchRequest struct {
	Entries []models.CatalogEntry `json:"entries" validate:"required,min=1,max=5000,dive"`
}

type CatalogBatchResponse struct {
	Saved int `json:"saved"`
}

// Stats returns bot statistics
// @Summary Bot statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Stats
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		h.log.Error("stats failed", "error", err)
		services.SendServiceError(w, err)
		return
	}
	services.WriteJSON(w, stats)
}

// Balance returns a user's account
// @Summary Check balance
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param userId path int true "Chat user id"
// @Success 200 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/users/{userId}/balance [get]
func (h *AdminHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	acct, err := h.accounts.Lookup(r.Context(), userID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.WriteJSON(w, acct)
}

// Adjust applies a signed balance change
// @Summary Adjust balance
// @Description Credit or debit a user's points. A change that would make the balance negative needs force.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "Chat user id"
// @Param request body AdjustRequest true "Balance change"
// @Success 200 {object} AdjustResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse "Would go negative"
// @Router /admin/users/{userId}/adjust [post]
func (h *AdminHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req AdjustRequest
	if err := services.DecodeJSONBody(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if req.Amount.IsZero() {
		services.SendErrorResponse(w, "amount must not be zero", http.StatusBadRequest, nil)
		return
	}

	adminID := adminFrom(r)
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = fmt.Sprintf("Balance update by admin %d", adminID)
	}

	balance, err := h.accounts.Adjust(r.Context(), userID, req.Amount, desc, req.Force)
	if err != nil {
		h.log.Warn("adjust refused", "admin_id", adminID, "user_id", userID, "amount", req.Amount.String(), "error", err)
		services.SendServiceError(w, err)
		return
	}

	h.audit.BalanceUpdated(r.Context(), adminID, userID, req.Amount, balance)
	services.WriteJSON(w, AdjustResponse{UserID: userID, Delta: req.Amount, Balance: balance})
}

// Broadcast sends a message to every known user
// @Summary Broadcast
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BroadcastRequest true "Message"
// @Success 200 {object} models.BroadcastResult
// @Failure 400 {object} services.ErrorResponse
// @Router /admin/broadcast [post]
func (h *AdminHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req BroadcastRequest
	if err := services.DecodeJSONBody(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	recipients, err := h.accounts.UserIDs(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	result := h.broadcast.Broadcast(r.Context(), recipients, req.Message)
	h.audit.Broadcast(r.Context(), adminFrom(r), result)
	services.WriteJSON(w, result)
}

// CatalogBatch upserts catalog entries
// @Summary Batch index
// @Description Upsert entries by asset id in one transaction
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CatalogBatchRequest true "Entries"
// @Success 200 {object} CatalogBatchResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /admin/catalog/batch [post]
func (h *AdminHandler) CatalogBatch(w http.ResponseWriter, r *http.Request) {
	var req CatalogBatchRequest
	if err := services.DecodeJSONBody(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	n, err := h.catalog.IngestBatch(r.Context(), req.Entries)
	if err != nil {
		h.log.Error("batch index failed", "entries", len(req.Entries), "error", err)
		services.SendServiceError(w, err)
		return
	}
	h.log.Info("batch index saved", "admin_id", adminFrom(r), "entries", n)
	services.WriteJSON(w, CatalogBatchResponse{Saved: n})
}

// CatalogEntry looks up one asset
// @Summary Catalog lookup
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param assetId path string true "Asset id"
// @Success 200 {object} models.CatalogEntry
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/catalog/{assetId} [get]
func (h *AdminHandler) CatalogEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.catalog.Lookup(r.Context(), chi.URLParam(r, "assetId"))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.WriteJSON(w, entry)
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || userID <= 0 {
		services.SendErrorResponse(w, "Invalid user id", http.StatusBadRequest, nil)
		return 0, false
	}
	return userID, true
}

func adminFrom(r *http.Request) int64 {
	if claims, ok := middleware.ClaimsFrom(r.Context()); ok {
		return claims.UserID
	}
	return 0
}
