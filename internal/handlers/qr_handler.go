package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pointmart/backend/internal/logger"
	"github.com/pointmart/backend/internal/services"
)

// ReferralQRSource renders a user's referral link as a PNG.
type ReferralQRSource interface {
	ReferralQR(ctx context.Context, userID int64) (string, []byte, error)
}

type QRHandler struct {
	service ReferralQRSource
	log     *logger.Logger
}

func NewQRHandler(service ReferralQRSource, log *logger.Logger) *QRHandler {
	return &QRHandler{
		service: service,
		log:     log.With("handler", "QRHandler"),
	}
}

// ReferralQR returns the referral QR code for a user
// @Summary Referral QR code
// @Description PNG QR code of the user's referral deep link
// @Tags referrals
// @Produce png
// @Param userId path int true "Chat user id"
// @Success 200 {file} binary
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /referrals/{userId}/qr [get]
func (h *QRHandler) ReferralQR(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || userID <= 0 {
		services.SendErrorResponse(w, "Invalid user id", http.StatusBadRequest, nil)
		return
	}

	link, img, err := h.service.ReferralQR(r.Context(), userID)
	if err != nil {
		h.log.Error("referral qr failed", "user_id", userID, "error", err)
		services.SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Referral-Link", link)
	w.Write(img)
}
