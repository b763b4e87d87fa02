package services

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pointmart/backend/internal/logger"
	"github.com/skip2/go-qrcode"
)

const qrCacheTTL = 24 * time.Hour

// QRService renders referral links as PNG QR codes. Rendered images are
// cached in Redis when it is available.
type QRService struct {
	referrals *ReferralService
	redis     *redis.Client
	log       *logger.Logger
	size      int
}

func NewQRService(referrals *ReferralService, rdb *redis.Client, log *logger.Logger) *QRService {
	return &QRService{
		referrals: referrals,
		redis:     rdb,
		log:       log.With("service", "QRService"),
		size:      256,
	}
}

func qrKey(userID int64) string {
	return fmt.Sprintf("qr:referral:%d", userID)
}

// ReferralQR returns the referral link of userID and its QR code as PNG.
func (s *QRService) ReferralQR(ctx context.Context, userID int64) (string, []byte, error) {
	link := s.referrals.ReferralLink(userID)

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, qrKey(userID)).Bytes()
		if err == nil {
			return link, cached, nil
		}
		if err != redis.Nil {
			s.log.Warn("qr cache read failed", "user_id", userID, "error", err)
		}
	}

	img, err := Encode(link, s.size)
	if err != nil {
		return "", nil, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, qrKey(userID), img, qrCacheTTL).Err(); err != nil {
			s.log.Warn("qr cache write failed", "user_id", userID, "error", err)
		}
	}
	return link, img, nil
}

// Encode renders content as a size x size PNG.
func Encode(content string, size int) ([]byte, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(size)); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
