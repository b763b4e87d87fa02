package services

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/pointmart/backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQRReferrals() *ReferralService {
	return NewReferralService(nil, nil, nil, dec("0.1"), "pointmart_bot", logger.NewNop())
}

func TestQRService_WithoutRedis(t *testing.T) {
	service := NewQRService(newQRReferrals(), nil, logger.NewNop())

	link, img, err := service.ReferralQR(context.Background(), 77)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/pointmart_bot?start=77", link)

	decoded, err := png.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, 256, decoded.Bounds().Dx())
}

func TestQRService_Cache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	service := NewQRService(newQRReferrals(), db, logger.NewNop())
	ctx := context.Background()

	want, err := Encode("https://t.me/pointmart_bot?start=78", 256)
	require.NoError(t, err)

	t.Run("miss renders and stores", func(t *testing.T) {
		mock.ExpectGet("qr:referral:78").RedisNil()
		mock.ExpectSet("qr:referral:78", want, qrCacheTTL).SetVal("OK")

		_, img, err := service.ReferralQR(ctx, 78)
		require.NoError(t, err)
		assert.Equal(t, want, img)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hit skips rendering", func(t *testing.T) {
		mock.ExpectGet("qr:referral:78").SetVal("cached-png")

		_, img, err := service.ReferralQR(ctx, 78)
		require.NoError(t, err)
		assert.Equal(t, []byte("cached-png"), img)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cache failure still renders", func(t *testing.T) {
		mock.ExpectGet("qr:referral:78").SetErr(errors.New("timeout"))
		mock.ExpectSet("qr:referral:78", want, qrCacheTTL).SetErr(errors.New("timeout"))

		_, img, err := service.ReferralQR(ctx, 78)
		require.NoError(t, err)
		assert.Equal(t, want, img)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
