package transport

import (
	"context"

	"github.com/pointmart/backend/internal/models"
)

// Messenger delivers outbound messages through the chat transport.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, keyboard models.Keyboard) error
	SendDocument(ctx context.Context, chatID int64, handle, caption string) error
	SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) error
}
