package services

import (
	"context"
	"errors"
	"sync"

	"github.com/pointmart/backend/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) SendText(ctx context.Context, chatID int64, text string, keyboard models.Keyboard) error {
	args := m.Called(ctx, chatID, text, keyboard)
	return args.Error(0)
}

func (m *MockMessenger) SendDocument(ctx context.Context, chatID int64, handle, caption string) error {
	args := m.Called(ctx, chatID, handle, caption)
	return args.Error(0)
}

func (m *MockMessenger) SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) error {
	args := m.Called(ctx, chatID, png, caption)
	return args.Error(0)
}

type sentMessage struct {
	ChatID   int64
	Kind     string // text, document or photo
	Text     string
	Handle   string
	Keyboard models.Keyboard
}

// recordingMessenger keeps every outbound message and can be told to
// fail for specific chats.
type recordingMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[int64]bool
}

func newRecordingMessenger() *recordingMessenger {
	return &recordingMessenger{failFor: map[int64]bool{}}
}

var errBlocked = errors.New("bot was blocked by the user")

func (r *recordingMessenger) record(msg sentMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[msg.ChatID] {
		return errBlocked
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingMessenger) SendText(_ context.Context, chatID int64, text string, keyboard models.Keyboard) error {
	return r.record(sentMessage{ChatID: chatID, Kind: "text", Text: text, Keyboard: keyboard})
}

func (r *recordingMessenger) SendDocument(_ context.Context, chatID int64, handle, caption string) error {
	return r.record(sentMessage{ChatID: chatID, Kind: "document", Handle: handle, Text: caption})
}

func (r *recordingMessenger) SendPhoto(_ context.Context, chatID int64, _ []byte, caption string) error {
	return r.record(sentMessage{ChatID: chatID, Kind: "photo", Text: caption})
}

func (r *recordingMessenger) fail(chatID int64) {
	r.mu.Lock()
	r.failFor[chatID] = true
	r.mu.Unlock()
}

func (r *recordingMessenger) messages(chatID int64) []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentMessage
	for _, m := range r.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (r *recordingMessenger) last(chatID int64) sentMessage {
	msgs := r.messages(chatID)
	if len(msgs) == 0 {
		return sentMessage{}
	}
	return msgs[len(msgs)-1]
}

func (r *recordingMessenger) documents(chatID int64) []sentMessage {
	var out []sentMessage
	for _, m := range r.messages(chatID) {
		if m.Kind == "document" {
			out = append(out, m)
		}
	}
	return out
}

func (r *recordingMessenger) reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}
