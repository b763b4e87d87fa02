package models

// EventKind is the shape of an inbound chat event.
type EventKind string

const (
	EventCommand     EventKind = "command"
	EventText        EventKind = "text"
	EventCallback    EventKind = "callback"
	EventFile        EventKind = "file"
	EventChannelPost EventKind = "channel_post"
)

// Event is one inbound update from the chat transport.
type Event struct {
	Kind         EventKind   `json:"kind" validate:"required,oneof=command text callback file channel_post"`
	ChatID       int64       `json:"chatId" validate:"required"`
	UserID       int64       `json:"userId" validate:"required_unless=Kind channel_post"`
	Username     string      `json:"username,omitempty" validate:"max=64"`
	FirstName    string      `json:"firstName,omitempty" validate:"max=128"`
	MessageID    int64       `json:"messageId,omitempty"`
	Command      string      `json:"command,omitempty" validate:"required_if=Kind command,max=64"`
	Args         []string    `json:"args,omitempty" validate:"max=8,dive,max=256"`
	Text         string      `json:"text,omitempty" validate:"max=4096"`
	CallbackData string      `json:"callbackData,omitempty" validate:"required_if=Kind callback,max=64"`
	File         *FileUpload `json:"file,omitempty" validate:"required_if=Kind file,omitempty"`
}

// FileUpload describes an uploaded document.
type FileUpload struct {
	Name      string `json:"name" validate:"max=512"`
	Handle    string `json:"handle" validate:"required,max=512"`
	Size      int64  `json:"size" validate:"gte=0"`
	MediaType string `json:"mediaType,omitempty"`
}

// Button is one inline keyboard button. Exactly one of Data or URL is set.
type Button struct {
	Text string `json:"text"`
	Data string `json:"callbackData,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Keyboard is rows of buttons.
type Keyboard [][]Button
