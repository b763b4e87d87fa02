package models

import "time"

// CatalogEntry maps a public asset id to the transport handle that delivers it.
type CatalogEntry struct {
	ID            int64     `json:"id" db:"id"`
	AssetID       string    `json:"asset_id" db:"asset_id" yaml:"asset_id" validate:"required,max=128"`
	ContentHandle string    `json:"content_handle" db:"content_handle" yaml:"content_handle" validate:"required,max=512"`
	DisplayName   string    `json:"display_name" db:"display_name" yaml:"display_name" validate:"max=512"`
	FileSize      int64     `json:"file_size" db:"file_size" yaml:"file_size" validate:"gte=0"`
	MediaType     string    `json:"media_type" db:"media_type" yaml:"media_type"`
	MessageID     int64     `json:"message_id" db:"message_id" yaml:"message_id"`
	IngestedAt    time.Time `json:"ingested_at" db:"ingested_at" yaml:"-"`
}

// IngestOutcome is the result of a streaming ingestion.
type IngestOutcome string

const (
	IngestInserted IngestOutcome = "inserted"
	IngestSkipped  IngestOutcome = "skipped"
)

// SearchRecord is a write-only analytics row.
type SearchRecord struct {
	UserID    int64     `json:"user_id"`
	Query     string    `json:"query"`
	AssetID   string    `json:"asset_id"`
	Found     bool      `json:"found"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingPurchase binds one user to one asset until confirmation.
type PendingPurchase struct {
	UserID        int64     `json:"user_id"`
	ReservationID string    `json:"reservation_id"`
	AssetID       string    `json:"asset_id"`
	ContentHandle string    `json:"content_handle"`
	DisplayName   string    `json:"display_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// CollectedFile is an upload buffered between /index and /indexdone.
type CollectedFile struct {
	AssetID   string `json:"asset_id"`
	Handle    string `json:"handle"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MediaType string `json:"media_type"`
}
