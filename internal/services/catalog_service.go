package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pointmart/backend/internal/config"
	"github.com/pointmart/backend/internal/database"
	"github.com/pointmart/backend/internal/logger"
	"github.com/pointmart/backend/internal/models"
)

var bareIDPattern = regexp.MustCompile(`(\d{6,})`)

// CatalogService maps asset ids to deliverable content handles.
type CatalogService struct {
	db         *database.DB
	log        *logger.Logger
	urlPattern *regexp.Regexp
	filePrefix string
	validator  *ValidationHelper
	now        func() time.Time
}

func NewCatalogService(db *database.DB, cfg config.CatalogConfig, log *logger.Logger) *CatalogService {
	return &CatalogService{
		db:         db,
		log:        log.With("service", "CatalogService"),
		urlPattern: regexp.MustCompile(regexp.QuoteMeta(cfg.URLHost) + `.*?(\d{6,})`),
		filePrefix: cfg.FilePrefix,
		validator:  NewValidationHelper(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ExtractAssetID finds the asset id in free text: a link on the catalog
// host first, then any run of six or more digits. The first match wins.
func (s *CatalogService) ExtractAssetID(text string) (string, error) {
	if m := s.urlPattern.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}
	if m := bareIDPattern.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("no asset id in %q: %w", truncate(text, 64), models.ErrNotFound)
}

// AssetIDFromFileName reads <prefix><id>.<ext>, falling back to ExtractAssetID.
func (s *CatalogService) AssetIDFromFileName(name string) (string, error) {
	base := strings.TrimSuffix(name, path.Ext(name))
	if s.filePrefix != "" && strings.HasPrefix(base, s.filePrefix) {
		if id := strings.TrimPrefix(base, s.filePrefix); id != "" {
			return id, nil
		}
	}
	return s.ExtractAssetID(name)
}

// HasFilePrefix reports whether name follows the bulk indexing naming scheme.
func (s *CatalogService) HasFilePrefix(name string) bool {
	return s.filePrefix == "" || strings.HasPrefix(name, s.filePrefix)
}

// IngestStreaming inserts entry unless its handle or asset id is already
// present. Re-delivery of the same post is a skip.
func (s *CatalogService) IngestStreaming(ctx context.Context, entry models.CatalogEntry) (models.IngestOutcome, error) {
	if err := s.validator.ValidateStruct(&entry); err != nil {
		return "", models.NewValidationError("catalog entry", err.Error())
	}
	if entry.IngestedAt.IsZero() {
		entry.IngestedAt = s.now()
	}

	result, err := s.db.ExecContext(ctx, s.db.Q(`
		INSERT INTO catalog_entries (asset_id, content_handle, display_name, file_size, media_type, message_id, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`),
		entry.AssetID, entry.ContentHandle, entry.DisplayName, entry.FileSize, entry.MediaType, entry.MessageID, entry.IngestedAt)
	if err != nil {
		return "", models.Storage("ingest catalog entry", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return "", models.Storage("ingest catalog entry", err)
	}
	if n == 0 {
		s.log.Debug("duplicate catalog entry skipped", "asset_id", entry.AssetID)
		return models.IngestSkipped, nil
	}
	s.log.Info("catalog entry ingested", "asset_id", entry.AssetID, "name", entry.DisplayName)
	return models.IngestInserted, nil
}

// IngestBatch upserts every entry by asset id in one transaction. A later
// entry replaces an earlier one for the same id, and a handle moves to the
// entry that claims it last.
func (s *CatalogService) IngestBatch(ctx context.Context, entries []models.CatalogEntry) (int, error) {
	for i := range entries {
		if err := s.validator.ValidateStruct(&entries[i]); err != nil {
			return 0, models.NewValidationError(fmt.Sprintf("entries[%d]", i), err.Error())
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, models.Storage("begin batch", err)
	}
	defer tx.Rollback()

	now := s.now()
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, s.db.Q(`
			DELETE FROM catalog_entries WHERE content_handle = ? AND asset_id <> ?`),
			e.ContentHandle, e.AssetID); err != nil {
			return 0, models.Storage("release handle", err)
		}

		if _, err := tx.ExecContext(ctx, s.db.Q(`
			INSERT INTO catalog_entries (asset_id, content_handle, display_name, file_size, media_type, message_id, ingested_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (asset_id) DO UPDATE SET
				content_handle = excluded.content_handle,
				display_name = excluded.display_name,
				file_size = excluded.file_size,
				media_type = excluded.media_type,
				message_id = excluded.message_id,
				ingested_at = excluded.ingested_at`),
			e.AssetID, e.ContentHandle, e.DisplayName, e.FileSize, e.MediaType, e.MessageID, now); err != nil {
			return 0, models.Storage("upsert catalog entry", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, models.Storage("commit batch", err)
	}
	s.log.Info("batch indexed", "count", len(entries))
	return len(entries), nil
}

// Lookup returns the live entry for assetID.
func (s *CatalogService) Lookup(ctx context.Context, assetID string) (models.CatalogEntry, error) {
	var e models.CatalogEntry
	err := s.db.QueryRowContext(ctx, s.db.Q(`
		SELECT id, asset_id, content_handle, display_name, file_size, media_type, message_id, ingested_at
		FROM catalog_entries
		WHERE asset_id = ?`), assetID).
		Scan(&e.ID, &e.AssetID, &e.ContentHandle, &e.DisplayName, &e.FileSize, &e.MediaType, &e.MessageID, &e.IngestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CatalogEntry{}, fmt.Errorf("asset %s: %w", assetID, models.ErrNotFound)
	}
	if err != nil {
		return models.CatalogEntry{}, models.Storage("lookup asset", err)
	}
	return e, nil
}

// RecordSearch appends to the search history.
func (s *CatalogService) RecordSearch(ctx context.Context, rec models.SearchRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.db.Q(`
		INSERT INTO search_history (user_id, query, asset_id, found, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		rec.UserID, truncate(rec.Query, 512), rec.AssetID, rec.Found, rec.CreatedAt)
	return models.Storage("record search", err)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
