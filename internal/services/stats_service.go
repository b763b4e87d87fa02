package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/pointmart/backend/internal/database"
	"github.com/pointmart/backend/internal/logger"
	"github.com/pointmart/backend/internal/models"
	"github.com/shopspring/decimal"
)

// StatsService aggregates the admin dashboard numbers and tracks first
// contact per user.
type StatsService struct {
	db  *database.DB
	log *logger.Logger
	now func() time.Time
}

func NewStatsService(db *database.DB, log *logger.Logger) *StatsService {
	return &StatsService{
		db:  db,
		log: log.With("service", "StatsService"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// RecordJoin notes that userID has talked to the bot and reports whether
// this is the first time.
func (s *StatsService) RecordJoin(ctx context.Context, userID int64, username string) (bool, error) {
	result, err := s.db.ExecContext(ctx, s.db.Q(`
		INSERT INTO user_joins (user_id, username, joined_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`), userID, username, s.now())
	if err != nil {
		return false, models.Storage("record join", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, models.Storage("record join", err)
	}
	return n == 1, nil
}

func (s *StatsService) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.CatalogSize, `SELECT COUNT(*) FROM catalog_entries`, nil},
		{&stats.UserCount, `SELECT COUNT(*) FROM ledger_accounts`, nil},
		{&stats.SearchCount, `SELECT COUNT(*) FROM search_history`, nil},
		{&stats.PurchaseCount, `SELECT COUNT(*) FROM transactions WHERE kind = ?`, []any{string(models.TxKindPurchase)}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, s.db.Q(c.query), c.args...).Scan(c.dst); err != nil {
			return models.Stats{}, models.Storage("stats", err)
		}
	}

	spent, err := s.pointsSpent(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	stats.PointsSpent = spent

	var last sql.NullTime
	err = s.db.QueryRowContext(ctx, `SELECT ingested_at FROM catalog_entries ORDER BY ingested_at DESC LIMIT 1`).Scan(&last)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return models.Stats{}, models.Storage("last ingestion", err)
	case last.Valid:
		t := last.Time.UTC()
		stats.LastIngestedAt = &t
	}
	return stats, nil
}

// pointsSpent sums total_spent in Go; SQLite keeps amounts as text.
func (s *StatsService) pointsSpent(ctx context.Context) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT total_spent FROM ledger_accounts`)
	if err != nil {
		return decimal.Zero, models.Storage("points spent", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var spent decimal.Decimal
		if err := rows.Scan(&spent); err != nil {
			return decimal.Zero, models.Storage("scan points spent", err)
		}
		total = total.Add(spent)
	}
	return total, models.Storage("points spent", rows.Err())
}
