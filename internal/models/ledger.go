package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxKind classifies a ledger transaction.
type TxKind string

const (
	TxKindPurchase    TxKind = "purchase"
	TxKindReferral    TxKind = "referral"
	TxKindAdminAdjust TxKind = "admin_adjust"
	TxKindRefund      TxKind = "refund"
)

func (k TxKind) Valid() bool {
	switch k {
	case TxKindPurchase, TxKindReferral, TxKindAdminAdjust, TxKindRefund:
		return true
	}
	return false
}

// Account is a user's point balance.
type Account struct {
	UserID      int64           `json:"user_id" db:"user_id"`
	Balance     decimal.Decimal `json:"balance" db:"balance"`
	TotalSpent  decimal.Decimal `json:"total_spent" db:"total_spent"`
	Version     int64           `json:"version" db:"version"` // for optimistic locking
	LastUpdated time.Time       `json:"last_updated" db:"last_updated"`
}

// Transaction is an append-only ledger record. Amount is signed.
type Transaction struct {
	ID          int64           `json:"id" db:"id"`
	UserID      int64           `json:"user_id" db:"user_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Kind        TxKind          `json:"kind" db:"kind"`
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Receipt is returned by a confirmed purchase.
type Receipt struct {
	AssetID    string          `json:"asset_id"`
	Cost       decimal.Decimal `json:"cost"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// Stats is the aggregate admin view.
type Stats struct {
	CatalogSize    int64           `json:"catalog_size"`
	UserCount      int64           `json:"user_count"`
	SearchCount    int64           `json:"search_count"`
	PurchaseCount  int64           `json:"purchase_count"`
	PointsSpent    decimal.Decimal `json:"points_spent"`
	LastIngestedAt *time.Time      `json:"last_ingested_at,omitempty"`
}
