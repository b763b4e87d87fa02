package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReferralRecord struct {
	ReferrerID int64           `json:"referrer_id" db:"referrer_id"`
	ReferredID int64           `json:"referred_id" db:"referred_id"`
	Rewarded   bool            `json:"rewarded" db:"rewarded"`
	Reward     decimal.Decimal `json:"reward" db:"reward"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// RegisterOutcome is the result of a referral registration.
type RegisterOutcome string

const (
	ReferralCredited        RegisterOutcome = "credited"
	ReferralAlreadyReferred RegisterOutcome = "already_referred"
	ReferralSelfReferral    RegisterOutcome = "self_referral"
)

// ReferralStats summarises what a referrer has earned.
type ReferralStats struct {
	Count  int64           `json:"count"`
	Earned decimal.Decimal `json:"earned"`
}

// BroadcastResult is the summary returned to the initiating admin.
type BroadcastResult struct {
	JobID      string `json:"job_id"`
	Recipients int    `json:"recipients"`
	Success    int    `json:"success"`
	Failure    int    `json:"failure"`
}
