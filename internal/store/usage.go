package store

import (
	"errors"
	"fmt"
	"time"
)

type Tier string

const (
	TierFree Tier = "FREE"
	TierPro  Tier = "PRO"
)

// UnlimitedAnalyses is reported as the limit for PRO users.
const UnlimitedAnalyses = 999999

var ErrQuotaExceeded = errors.New("monthly analysis quota exceeded")

type User struct {
	ID                   int64
	Email                string
	Username             string
	HashedPassword       string
	Tier                 Tier
	SubscriptionStatus   string
	StripeCustomerID     *string
	StripeSubscriptionID *string
	AnalysesThisMonth    int
	LastResetDate        time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type QuotaError struct {
	Limit int
	Used  int
}

func (e QuotaError) Error() string {
	return fmt.Sprintf("%s: used %d of %d", ErrQuotaExceeded, e.Used, e.Limit)
}

func (e QuotaError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

type SubscriptionStatus struct {
	Tier              Tier   `json:"tier"`
	Status            string `json:"status"`
	AnalysesThisMonth int    `json:"analyses_this_month"`
	AnalysesLimit     int    `json:"analyses_limit"`
	CanGeneratePDF    bool   `json:"can_generate_pdf"`
	CanUseRAG         bool   `json:"can_use_rag"`
}

// ApplyUsage resets the counter when a new calendar month has started,
// rejects FREE users at or over limit and otherwise counts one analysis.
func ApplyUsage(u User, now time.Time, limit int) (User, error) {
	u = rollover(u, now)
	if u.Tier != TierPro && u.AnalysesThisMonth >= limit {
		return u, QuotaError{Limit: limit, Used: u.AnalysesThisMonth}
	}
	u.AnalysesThisMonth++
	u.UpdatedAt = now
	return u, nil
}

// rollover only moves forward: a last reset in a later month than now is
// left alone.
func rollover(u User, now time.Time) User {
	if monthIndex(u.LastResetDate) < monthIndex(now) {
		u.AnalysesThisMonth = 0
		u.LastResetDate = now
	}
	return u
}

func monthIndex(t time.Time) int {
	t = t.UTC()
	return t.Year()*12 + int(t.Month())
}

func StatusOf(u User, freeLimit int) SubscriptionStatus {
	pro := u.Tier == TierPro
	limit := freeLimit
	if pro {
		limit = UnlimitedAnalyses
	}
	return SubscriptionStatus{
		Tier:              u.Tier,
		Status:            u.SubscriptionStatus,
		AnalysesThisMonth: u.AnalysesThisMonth,
		AnalysesLimit:     limit,
		CanGeneratePDF:    pro,
		CanUseRAG:         pro,
	}
}
