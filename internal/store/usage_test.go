package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func freeUser(used int, lastReset time.Time) User {
	return User{Username: "alice", Tier: TierFree, SubscriptionStatus: "inactive", AnalysesThisMonth: used, LastResetDate: lastReset}
}

func TestApplyUsageCounts(t *testing.T) {
	u, err := ApplyUsage(freeUser(2, march.AddDate(0, 0, -3)), march, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, u.AnalysesThisMonth)
	assert.Equal(t, march, u.UpdatedAt)
}

func TestApplyUsageRejectsAtLimit(t *testing.T) {
	_, err := ApplyUsage(freeUser(5, march.AddDate(0, 0, -3)), march, 5)
	require.ErrorIs(t, err, ErrQuotaExceeded)

	var qe QuotaError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, QuotaError{Limit: 5, Used: 5}, qe)
	assert.Contains(t, err.Error(), "used 5 of 5")
}

func TestApplyUsageResetsOnNewMonth(t *testing.T) {
	u, err := ApplyUsage(freeUser(5, time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC)), march, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, u.AnalysesThisMonth)
	assert.Equal(t, march, u.LastResetDate)
}

func TestApplyUsageResetsAcrossYears(t *testing.T) {
	u, err := ApplyUsage(freeUser(5, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)), march, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, u.AnalysesThisMonth)
}

func TestApplyUsageIgnoresFutureReset(t *testing.T) {
	future := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	_, err := ApplyUsage(freeUser(5, future), march, 5)
	require.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestApplyUsageProIsUnlimited(t *testing.T) {
	u := freeUser(1000, march)
	u.Tier = TierPro

	got, err := ApplyUsage(u, march, 5)
	require.NoError(t, err)
	assert.Equal(t, 1001, got.AnalysesThisMonth)
}

func TestStatusOf(t *testing.T) {
	free := StatusOf(freeUser(3, march), 5)
	assert.Equal(t, SubscriptionStatus{Tier: TierFree, Status: "inactive", AnalysesThisMonth: 3, AnalysesLimit: 5}, free)

	u := freeUser(40, march)
	u.Tier, u.SubscriptionStatus = TierPro, "active"
	pro := StatusOf(u, 5)
	assert.Equal(t, UnlimitedAnalyses, pro.AnalysesLimit)
	assert.True(t, pro.CanGeneratePDF)
	assert.True(t, pro.CanUseRAG)
}

func TestStatusReflectsPendingReset(t *testing.T) {
	u := rollover(freeUser(4, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)), march)
	assert.Equal(t, 0, StatusOf(u, 5).AnalysesThisMonth)
}
