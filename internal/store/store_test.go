package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to DATABASE_URL and creates a fresh FREE user. The
// test is skipped when no database is configured.
func newTestStore(t *testing.T, limit int) (*Store, string) {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := Connect(ctx, url)
	require.NoError(t, err)
	s := New(pool, limit)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate(ctx))

	name := "store-" + uuid.NewString()
	u, err := s.CreateUser(ctx, name+"@example.com", name, "hashed")
	require.NoError(t, err)
	require.Equal(t, TierFree, u.Tier)
	require.Zero(t, u.AnalysesThisMonth)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE username = $1`, name)
	})
	return s, name
}

func TestConsumeAnalysisCountsAndRejects(t *testing.T) {
	s, name := newTestStore(t, 2)
	ctx := context.Background()
	now := time.Now().UTC()
	s.now = func() time.Time { return now }

	for want := 1; want <= 2; want++ {
		u, err := s.ConsumeAnalysis(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, want, u.AnalysesThisMonth)
	}

	_, err := s.ConsumeAnalysis(ctx, name)
	require.ErrorIs(t, err, ErrQuotaExceeded)

	st, err := s.Status(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 2, st.AnalysesThisMonth)
	assert.Equal(t, 2, st.AnalysesLimit)
	assert.Equal(t, TierFree, st.Tier)
}

func TestConsumeAnalysisRollsOverMonth(t *testing.T) {
	s, name := newTestStore(t, 2)
	ctx := context.Background()
	now := time.Now().UTC()
	s.now = func() time.Time { return now }

	_, err := s.pool.Exec(ctx,
		`UPDATE users SET analyses_this_month = 2, last_reset_date = $1 WHERE username = $2`,
		time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0), name)
	require.NoError(t, err)

	st, err := s.Status(ctx, name)
	require.NoError(t, err)
	assert.Zero(t, st.AnalysesThisMonth)

	u, err := s.ConsumeAnalysis(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 1, u.AnalysesThisMonth)
	assert.Equal(t, now.Year(), u.LastResetDate.Year())
	assert.Equal(t, now.Month(), u.LastResetDate.Month())
}

func TestUnknownUser(t *testing.T) {
	s, _ := newTestStore(t, 2)
	ctx := context.Background()

	_, err := s.ConsumeAnalysis(ctx, "missing-"+uuid.NewString())
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Status(ctx, "missing-"+uuid.NewString())
	require.ErrorIs(t, err, ErrNotFound)
}
