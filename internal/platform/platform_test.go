package platform

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Skufu/repurpose/internal/config"
)

func TestBuildWithoutExternalServices(t *testing.T) {
	cfg := &config.Config{
		ReportsDir:     t.TempDir(),
		HTTPTimeout:    time.Second,
		WebhookTimeout: time.Second,
		RetryAttempts:  1,
		FreeTierLimit:  5,
	}

	svc, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer svc.Close()

	assert.NotNil(t, svc.Strategic)
	assert.NotNil(t, svc.Assessor)
	assert.NotNil(t, svc.Reports)
	assert.Nil(t, svc.Store)
}

func TestBuildFailsOnUnreachableRedis(t *testing.T) {
	cfg := &config.Config{ReportsDir: t.TempDir(), RetryAttempts: 1, RedisAddr: "127.0.0.1:1"}

	_, err := Build(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestCloseRunsInReverseOrder(t *testing.T) {
	var order []int
	svc := &Services{closers: []func(){
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
	}}
	svc.Close()
	assert.Equal(t, []int{2, 1}, order)
}
