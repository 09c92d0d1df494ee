package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectWithoutAddrReturnsNop(t *testing.T) {
	c, closeFn, err := Connect(context.Background(), Options{})
	require.NoError(t, err)
	require.NoError(t, closeFn())

	_, isNop := c.(Nop)
	assert.True(t, isNop)
}

func TestNopNeverHits(t *testing.T) {
	ctx := context.Background()
	c := Nop{}

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConnectFailsWhenRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err := Connect(ctx, Options{Addr: "127.0.0.1:1", TTL: time.Minute})
	assert.Error(t, err)
}
