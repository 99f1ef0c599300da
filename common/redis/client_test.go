package redis

import (
	"context"
	"testing"
	"time"

	"societysync/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(&config.RedisConfig{Addr: mr.Addr(), PoolSize: 4, Timeout: time.Second})
	defer Close(client)

	assert.Equal(t, 4, client.Options().PoolSize)
	assert.Equal(t, time.Second, client.Options().ReadTimeout)
	require.NoError(t, Ping(context.Background(), client))

	mr.Close()
	assert.Error(t, Ping(context.Background(), client))
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
