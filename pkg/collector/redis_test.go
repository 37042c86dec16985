package collector

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSeenSet(t *testing.T) {
	url := os.Getenv("FLICKRPICKER_TEST_REDIS_URL")
	if url == "" {
		t.Skip("FLICKRPICKER_TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	client, err := OpenRedis(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	s := NewRedisSeenSet(client, uuid.NewString(), time.Minute)
	defer s.Clear(ctx)

	added, err := s.Add(ctx, "53012345678")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add(ctx, "53012345678")
	require.NoError(t, err)
	assert.False(t, added)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ttl, err := client.TTL(ctx, s.Key()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	// a different run does not see the ids of this one
	other := NewRedisSeenSet(client, uuid.NewString(), time.Minute)
	defer other.Clear(ctx)
	added, err = other.Add(ctx, "53012345678")
	require.NoError(t, err)
	assert.True(t, added)
}

func TestOpenRedisInvalidURL(t *testing.T) {
	_, err := OpenRedis(context.Background(), "not a url")
	assert.Error(t, err)
}
