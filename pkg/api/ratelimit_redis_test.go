package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel-p-green/skillvault/pkg/api"
)

func TestNewRedisRateLimiter_InvalidURLFails(t *testing.T) {
	_, err := api.NewRedisRateLimiter("not-a-redis-url", 5, 10)
	assert.Error(t, err)
}

func TestNewRedisRateLimiter_ValidURLBuildsClient(t *testing.T) {
	rl, err := api.NewRedisRateLimiter("redis://localhost:6379/0", 5, 10)
	require.NoError(t, err)
	defer rl.Close()
}
