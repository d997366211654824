package redis_test

import (
	"context"
	"strings"
	"testing"

	"github.com/fwojciec/refdex"
	"github.com/fwojciec/refdex/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	t.Parallel()

	t.Run("is namespaced and fixed length", func(t *testing.T) {
		t.Parallel()

		key := redis.Key("How do I store chat memory?")

		assert.True(t, strings.HasPrefix(key, redis.KeyPrefix))
		assert.Len(t, key, len(redis.KeyPrefix)+16)
	})

	t.Run("ignores surrounding whitespace", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, redis.Key("memory?"), redis.Key("  memory?\n"))
	})

	t.Run("differs between questions", func(t *testing.T) {
		t.Parallel()

		assert.NotEqual(t, redis.Key("memory?"), redis.Key("retriever?"))
	})
}

func TestOpen_RequiresAddress(t *testing.T) {
	t.Parallel()

	_, err := redis.Open(context.Background(), " ", 0)

	require.Error(t, err)
	assert.Equal(t, refdex.EINVALID, refdex.ErrorCode(err))
}
