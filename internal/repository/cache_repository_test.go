package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "obe:", nil)
	ctx := context.Background()

	var dest map[string]string
	assert.True(t, errors.Is(repo.Get(ctx, "outcome:CO1", &dest), appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(ctx, "outcome:CO1", map[string]string{"code": "CO1"}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "outcome:CO1"))
	assert.NoError(t, repo.DeleteByPattern(ctx, "report:*"))
	assert.NoError(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositoryPrefixesKeys(t *testing.T) {
	repo := NewCacheRepository(nil, "obe:", nil)
	assert.Equal(t, "obe:report:CS101:cohort", repo.key("report:CS101:cohort"))
}

func TestCacheRepositoryUnreachableIsNotAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	repo := NewCacheRepository(client, "obe:", nil)
	defer repo.Close() //nolint:errcheck

	var dest map[string]string
	err := repo.Get(context.Background(), "outcome:CO1", &dest)
	require.Error(t, err)
	assert.False(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.Error(t, repo.Ping(context.Background()))
}
