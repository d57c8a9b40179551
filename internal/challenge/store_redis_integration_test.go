//go:build integration

package challenge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idverse/pkg/platform/sentinel"
	"idverse/pkg/testutil/containers"
)

func TestRedisStore_Lifecycle(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := NewRedisStore(rc.Client)
	ctx := context.Background()

	now := time.Now().UTC()
	ch := Challenge{
		Nonce:     "chal-redis-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Minute),
	}
	require.NoError(t, store.Save(ctx, ch))

	require.NoError(t, store.Consume(ctx, ch.Nonce, now))
	assert.ErrorIs(t, store.Consume(ctx, ch.Nonce, now), sentinel.ErrAlreadyUsed)
	assert.ErrorIs(t, store.Consume(ctx, "chal-missing", now), sentinel.ErrNotFound)
}

func TestRedisStore_Expired(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := NewRedisStore(rc.Client)
	ctx := context.Background()

	now := time.Now().UTC()
	ch := Challenge{
		Nonce:     "chal-redis-expired",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Minute),
	}
	require.NoError(t, store.Save(ctx, ch))

	late := now.Add(2 * time.Minute)
	assert.ErrorIs(t, store.Consume(ctx, ch.Nonce, late), sentinel.ErrExpired)
}

func TestRedisStore_ConcurrentOneWinner(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := NewRedisStore(rc.Client)
	ctx := context.Background()

	now := time.Now().UTC()
	ch := Challenge{
		Nonce:     "chal-redis-race",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Minute),
	}
	require.NoError(t, store.Save(ctx, ch))

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Consume(ctx, ch.Nonce, now)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
		}
	}
	assert.Equal(t, 1, winners)
}
