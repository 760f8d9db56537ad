package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Пакет unit-тестов для internal/cache.
//
// Покрытие (общие сценарии гоняются на обеих реализациях):
//   - Rotate без Remember -> false;
//   - Remember + Rotate с верным expected -> true, повтор старого jti -> false;
//   - указатели разных аккаунтов независимы;
//   - конкурентные Rotate с одним expected: выигрывает ровно один;
//   - истечение TTL;
//   - пустые идентификаторы отклоняются.

type fixture struct {
	name    string
	cache   RotationCache
	advance func(time.Duration)
}

func fixtures(t *testing.T) []fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rc, err := NewRedisCache(context.Background(), "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	var (
		mu  sync.Mutex
		now = time.Unix(1_700_000_000, 0)
	)
	mc := NewMemoryCache(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})

	return []fixture{
		{name: "redis", cache: rc, advance: mr.FastForward},
		{name: "memory", cache: mc, advance: func(d time.Duration) {
			mu.Lock()
			now = now.Add(d)
			mu.Unlock()
		}},
	}
}

func TestRotate_WithoutPointer_False(t *testing.T) {
	for _, f := range fixtures(t) {
		ok, err := f.cache.Rotate(context.Background(), uuid.New(), "a", "b", time.Hour)
		require.NoError(t, err, f.name)
		require.False(t, ok, f.name)
	}
}

func TestRotate_ReplayOfPredecessor_False(t *testing.T) {
	ctx := context.Background()

	for _, f := range fixtures(t) {
		id := uuid.New()
		require.NoError(t, f.cache.Remember(ctx, id, "jti-1", time.Hour), f.name)

		ok, err := f.cache.Rotate(ctx, id, "jti-1", "jti-2", time.Hour)
		require.NoError(t, err, f.name)
		require.True(t, ok, f.name)

		// Повтор ротированного токена.
		ok, err = f.cache.Rotate(ctx, id, "jti-1", "jti-3", time.Hour)
		require.NoError(t, err, f.name)
		require.False(t, ok, f.name)

		// Актуальный продолжает работать.
		ok, err = f.cache.Rotate(ctx, id, "jti-2", "jti-3", time.Hour)
		require.NoError(t, err, f.name)
		require.True(t, ok, f.name)
	}
}

func TestRemember_OverridesAndIsPerAccount(t *testing.T) {
	ctx := context.Background()

	for _, f := range fixtures(t) {
		a, b := uuid.New(), uuid.New()
		require.NoError(t, f.cache.Remember(ctx, a, "a-1", time.Hour))
		require.NoError(t, f.cache.Remember(ctx, b, "b-1", time.Hour))

		// Новый вход перезаписывает указатель.
		require.NoError(t, f.cache.Remember(ctx, a, "a-2", time.Hour))

		ok, err := f.cache.Rotate(ctx, a, "a-1", "x", time.Hour)
		require.NoError(t, err)
		require.False(t, ok, f.name)

		ok, err = f.cache.Rotate(ctx, b, "b-1", "b-2", time.Hour)
		require.NoError(t, err)
		require.True(t, ok, f.name)
	}
}

func TestRotate_Expired_False(t *testing.T) {
	ctx := context.Background()

	for _, f := range fixtures(t) {
		id := uuid.New()
		require.NoError(t, f.cache.Remember(ctx, id, "jti-1", time.Minute))

		f.advance(2 * time.Minute)

		ok, err := f.cache.Rotate(ctx, id, "jti-1", "jti-2", time.Minute)
		require.NoError(t, err, f.name)
		require.False(t, ok, f.name)
	}
}

func TestRotate_Concurrent_SingleWinner(t *testing.T) {
	ctx := context.Background()

	for _, f := range fixtures(t) {
		id := uuid.New()
		require.NoError(t, f.cache.Remember(ctx, id, "seed", time.Hour))

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := f.cache.Rotate(ctx, id, "seed", uuid.NewString(), time.Hour)
				if err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		require.EqualValues(t, 1, wins.Load(), f.name)
	}
}

func TestEmptyIDs_Rejected(t *testing.T) {
	ctx := context.Background()

	for _, f := range fixtures(t) {
		require.ErrorIs(t, f.cache.Remember(ctx, uuid.New(), "", time.Hour), ErrEmptyID, f.name)

		_, err := f.cache.Rotate(ctx, uuid.New(), "", "b", time.Hour)
		require.ErrorIs(t, err, ErrEmptyID, f.name)

		_, err = f.cache.Rotate(ctx, uuid.New(), "a", "", time.Hour)
		require.ErrorIs(t, err, ErrEmptyID, f.name)
	}
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not-a-url", "")
	require.Error(t, err)
}
