// Package sessiontest holds a behavioural test suite every session.Store
// implementation runs against its backend.
package sessiontest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/session"
)

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Factory builds a fresh, empty store reading time from now.
type Factory func(t *testing.T, now func() time.Time) session.Store

// NewRecord returns a record for user in tenant t1 that lives for an hour.
func NewRecord(handle, user string, now time.Time) *session.Record {
	return &session.Record{
		Handle:             handle,
		UserID:             user,
		TenantID:           "t1",
		Revision:           1,
		AccessTokenPayload: map[string]any{"role": "member"},
		SessionData:        map[string]any{"theme": "dark"},
		CreatedAt:          now.UnixMilli(),
		ExpiresAt:          now.Add(time.Hour).UnixMilli(),
	}
}

// Run exercises the store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("PutGet", func(t *testing.T) {
		clock := NewClock(time.UnixMilli(1_700_000_000_000))
		s := newStore(t, clock.Now)
		ctx := context.Background()

		rec := NewRecord("h1", "alice", clock.Now())
		require.NoError(t, s.Put(ctx, rec))

		got, err := s.Get(ctx, "h1")
		require.NoError(t, err)
		require.Equal(t, "alice", got.UserID)
		require.Equal(t, "t1", got.TenantID)
		require.Equal(t, uint64(1), got.Revision)
		require.Equal(t, "member", got.AccessTokenPayload["role"])
		require.Equal(t, "dark", got.SessionData["theme"])
	})

	t.Run("GetMissing", func(t *testing.T) {
		clock := NewClock(time.UnixMilli(1_700_000_000_000))
		s := newStore(t, clock.Now)

		_, err := s.Get(context.Background(), "nope")
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("ExpiredAtExactInstant", func(t *testing.T) {
		clock := NewClock(time.UnixMilli(1_700_000_000_000))
		s := newStore(t, clock.Now)
		ctx := context.Background()

		rec := NewRecord("h1", "alice", clock.Now())
		require.NoError(t, s.Put(ctx, rec))

		clock.Advance(time.Hour - time.Millisecond)
		_, err := s.Get(ctx, "h1")
		require.NoError(t, err)

		clock.Advance(time.Millisecond)
		_, err = s.Get(ctx, "h1")
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("CompareAndSwap", func(t *testing.T) {
		clock := NewClock(time.UnixMilli(1_700_000_000_000))
		s := newStore(t, clock.Now)
		ctx := context.Background()

		rec := NewRecord("h1", "alice", clock.Now())
		require.NoError(t, s.Put(ctx, rec))

		cur, err := s.Get(ctx, "h1")
		require.NoError(t, err)

		next := cur.Clone()
		next.RotationCounter = 1
		ok, err := s.CompareAndSwap(ctx, cur, next)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, cur.Revision+1, next.Revision)

		stale := cur.Clone()
		stale.RotationCounter = 7
		ok, err = s.CompareAndSwap(ctx, cur, stale)
		require.NoError(t, err)
		require.False(t, ok, "swap against a moved revision must fail")

		got, err := s.Get(ctx, "h1")
		require.NoError(t, err)
		require.Equal(t, uint64(1), got.RotationCounter)
		require.Equal(t, next.Revision, got.Revision)
	})

	t.Run("CompareAndSwapMissing", func(t *testing.T) {
		clock := NewClock(time.UnixMilli(1_700_000_000_000))
		s := newStore(t, clock.Now)

		rec := NewRecord("ghost", "alice", clock.Now())
		ok, err := s.CompareAndSwap(context.Background(), rec, rec.Clone())
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("CompareAndSwapSingleWinner", func(t *testing.T) {
		clock := NewClock(time.UnixMilli(1_700_000_000_000))
		s := newStore(t, clock.Now)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, NewRecord("h1", "alice", clock.Now())))
		cur, err := s.Get(ctx, "h1")
		require.NoError(t, err)

		const workers = 16
		var wins atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				next := cur.Clone()
				next.SessionData = map[string]any{"writer": fmt.Sprint(i)}
				ok, err := s.CompareAndSwap(ctx, cur, next)
				if err != nil {
					errs <- err
					return
				}
				if ok {
					wins.Add(1)
				}
			}(i)
		}
		close(start)
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		require.Equal(t, int32(1), wins.Load())
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		clock := NewClock(time.UnixMilli(1_700_000_000_000))
		s := newStore(t, clock.Now)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, NewRecord("h1", "alice", clock.Now())))

		removed, err := s.Delete(ctx, "h1")
		require.NoError(t, err)
		require.True(t, removed)

		removed, err = s.Delete(ctx, "h1")
		require.NoError(t, err)
		require.False(t, removed)

		handles, err := s.ListByUser(ctx, "t1", "alice")
		require.NoError(t, err)
		require.Empty(t, handles)
	})

	t.Run("ListByUser", func(t *testing.T) {
		clock := NewClock(time.UnixMilli(1_700_000_000_000))
		s := newStore(t, clock.Now)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, NewRecord("h2", "alice", clock.Now())))
		require.NoError(t, s.Put(ctx, NewRecord("h1", "alice", clock.Now())))
		require.NoError(t, s.Put(ctx, NewRecord("h3", "bob", clock.Now())))

		other := NewRecord("h4", "alice", clock.Now())
		other.TenantID = "t2"
		require.NoError(t, s.Put(ctx, other))

		handles, err := s.ListByUser(ctx, "t1", "alice")
		require.NoError(t, err)
		require.Equal(t, []string{"h1", "h2"}, handles)

		handles, err = s.ListByUser(ctx, "t2", "alice")
		require.NoError(t, err)
		require.Equal(t, []string{"h4"}, handles)

		handles, err = s.ListByUser(ctx, "t1", "nobody")
		require.NoError(t, err)
		require.Empty(t, handles)
	})
}
