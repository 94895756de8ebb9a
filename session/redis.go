package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	putLua            = redis.NewScript(PutScript)
	compareAndSwapLua = redis.NewScript(CompareAndSwapScript)
	deleteLua         = redis.NewScript(DeleteScript)
)

// RedisStore is a Redis-backed [Store]. Each record lives in a hash that
// expires with the session; a per-user set indexes the user's handles.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a [RedisStore] on the given client. prefix sets the
// key namespace. A nil now uses time.Now.
func NewRedisStore(client redis.UniversalClient, prefix string, now func() time.Time) *RedisStore {
	if prefix == "" {
		prefix = "gs"
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{redis: client, prefix: prefix, now: now}
}

func (s *RedisStore) key(handle string) string {
	return s.prefix + ":s:" + handle
}

func (s *RedisStore) userKeyPrefix() string {
	return s.prefix + ":u:"
}

func (s *RedisStore) userKey(tenantID, userID string) string {
	return s.userKeyPrefix() + NormalizeTenantID(tenantID) + ":" + userID
}

func (s *RedisStore) nowMS() int64 {
	return s.now().UnixMilli()
}

// Put writes r and adds its handle to the user index.
//
//	Performance: 1 Redis round trip (EVALSHA).
func (s *RedisStore) Put(ctx context.Context, r *Record) error {
	if r == nil || r.Handle == "" {
		return errors.New("put: record requires a handle")
	}
	ttl := r.TTLMillis(s.nowMS())
	if ttl <= 0 {
		return errors.New("put: record already expired")
	}
	blob, err := Encode(r)
	if err != nil {
		return err
	}

	err = putLua.Run(ctx, s.redis,
		[]string{s.key(r.Handle), s.userKey(r.TenantID, r.UserID)},
		strconv.FormatUint(r.Revision, 10), r.UserID, NormalizeTenantID(r.TenantID), blob, ttl, r.Handle,
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get returns the live record for handle.
//
//	Performance: 1 Redis HGET.
func (s *RedisStore) Get(ctx context.Context, handle string) (*Record, error) {
	data, err := s.redis.HGet(ctx, s.key(handle), "blob").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	r, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if r.Expired(s.nowMS()) {
		return nil, ErrNotFound
	}
	return r, nil
}

// CompareAndSwap stores next when the stored revision still equals
// expected.Revision. On success next.Revision is expected.Revision+1.
func (s *RedisStore) CompareAndSwap(ctx context.Context, expected, next *Record) (bool, error) {
	if expected == nil || next == nil || expected.Handle != next.Handle {
		return false, errors.New("compare-and-swap: records must share a handle")
	}
	nowMS := s.nowMS()
	if expected.Expired(nowMS) {
		return false, nil
	}

	candidate := next.Clone()
	candidate.Revision = expected.Revision + 1
	blob, err := Encode(candidate)
	if err != nil {
		return false, err
	}

	status, err := compareAndSwapLua.Run(ctx, s.redis,
		[]string{s.key(expected.Handle)},
		strconv.FormatUint(expected.Revision, 10),
		strconv.FormatUint(candidate.Revision, 10),
		blob,
		candidate.TTLMillis(nowMS),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status != 1 {
		return false, nil
	}
	next.Revision = candidate.Revision
	return true, nil
}

// Delete removes the record for handle. It is idempotent: the second call
// reports false.
func (s *RedisStore) Delete(ctx context.Context, handle string) (bool, error) {
	n, err := deleteLua.Run(ctx, s.redis, []string{s.key(handle)}, s.userKeyPrefix(), handle).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n == 1, nil
}

// ListByUser returns the user's live handles in sorted order. Index entries
// whose record has expired are pruned on the way.
//
//	Performance: SMEMBERS + one pipelined EXISTS batch (+ SREM when stale).
func (s *RedisStore) ListByUser(ctx context.Context, tenantID, userID string) ([]string, error) {
	userKey := s.userKey(tenantID, userID)

	handles, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(handles) == 0 {
		return []string{}, nil
	}

	pipe := s.redis.Pipeline()
	existsCmds := make([]*redis.IntCmd, len(handles))
	for i, handle := range handles {
		existsCmds[i] = pipe.Exists(ctx, s.key(handle))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	live := make([]string, 0, len(handles))
	var stale []any
	for i, cmd := range existsCmds {
		if cmd.Val() == 1 {
			live = append(live, handles[i])
			continue
		}
		stale = append(stale, handles[i])
	}
	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	sort.Strings(live)
	return live, nil
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
