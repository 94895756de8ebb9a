// Package valkey stores sessions in Valkey through valkey-go, using the same
// key layout and Lua scripts as the Redis store.
package valkey

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/samber/oops"
	"github.com/valkey-io/valkey-go"

	"github.com/MrEthical07/goSession/session"
)

var (
	putLua            = valkey.NewLuaScript(session.PutScript)
	compareAndSwapLua = valkey.NewLuaScript(session.CompareAndSwapScript)
	deleteLua         = valkey.NewLuaScript(session.DeleteScript)
)

// Store is a Valkey-backed session.Store.
type Store struct {
	client valkey.Client
	prefix string
	now    func() time.Time
}

var _ session.Store = (*Store)(nil)

// NewStore returns a Store on client. prefix sets the key namespace and a
// nil now uses time.Now.
func NewStore(client valkey.Client, prefix string, now func() time.Time) *Store {
	if prefix == "" {
		prefix = "gs"
	}
	if now == nil {
		now = time.Now
	}
	return &Store{client: client, prefix: prefix, now: now}
}

func (s *Store) key(handle string) string {
	return s.prefix + ":s:" + handle
}

func (s *Store) userKeyPrefix() string {
	return s.prefix + ":u:"
}

func (s *Store) userKey(tenantID, userID string) string {
	return s.userKeyPrefix() + session.NormalizeTenantID(tenantID) + ":" + userID
}

func unavailable(err error) error {
	return oops.In("session-valkey").Wrap(errors.Join(session.ErrUnavailable, err))
}

func (s *Store) Put(ctx context.Context, r *session.Record) error {
	if r == nil || r.Handle == "" {
		return errors.New("put: record requires a handle")
	}
	ttl := r.TTLMillis(s.now().UnixMilli())
	if ttl <= 0 {
		return errors.New("put: record already expired")
	}
	blob, err := session.Encode(r)
	if err != nil {
		return err
	}

	err = putLua.Exec(ctx, s.client,
		[]string{s.key(r.Handle), s.userKey(r.TenantID, r.UserID)},
		[]string{
			strconv.FormatUint(r.Revision, 10),
			r.UserID,
			session.NormalizeTenantID(r.TenantID),
			string(blob),
			strconv.FormatInt(ttl, 10),
			r.Handle,
		},
	).Error()
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, handle string) (*session.Record, error) {
	data, err := s.client.Do(ctx, s.client.B().Hget().Key(s.key(handle)).Field("blob").Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, session.ErrNotFound
		}
		return nil, unavailable(err)
	}

	r, err := session.Decode(data)
	if err != nil {
		return nil, err
	}
	if r.Expired(s.now().UnixMilli()) {
		return nil, session.ErrNotFound
	}
	return r, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, expected, next *session.Record) (bool, error) {
	if expected == nil || next == nil || expected.Handle != next.Handle {
		return false, errors.New("compare-and-swap: records must share a handle")
	}
	nowMS := s.now().UnixMilli()
	if expected.Expired(nowMS) {
		return false, nil
	}

	candidate := next.Clone()
	candidate.Revision = expected.Revision + 1
	blob, err := session.Encode(candidate)
	if err != nil {
		return false, err
	}

	status, err := compareAndSwapLua.Exec(ctx, s.client,
		[]string{s.key(expected.Handle)},
		[]string{
			strconv.FormatUint(expected.Revision, 10),
			strconv.FormatUint(candidate.Revision, 10),
			string(blob),
			strconv.FormatInt(candidate.TTLMillis(nowMS), 10),
		},
	).AsInt64()
	if err != nil {
		return false, unavailable(err)
	}
	if status != 1 {
		return false, nil
	}
	next.Revision = candidate.Revision
	return true, nil
}

func (s *Store) Delete(ctx context.Context, handle string) (bool, error) {
	n, err := deleteLua.Exec(ctx, s.client, []string{s.key(handle)}, []string{s.userKeyPrefix(), handle}).AsInt64()
	if err != nil {
		return false, unavailable(err)
	}
	return n == 1, nil
}

func (s *Store) ListByUser(ctx context.Context, tenantID, userID string) ([]string, error) {
	userKey := s.userKey(tenantID, userID)

	handles, err := s.client.Do(ctx, s.client.B().Smembers().Key(userKey).Build()).AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return []string{}, nil
		}
		return nil, unavailable(err)
	}
	if len(handles) == 0 {
		return []string{}, nil
	}

	cmds := make(valkey.Commands, 0, len(handles))
	for _, handle := range handles {
		cmds = append(cmds, s.client.B().Exists().Key(s.key(handle)).Build())
	}

	live := make([]string, 0, len(handles))
	var stale []string
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		n, err := res.AsInt64()
		if err != nil {
			return nil, unavailable(err)
		}
		if n == 1 {
			live = append(live, handles[i])
		} else {
			stale = append(stale, handles[i])
		}
	}
	if len(stale) > 0 {
		err := s.client.Do(ctx, s.client.B().Srem().Key(userKey).Member(stale...).Build()).Error()
		if err != nil {
			return nil, unavailable(err)
		}
	}

	sort.Strings(live)
	return live, nil
}

// Ping checks Valkey connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return unavailable(err)
	}
	return nil
}
