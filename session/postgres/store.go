package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/MrEthical07/goSession/session"
)

// Store is a Postgres-backed session.Store over the sessions table.
type Store struct {
	db  *pgxpool.Pool
	now func() time.Time
}

var _ session.Store = (*Store)(nil)

// NewStore returns a Store on db. A nil now uses time.Now.
func NewStore(db *pgxpool.Pool, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, now: now}
}

func unavailable(op string, err error) error {
	return oops.In("session-postgres").Wrapf(errors.Join(session.ErrUnavailable, err), "%s", op)
}

func marshalPayload(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (s *Store) Put(ctx context.Context, r *session.Record) error {
	if r == nil || r.Handle == "" {
		return errors.New("put: record requires a handle")
	}
	nowMS := s.now().UnixMilli()
	if r.Expired(nowMS) {
		return errors.New("put: record already expired")
	}
	if _, err := session.Encode(r); err != nil {
		return err
	}
	jwtData, err := marshalPayload(r.AccessTokenPayload)
	if err != nil {
		return fmt.Errorf("marshaling access token payload: %w", err)
	}
	sessData, err := marshalPayload(r.SessionData)
	if err != nil {
		return fmt.Errorf("marshaling session data: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO sessions (
			handle, user_id, tenant_id, rotation_counter, revision,
			user_data_in_jwt, session_data, created_time, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (handle) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			tenant_id = EXCLUDED.tenant_id,
			rotation_counter = EXCLUDED.rotation_counter,
			revision = EXCLUDED.revision,
			user_data_in_jwt = EXCLUDED.user_data_in_jwt,
			session_data = EXCLUDED.session_data,
			created_time = EXCLUDED.created_time,
			expires_at = EXCLUDED.expires_at
	`, r.Handle, r.UserID, session.NormalizeTenantID(r.TenantID), int64(r.RotationCounter), int64(r.Revision),
		jwtData, sessData, r.CreatedAt, r.ExpiresAt)
	if err != nil {
		return unavailable("inserting session", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, handle string) (*session.Record, error) {
	var (
		r                 session.Record
		counter, revision int64
		jwtData, sessData []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT handle, user_id, tenant_id, rotation_counter, revision,
		       user_data_in_jwt, session_data, created_time, expires_at
		FROM sessions
		WHERE handle = $1 AND expires_at > $2
	`, handle, s.now().UnixMilli()).Scan(
		&r.Handle, &r.UserID, &r.TenantID, &counter, &revision,
		&jwtData, &sessData, &r.CreatedAt, &r.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("selecting session", err)
	}

	r.RotationCounter = uint64(counter)
	r.Revision = uint64(revision)
	if err := json.Unmarshal(jwtData, &r.AccessTokenPayload); err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrCorrupt, err)
	}
	if err := json.Unmarshal(sessData, &r.SessionData); err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrCorrupt, err)
	}
	return &r, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, expected, next *session.Record) (bool, error) {
	if expected == nil || next == nil || expected.Handle != next.Handle {
		return false, errors.New("compare-and-swap: records must share a handle")
	}
	if _, err := session.Encode(next); err != nil {
		return false, err
	}
	jwtData, err := marshalPayload(next.AccessTokenPayload)
	if err != nil {
		return false, fmt.Errorf("marshaling access token payload: %w", err)
	}
	sessData, err := marshalPayload(next.SessionData)
	if err != nil {
		return false, fmt.Errorf("marshaling session data: %w", err)
	}

	nextRevision := expected.Revision + 1
	ct, err := s.db.Exec(ctx, `
		UPDATE sessions SET
			rotation_counter = $3,
			revision = $4,
			user_data_in_jwt = $5,
			session_data = $6,
			expires_at = $7
		WHERE handle = $1 AND revision = $2 AND expires_at > $8
	`, expected.Handle, int64(expected.Revision), int64(next.RotationCounter), int64(nextRevision),
		jwtData, sessData, next.ExpiresAt, s.now().UnixMilli())
	if err != nil {
		return false, unavailable("updating session", err)
	}
	if ct.RowsAffected() == 0 {
		return false, nil
	}
	next.Revision = nextRevision
	return true, nil
}

func (s *Store) Delete(ctx context.Context, handle string) (bool, error) {
	var live int64
	err := s.db.QueryRow(ctx, `
		WITH deleted AS (
			DELETE FROM sessions WHERE handle = $1 RETURNING expires_at
		)
		SELECT count(*) FROM deleted WHERE expires_at > $2
	`, handle, s.now().UnixMilli()).Scan(&live)
	if err != nil {
		return false, unavailable("deleting session", err)
	}
	return live > 0, nil
}

func (s *Store) ListByUser(ctx context.Context, tenantID, userID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT handle FROM sessions
		WHERE tenant_id = $1 AND user_id = $2 AND expires_at > $3
		ORDER BY handle
	`, session.NormalizeTenantID(tenantID), userID, s.now().UnixMilli())
	if err != nil {
		return nil, unavailable("listing sessions", err)
	}
	handles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, unavailable("scanning sessions", err)
	}
	if handles == nil {
		handles = []string{}
	}
	return handles, nil
}

// PurgeExpired deletes rows whose expiry has passed and returns how many
// were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	ct, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.now().UnixMilli())
	if err != nil {
		return 0, unavailable("purging sessions", err)
	}
	return ct.RowsAffected(), nil
}

// Ping checks that a connection can be acquired.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}
