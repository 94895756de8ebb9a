package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/session"
)

// ErrUpdateContended is returned when every compare-and-swap attempt of an
// update lost to a concurrent writer.
var ErrUpdateContended = errors.New("session update contended")

// RunUpdate applies mutate to the current record of handle and writes it back
// with compare-and-swap, re-reading after each lost race up to the rotation
// attempt bound. mutate receives a private copy and must be idempotent.
// Store errors, including session.ErrNotFound, are returned unchanged.
func RunUpdate(ctx context.Context, store session.Store, handle string, mutate func(*session.Record) error) (*session.Record, error) {
	for attempt := 0; attempt < maxRotateAttempts; attempt++ {
		rec, err := store.Get(ctx, handle)
		if err != nil {
			return nil, err
		}
		next := rec.Clone()
		if err := mutate(next); err != nil {
			return nil, err
		}
		ok, err := store.CompareAndSwap(ctx, rec, next)
		if err != nil {
			return nil, err
		}
		if ok {
			return next, nil
		}
	}
	return nil, ErrUpdateContended
}
