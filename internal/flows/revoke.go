package flows

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// RunRevokeMany deletes each handle and returns those that were removed.
// It stops at the first store error, returning what was removed so far.
func RunRevokeMany(ctx context.Context, store session.Store, handles []string) ([]string, error) {
	removed := make([]string, 0, len(handles))
	for _, h := range handles {
		ok, err := store.Delete(ctx, h)
		if err != nil {
			return removed, err
		}
		if ok {
			removed = append(removed, h)
		}
	}
	return removed, nil
}

// RunRevokeAllForUser deletes every live session of a user.
func RunRevokeAllForUser(ctx context.Context, store session.Store, tenantID, userID string) ([]string, error) {
	handles, err := store.ListByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	return RunRevokeMany(ctx, store, handles)
}
