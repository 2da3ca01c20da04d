package storage

import (
	"context"
	"time"
)

// UpdateLastActivity records the current time in epoch milliseconds under
// the last-activity key. No retry on failure; callers fire and forget.
func UpdateLastActivity(ctx context.Context, store *Store) error {
	return SetJSON(ctx, store, KeyLastActivity, time.Now().UnixMilli())
}

// LastActivity reads the recorded activity time. The second return is false
// when nothing usable is stored. How old is too old is the caller's call.
func LastActivity(ctx context.Context, store *Store) (time.Time, bool, error) {
	ms, err := GetJSON[int64](ctx, store, KeyLastActivity)
	if err != nil || ms == nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(*ms), true, nil
}
