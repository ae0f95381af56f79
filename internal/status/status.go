// Package status is the hub's gateway to the system of record for user
// online flags and social edges. The hub makes exactly one attempt per
// presence change; a failure is logged by the caller and that handler's
// remaining fanout is skipped (best effort, never a crash).
package status

import "context"

// Profile is what the system of record returns for a presence change:
// the affected user plus the friend identities the hub fans out to.
type Profile struct {
	UserID      string
	Username    string
	DisplayName string
	Friends     []string
}

// Service flips a user's online flag and returns their profile.
// ErrUserNotFound (wrapped) or any transport error counts as a
// collaborator failure per the hub's degradation rules.
type Service interface {
	SetOnlineStatus(ctx context.Context, userID string, online bool) (*Profile, error)
}
