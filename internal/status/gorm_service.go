package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"presence-hub-api/internal/cache"
	"presence-hub-api/internal/models"

	"gorm.io/gorm"
)

// ErrUserNotFound is returned when the identity has no user row.
var ErrUserNotFound = errors.New("user not found")

// friendsTTL bounds staleness of the cached social edges between explicit
// invalidations (friendship REST mutations and friendship events both
// invalidate eagerly, so the TTL only covers out-of-band edits).
const friendsTTL = 30 * time.Second

// GormService implements Service against the users/friendships tables.
type GormService struct {
	db      *gorm.DB
	friends *cache.TTLCache[string, []string]
}

func NewGormService(db *gorm.DB) *GormService {
	return &GormService{
		db:      db,
		friends: cache.New[string, []string](),
	}
}

// SetOnlineStatus flips the online flag and loads the user's profile.
func (s *GormService) SetOnlineStatus(ctx context.Context, userID string, online bool) (*Profile, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("set online status for %q: %w", userID, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("set online status for %q: %w", userID, err)
	}

	if user.Online != online {
		if err := s.db.WithContext(ctx).Model(&user).Update("online", online).Error; err != nil {
			return nil, fmt.Errorf("set online status for %q: %w", userID, err)
		}
	}

	friends, err := s.friendIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("set online status for %q: %w", userID, err)
	}

	return &Profile{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Friends:     friends,
	}, nil
}

func (s *GormService) friendIDs(ctx context.Context, userID string) ([]string, error) {
	if ids, ok := s.friends.Get(userID); ok {
		return ids, nil
	}

	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("user_id = ?", userID).
		Pluck("friend_id", &ids).Error
	if err != nil {
		return nil, err
	}

	s.friends.Set(userID, ids, friendsTTL)
	return ids, nil
}

// InvalidateFriends drops cached edges for both parties of a relationship
// mutation so the next presence change sees the fresh graph.
func (s *GormService) InvalidateFriends(userIDs ...string) {
	for _, id := range userIDs {
		s.friends.Delete(id)
	}
}
