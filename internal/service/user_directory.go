package service

import (
	"context"

	"github.com/ourclass/backend/internal/domain"
	"github.com/ourclass/backend/internal/repository"
	"github.com/ourclass/backend/pkg/cache"
)

// Directory resolves participant IDs to display metadata
type Directory interface {
	Lookup(userID string) (*domain.UserInfo, error)
	LookupMany(userIDs []string) (map[string]domain.UserInfo, error)
}

// UserDirectory resolves participant IDs to display metadata, with a
// short-TTL Redis cache in front of the store. Lookups are hot on the
// room-list path (one per 1:1 counterpart).
type UserDirectory struct {
	repo  repository.UserRepository
	cache cache.Service
}

// NewUserDirectory creates a new UserDirectory
func NewUserDirectory(repo repository.UserRepository, cacheService cache.Service) *UserDirectory {
	return &UserDirectory{repo: repo, cache: cacheService}
}

// Lookup returns display info for a user, nil if the user is unknown
func (d *UserDirectory) Lookup(userID string) (*domain.UserInfo, error) {
	ctx := context.Background()

	if d.cache != nil && d.cache.IsAvailable() {
		var info domain.UserInfo
		if err := d.cache.Get(ctx, cache.PrefixUser+userID, &info); err == nil {
			return &info, nil
		}
	}

	user, err := d.repo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	info := user.ToInfo()
	if d.cache != nil && d.cache.IsAvailable() {
		_ = d.cache.SetUser(ctx, userID, info)
	}

	return &info, nil
}

// LookupMany resolves a batch of user IDs in one store query. Unknown
// IDs are silently absent from the result.
func (d *UserDirectory) LookupMany(userIDs []string) (map[string]domain.UserInfo, error) {
	users, err := d.repo.FindByUserIDs(userIDs)
	if err != nil {
		return nil, err
	}
	result := make(map[string]domain.UserInfo, len(users))
	for _, u := range users {
		result[u.UserID] = u.ToInfo()
	}
	return result, nil
}
