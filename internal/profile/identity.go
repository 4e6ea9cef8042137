package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/wandergram/wanderchat/internal/api"
)

// userCacheTTL bounds how long a cached profile may stand in for a fresh
// /users/me response.
const userCacheTTL = 24 * time.Hour

// Identity holds the resolved current user. The composer treats an
// unresolved identity as a precondition failure rather than guessing ids.
type Identity struct {
	profileName string

	mu   sync.RWMutex
	user *api.User
}

// NewIdentity creates an empty identity for a profile.
func NewIdentity(profileName string) *Identity {
	return &Identity{profileName: profileName}
}

// Resolve fetches the current user from the backend and caches it on disk.
// When the fetch fails, a fresh-enough cached copy is used instead so the
// client can still label outgoing messages.
func (i *Identity) Resolve(ctx context.Context, client *api.Client) error {
	user, err := client.Me(ctx)
	if err != nil {
		if cached, cacheErr := i.loadCache(); cacheErr == nil {
			i.set(cached)
			return nil
		}
		return fmt.Errorf("resolve current user: %w", err)
	}
	i.set(user)
	i.saveCache(user)
	return nil
}

// UserID returns the resolved user id, or "" while loading.
func (i *Identity) UserID() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.user == nil {
		return ""
	}
	return i.user.ID
}

// User returns the resolved user, or nil while loading.
func (i *Identity) User() *api.User {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.user
}

func (i *Identity) set(user *api.User) {
	i.mu.Lock()
	i.user = user
	i.mu.Unlock()
}

type cachedUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (i *Identity) saveCache(user *api.User) {
	if err := EnsureDir(i.profileName); err != nil {
		return
	}
	data, err := json.Marshal(cachedUser{
		ID:        user.ID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		ExpiresAt: time.Now().Add(userCacheTTL),
	})
	if err != nil {
		return
	}
	_ = os.WriteFile(UserCachePath(i.profileName), data, 0600)
}

func (i *Identity) loadCache() (*api.User, error) {
	data, err := os.ReadFile(UserCachePath(i.profileName))
	if err != nil {
		return nil, err
	}
	var cached cachedUser
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	if time.Now().After(cached.ExpiresAt) {
		return nil, fmt.Errorf("cached profile expired")
	}
	return &api.User{ID: cached.ID, Username: cached.Username, AvatarURL: cached.AvatarURL}, nil
}
