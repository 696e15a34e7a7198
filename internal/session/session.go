// Package session keeps the cache-resident session records that act as
// the authority on whether a login is still live. The signed cookie only
// identifies the user; a request is authenticated only while the record
// under user_session_<id> exists. Deleting the key (expiry, logout, or an
// operator) force-logs the user out regardless of cookie validity.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/loopfeed/apiserver/internal/cache"
	"github.com/loopfeed/apiserver/types"
)

// DefaultTTL is the fixed lifetime of a session record. Records are not
// renewed on activity; they expire on schedule from creation.
const DefaultTTL = time.Hour

// ErrExpired is returned when no live session record exists for a user.
var ErrExpired = errors.New("session expired")

// Record is the cache-resident snapshot of authentication state.
type Record struct {
	UserID        int    `json:"user_id"`
	Username      string `json:"username"`
	Authenticated bool   `json:"is_authenticated"`
}

// Key returns the cache key for a user's session record.
func Key(userID int) string {
	return fmt.Sprintf("user_session_%d", userID)
}

// Manager reads and writes session records.
type Manager struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewManager constructs a Manager with the default record lifetime.
func NewManager(c *cache.Cache) *Manager {
	return &Manager{cache: c, ttl: DefaultTTL}
}

// Start writes a fresh session record for the user.
func (m *Manager) Start(ctx context.Context, user types.User) error {
	record := Record{
		UserID:        user.ID,
		Username:      user.Username,
		Authenticated: true,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return m.cache.Set(ctx, Key(user.ID), data, m.ttl)
}

// Validate returns the live session record for the user, or ErrExpired
// when the record is missing, unreadable, or not authenticated.
func (m *Manager) Validate(ctx context.Context, userID int) (Record, error) {
	data, err := m.cache.Get(ctx, Key(userID))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return Record{}, ErrExpired
		}
		return Record{}, err
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, ErrExpired
	}
	if !record.Authenticated {
		return Record{}, ErrExpired
	}
	return record, nil
}

// End deletes the user's session record.
func (m *Manager) End(ctx context.Context, userID int) error {
	return m.cache.Delete(ctx, Key(userID))
}
