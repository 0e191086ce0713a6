// Package sanction keeps the set of members whose access tokens must stop working
// before they expire.
package sanction

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/logger"
)

// Storage lists members that are currently suspended, locked, banned or deleted and
// whose record changed at or after since.
type Storage interface {
	RecentlySanctionedMembers(ctx context.Context, since time.Time) ([]domain.MemberId, error)
}

type Cache struct {
	storage    Storage
	jwtTTL     time.Duration
	now        func() time.Time
	mu         sync.RWMutex
	sanctioned map[domain.MemberId]bool
	lastUpdate time.Time
	log        *slog.Logger
}

func NewCache(storage Storage, jwtTTL time.Duration) *Cache {
	return &Cache{
		storage:    storage,
		jwtTTL:     jwtTTL,
		now:        time.Now,
		sanctioned: make(map[domain.MemberId]bool),
		log:        logger.Component("sanction_cache"),
	}
}

// Update reloads the set. Only sanctions newer than the access token lifetime (plus
// 10% for clock skew) matter: older tokens have expired anyway.
func (c *Cache) Update(ctx context.Context) error {
	since := c.now().Add(-time.Duration(float64(c.jwtTTL) * 1.1))

	ids, err := c.storage.RecentlySanctionedMembers(ctx, since)
	if err != nil {
		return err
	}

	fresh := make(map[domain.MemberId]bool, len(ids))
	for _, id := range ids {
		fresh[id] = true
	}

	c.mu.Lock()
	c.sanctioned = fresh
	c.lastUpdate = c.now()
	c.mu.Unlock()

	c.log.Debug("sanction cache updated",
		"entries", len(fresh),
		"since", since.Format(time.RFC3339))
	return nil
}

func (c *Cache) IsSanctioned(id domain.MemberId) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sanctioned[id]
}

// Set records a status change made by this process without waiting for the next
// reload.
func (c *Cache) Set(id domain.MemberId, sanctioned bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sanctioned {
		c.sanctioned[id] = true
	} else {
		delete(c.sanctioned, id)
	}
}

func (c *Cache) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate
}

// StartBackgroundUpdate refreshes the cache every interval until ctx is done.
func (c *Cache) StartBackgroundUpdate(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	c.log.Info("started sanction cache updates",
		"interval", interval,
		"jwt_ttl", c.jwtTTL)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.Update(ctx); err != nil {
					c.log.Error("sanction cache update failed", "error", err)
				}
			case <-ctx.Done():
				c.log.Info("sanction cache stopped")
				return
			}
		}
	}()
}
