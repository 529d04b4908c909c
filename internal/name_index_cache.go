package internal

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/lychee-technology/scorekeep"
	"go.uber.org/zap"
)

type nameIndexSnapshot struct {
	entries   []scorekeep.NameIndexEntry
	expiresAt time.Time
}

// NameIndexCache keeps the flattened (name, id) index of every game for at
// most ttl. Writes do not invalidate it. Concurrent callers that find the
// snapshot stale may each rebuild it; readers only ever see whole snapshots.
type NameIndexCache struct {
	source   scorekeep.NameSource
	ttl      time.Duration
	nowFunc  func() time.Time
	snapshot atomic.Pointer[nameIndexSnapshot]
	reloads  atomic.Int64
}

func NewNameIndexCache(source scorekeep.NameSource, ttl time.Duration) *NameIndexCache {
	return &NameIndexCache{
		source:  source,
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

func (c *NameIndexCache) withClock(now func() time.Time) {
	if now == nil {
		return
	}
	c.nowFunc = now
}

// GetNames returns the name index, rebuilding it from the source when the
// cached snapshot is missing or expired.
func (c *NameIndexCache) GetNames(ctx context.Context) ([]scorekeep.NameIndexEntry, error) {
	now := c.nowFunc()
	if snap := c.snapshot.Load(); snap != nil && now.Before(snap.expiresAt) {
		return slices.Clone(snap.entries), nil
	}

	games, err := c.source.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebuild name index: %w", err)
	}

	entries := FlattenNames(games)
	c.snapshot.Store(&nameIndexSnapshot{entries: entries, expiresAt: now.Add(c.ttl)})
	reloads := c.reloads.Add(1)

	zap.S().Debugw("name index rebuilt", "games", len(games), "entries", len(entries), "reloads", reloads)
	EmitNameIndexRebuild(ctx, len(entries))

	return slices.Clone(entries), nil
}

// Reloads returns how many times the index has been rebuilt.
func (c *NameIndexCache) Reloads() int64 {
	return c.reloads.Load()
}

// FlattenNames emits, per game in order, its name, its short name and then
// each of its aliases.
func FlattenNames(games []scorekeep.BoardgameNames) []scorekeep.NameIndexEntry {
	entries := make([]scorekeep.NameIndexEntry, 0, len(games)*3)
	for _, g := range games {
		entries = append(entries,
			scorekeep.NameIndexEntry{Key: g.Name, BoardgameID: g.ID},
			scorekeep.NameIndexEntry{Key: g.ShortName, BoardgameID: g.ID},
		)
		for _, alias := range g.Aliases {
			entries = append(entries, scorekeep.NameIndexEntry{Key: alias, BoardgameID: g.ID})
		}
	}
	return entries
}
