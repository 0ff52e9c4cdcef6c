// Package store is the tiered document store: a fast Redis cache in front
// of a durable Postgres record, keyed by project id. The cache is the
// short-term source of truth; a periodic sweep moves dirty documents into
// the durable tier.
package store

import (
	"context"
	"log"
	"time"

	"whiteboard-backend/internal/model"
)

// DurableStore is the long-term tier. Find returns (nil, nil) when the
// project has no record yet; a brand-new document is not an error.
type DurableStore interface {
	Find(ctx context.Context, projectID int64) (*model.WhiteboardData, error)
	Upsert(ctx context.Context, projectID int64, data model.WhiteboardData) error
}

// DocumentCache is the fast tier. Implementations must be safe for
// concurrent use. Put with markDirty records the project for the next
// durable sweep; a plain Put repopulates after a load without marking.
type DocumentCache interface {
	Get(ctx context.Context, projectID int64) (*model.WhiteboardData, error)
	Put(ctx context.Context, projectID int64, data model.WhiteboardData, markDirty bool) error
	Refresh(ctx context.Context, projectID int64) error
	DirtyProjects(ctx context.Context) ([]int64, error)
	ClearDirty(ctx context.Context, projectID int64) error
}

// TieredStore composes the two tiers cache-aside: reads check the cache
// first and repopulate it from the durable store on a miss, never the
// reverse; writes land in the cache only.
type TieredStore struct {
	cache   DocumentCache
	durable DurableStore
}

func New(cache DocumentCache, durable DurableStore) *TieredStore {
	return &TieredStore{cache: cache, durable: durable}
}

// Get returns the current document for a project. A cache hit refreshes the
// entry's TTL. On a miss the durable store is consulted; if that also has
// nothing, an empty document is returned and cached. Infrastructure errors
// degrade to a miss and a log line, never an error for the caller.
func (s *TieredStore) Get(ctx context.Context, projectID int64) model.WhiteboardData {
	cached, err := s.cache.Get(ctx, projectID)
	if err != nil {
		log.Printf("[Store] Cache read failed for project %d: %v", projectID, err)
	}
	if cached != nil {
		if err := s.cache.Refresh(ctx, projectID); err != nil {
			log.Printf("[Store] TTL refresh failed for project %d: %v", projectID, err)
		}
		return *cached
	}

	loaded, err := s.durable.Find(ctx, projectID)
	if err != nil {
		log.Printf("[Store] Durable load failed for project %d: %v", projectID, err)
	}
	if loaded == nil {
		empty := model.NewEmptyWhiteboard()
		loaded = &empty
	}

	if err := s.cache.Put(ctx, projectID, *loaded, false); err != nil {
		log.Printf("[Store] Cache repopulation failed for project %d: %v", projectID, err)
	}
	return *loaded
}

// Set replaces the document in the fast tier and marks it for the next
// durable sweep. Nothing is written to the durable store synchronously.
func (s *TieredStore) Set(ctx context.Context, projectID int64, data model.WhiteboardData) error {
	return s.cache.Put(ctx, projectID, data, true)
}

// Flush persists every dirty document into the durable store and clears
// its mark. A dirty entry whose cache value already expired is dropped
// with a warning; there is nothing left to persist.
func (s *TieredStore) Flush(ctx context.Context) {
	ids, err := s.cache.DirtyProjects(ctx)
	if err != nil {
		log.Printf("[Store] Dirty scan failed: %v", err)
		return
	}

	for _, projectID := range ids {
		data, err := s.cache.Get(ctx, projectID)
		if err != nil {
			log.Printf("[Store] Flush read failed for project %d: %v", projectID, err)
			continue
		}
		if data == nil {
			log.Printf("[Store] Dirty project %d expired from cache before flush", projectID)
			if err := s.cache.ClearDirty(ctx, projectID); err != nil {
				log.Printf("[Store] Failed to clear dirty mark for project %d: %v", projectID, err)
			}
			continue
		}

		if err := s.durable.Upsert(ctx, projectID, *data); err != nil {
			log.Printf("[Store] Durable write failed for project %d: %v", projectID, err)
			continue
		}
		if err := s.cache.ClearDirty(ctx, projectID); err != nil {
			log.Printf("[Store] Failed to clear dirty mark for project %d: %v", projectID, err)
		}
	}
}

// RunSweep flushes dirty documents on a fixed interval until ctx ends.
func (s *TieredStore) RunSweep(ctx context.Context, interval time.Duration) {
	log.Printf("[Store] Durable sweep running every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}
