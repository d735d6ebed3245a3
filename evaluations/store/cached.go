/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"context"
	"encoding/json"
	"fmt"

	"chainguard.dev/docscore/evaluations"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of cached records.
const DefaultCacheSize = 256

// Cached serves finished records from memory. Records that can still
// change are always read through to the wrapped store.
type Cached struct {
	inner evaluations.Store
	cache *lru.Cache[string, []byte]
}

var _ evaluations.Store = (*Cached)(nil)

// NewCached wraps inner with an LRU cache of size entries. A non-positive
// size uses DefaultCacheSize.
func NewCached(inner evaluations.Store, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Save writes through and caches rec once it is terminal.
func (c *Cached) Save(ctx context.Context, rec *evaluations.Record) error {
	if err := c.inner.Save(ctx, rec); err != nil {
		c.cache.Remove(rec.ID)
		return err
	}
	c.remember(rec)
	return nil
}

// Get returns a cached copy of a terminal record or reads through.
func (c *Cached) Get(ctx context.Context, id string) (*evaluations.Record, error) {
	if data, ok := c.cache.Get(id); ok {
		var rec evaluations.Record
		if err := json.Unmarshal(data, &rec); err == nil {
			return &rec, nil
		}
		c.cache.Remove(id)
	}
	rec, err := c.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.remember(rec)
	return rec, nil
}

// remember caches an encoded copy so callers cannot mutate the cached value.
func (c *Cached) remember(rec *evaluations.Record) {
	if !rec.Status.Terminal() {
		c.cache.Remove(rec.ID)
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		c.cache.Remove(rec.ID)
		return
	}
	c.cache.Add(rec.ID, data)
}

// Len returns the number of cached records.
func (c *Cached) Len() int {
	return c.cache.Len()
}
