/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultOperationCacheSize is the number of entries kept by the LRUOperationCache that a handler
// creates when no OperationCache is configured.
const DefaultOperationCacheSize = 512

// OperationCache caches PreparedOperation created from a query to save parsing and validation
// efforts. Implementations must be safe for concurrent use.
type OperationCache interface {
	// Get looks up operation for the given query.
	Get(query string) (operation *PreparedOperation, ok bool)

	// Add adds an operation that associated with the query to the cache.
	Add(query string, operation *PreparedOperation)
}

// LRUOperationCache is an OperationCache that evicts the least recently used entry when full.
type LRUOperationCache struct {
	cache *lru.Cache[string, *PreparedOperation]
}

var _ OperationCache = (*LRUOperationCache)(nil)

// NewLRUOperationCache creates a LRUOperationCache that holds at most maxEntries operations.
func NewLRUOperationCache(maxEntries int) (*LRUOperationCache, error) {
	cache, err := lru.New[string, *PreparedOperation](maxEntries)
	if err != nil {
		return nil, err
	}
	return &LRUOperationCache{cache}, nil
}

// Get implements OperationCache.
func (c *LRUOperationCache) Get(query string) (*PreparedOperation, bool) {
	return c.cache.Get(query)
}

// Add implements OperationCache.
func (c *LRUOperationCache) Add(query string, operation *PreparedOperation) {
	c.cache.Add(query, operation)
}

// Len returns the number of cached operations.
func (c *LRUOperationCache) Len() int {
	return c.cache.Len()
}

// NopOperationCache disables operation caching.
type NopOperationCache struct{}

var _ OperationCache = NopOperationCache{}

// Get implements OperationCache. It always misses.
func (NopOperationCache) Get(query string) (*PreparedOperation, bool) {
	return nil, false
}

// Add implements OperationCache. It does nothing.
func (NopOperationCache) Add(query string, operation *PreparedOperation) {}
