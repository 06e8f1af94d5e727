// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package sortcache keeps the sorters a viewer has started, keyed by dataset
// and column, and releases the ones nobody has asked for recently.
package sortcache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jellydator/ttlcache/v3"

	"github.com/cardinalhq/colsort/internal/dataset"
	"github.com/cardinalhq/colsort/internal/logctx"
	"github.com/cardinalhq/colsort/internal/sorter"
	"github.com/cardinalhq/colsort/internal/sorting"
)

// Key identifies one sort of one dataset column.
type Key struct {
	Path      string
	Delimiter byte
	Column    int
	Order     sorting.Order
}

// Cache hands out shared Sorter handles. A handle idle for longer than the
// TTL is evicted and closed, which requests termination of its job.
type Cache struct {
	mu     sync.Mutex
	cache  *ttlcache.Cache[Key, *sorter.Sorter]
	opts   []sorter.Option
	closed bool
}

// New creates a cache whose entries expire after ttl without a Get. opts are
// applied to every sorter the cache creates. Evictions are logged with the
// logger carried by ctx.
func New(ctx context.Context, ttl time.Duration, opts ...sorter.Option) *Cache {
	c := &Cache{
		cache: ttlcache.New(
			ttlcache.WithTTL[Key, *sorter.Sorter](ttl),
		),
		opts: opts,
	}
	ll := logctx.FromContext(ctx)
	c.cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[Key, *sorter.Sorter]) {
		s := item.Value()
		ll.Debug("Releasing sorter",
			slog.String("jobID", s.JobID()),
			slog.String("path", item.Key().Path),
			slog.Int("column", item.Key().Column),
			slog.String("reason", evictionReasonName(reason)))
		_ = s.Close()
	})
	go c.cache.Start()
	return c
}

func evictionReasonName(reason ttlcache.EvictionReason) string {
	switch reason {
	case ttlcache.EvictionReasonDeleted:
		return "deleted"
	case ttlcache.EvictionReasonCapacityReached:
		return "capacity"
	case ttlcache.EvictionReasonExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Get returns the sorter for the column, starting one if none is cached.
// A cached sorter whose job failed is replaced by a fresh one, since a job
// never restarts. The sorter outlives ctx; only its logger is inherited.
func (c *Cache) Get(ctx context.Context, provider dataset.Provider, columnIndex int, columnName string, order sorting.Order) *sorter.Sorter {
	key := Key{
		Path:      provider.Path(),
		Delimiter: provider.Delimiter(),
		Column:    columnIndex,
		Order:     order,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if item := c.cache.Get(key); item != nil {
		s := item.Value()
		if s.Status().State != sorter.StateError {
			return s
		}
		logctx.FromContext(ctx).Info("Restarting failed sort",
			slog.String("path", key.Path),
			slog.Int("column", key.Column),
			slog.String("status", s.Status().String()))
	}
	// Evicts (and closes) any failed or expired entry still stored under key.
	c.cache.Delete(key)

	opts := append([]sorter.Option{sorter.WithOrder(order)}, c.opts...)
	s := sorter.New(context.WithoutCancel(ctx), provider, columnIndex, columnName, opts...)
	c.cache.Set(key, s, ttlcache.DefaultTTL)
	return s
}

// Delete releases the sorter stored under key, if any.
func (c *Cache) Delete(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Delete(key)
}

// Len returns the number of cached sorters.
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Close stops expiry and releases every cached sorter. It does not wait for
// their workers to exit. The cache must not be used after Close.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.cache.Stop()

	var errs *multierror.Error
	for key, item := range c.cache.Items() {
		if err := item.Value().Close(); err != nil {
			errs = multierror.Append(errs, &closeError{key: key, err: err})
		}
	}
	c.cache.DeleteAll()
	return errs.ErrorOrNil()
}

type closeError struct {
	key Key
	err error
}

func (e *closeError) Error() string {
	return "close sorter for " + e.key.Path + ": " + e.err.Error()
}

func (e *closeError) Unwrap() error { return e.err }
