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

package sortcache

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/colsort/internal/dataset"
	"github.com/cardinalhq/colsort/internal/logctx"
	"github.com/cardinalhq/colsort/internal/sorter"
	"github.com/cardinalhq/colsort/internal/sorting"
)

func writeDataset(t *testing.T, content string) *dataset.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	f, err := dataset.NewFile(path, ',')
	require.NoError(t, err)
	return f
}

func wait(t *testing.T, s *sorter.Sorter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestCache_GetReusesHandle(t *testing.T) {
	c := New(context.Background(), time.Minute)
	defer func() { _ = c.Close() }()
	ds := writeDataset(t, "a,b\n2,x\n1,y\n")

	first := c.Get(context.Background(), ds, 0, "a", sorting.Ascending)
	second := c.Get(context.Background(), ds, 0, "a", sorting.Ascending)
	assert.Same(t, first, second)

	desc := c.Get(context.Background(), ds, 0, "a", sorting.Descending)
	assert.NotSame(t, first, desc)
	assert.Equal(t, sorting.Descending, desc.Order())

	other := c.Get(context.Background(), ds, 1, "b", sorting.Ascending)
	assert.NotSame(t, first, other)
	assert.Equal(t, 3, c.Len())

	wait(t, first)
	rows, ok := first.SortedIndices(0, 2)
	require.True(t, ok)
	assert.Equal(t, []uint64{1, 0}, rows)

	wait(t, desc)
	rows, ok = desc.SortedIndices(0, 2)
	require.True(t, ok)
	assert.Equal(t, []uint64{0, 1}, rows)
}

func TestCache_FailedSorterIsReplaced(t *testing.T) {
	c := New(context.Background(), time.Minute)
	defer func() { _ = c.Close() }()
	ds := writeDataset(t, "a\n1\n")

	failed := c.Get(context.Background(), ds, 5, "missing", sorting.Ascending)
	wait(t, failed)
	require.Equal(t, sorter.StateError, failed.Status().State)

	retried := c.Get(context.Background(), ds, 5, "missing", sorting.Ascending)
	assert.NotSame(t, failed, retried)
	assert.Equal(t, 1, c.Len())
}

func TestCache_DeleteRequestsTermination(t *testing.T) {
	c := New(context.Background(), time.Minute)
	defer func() { _ = c.Close() }()
	ds := writeDataset(t, "a\n1\n")

	s := c.Get(context.Background(), ds, 0, "a", sorting.Ascending)
	c.Delete(Key{Path: ds.Path(), Delimiter: ',', Column: 0, Order: sorting.Ascending})

	require.Eventually(t, s.TerminationRequested, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, c.Len())
}

func TestCache_ExpiryReleasesSorter(t *testing.T) {
	c := New(context.Background(), 20*time.Millisecond)
	defer func() { _ = c.Close() }()
	ds := writeDataset(t, "a\n1\n")

	s := c.Get(context.Background(), ds, 0, "a", sorting.Ascending)
	require.Eventually(t, func() bool {
		return s.TerminationRequested() && c.Len() == 0
	}, 5*time.Second, 5*time.Millisecond)
}

func TestCache_Close(t *testing.T) {
	c := New(context.Background(), time.Minute)
	ds := writeDataset(t, "a,b\n1,2\n")

	a := c.Get(context.Background(), ds, 0, "a", sorting.Ascending)
	b := c.Get(context.Background(), ds, 1, "b", sorting.Ascending)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.True(t, a.TerminationRequested())
	assert.True(t, b.TerminationRequested())
	assert.Equal(t, 0, c.Len())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCache_EvictionLogsWithContextLogger(t *testing.T) {
	var out syncBuffer
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := logctx.WithLogger(context.Background(), logger)

	c := New(ctx, time.Minute)
	defer func() { _ = c.Close() }()
	ds := writeDataset(t, "a\n1\n")

	c.Get(context.Background(), ds, 0, "a", sorting.Ascending)
	c.Delete(Key{Path: ds.Path(), Delimiter: ',', Column: 0, Order: sorting.Ascending})

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Releasing sorter")
	}, 5*time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), "reason=deleted")
}

func TestEvictionReasonName(t *testing.T) {
	assert.Equal(t, "deleted", evictionReasonName(ttlcache.EvictionReasonDeleted))
	assert.Equal(t, "capacity", evictionReasonName(ttlcache.EvictionReasonCapacityReached))
	assert.Equal(t, "expired", evictionReasonName(ttlcache.EvictionReasonExpired))
	assert.Equal(t, "unknown", evictionReasonName(ttlcache.EvictionReason(99)))
}
