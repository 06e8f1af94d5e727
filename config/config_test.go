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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COLSORT_SORTER_BATCH_SIZE", "128")
	t.Setenv("COLSORT_SORTER_SAMPLE_ROWS", "50")
	t.Setenv("COLSORT_SORTER_DELIMITER", "|")
	t.Setenv("COLSORT_CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 128, cfg.Sorter.BatchSize)
	require.Equal(t, 50, cfg.Sorter.SampleRows)
	require.Equal(t, "|", cfg.Sorter.Delimiter)
	require.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := "sorter:\n  batch_size: 4096\ncache:\n  ttl: 2m\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "colsort.yaml"), []byte(content), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 4096, cfg.Sorter.BatchSize)
	require.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	require.Equal(t, DefaultConfig().Sorter.SampleRows, cfg.Sorter.SampleRows)
}

func TestLoadRejectsNonPositive(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COLSORT_SORTER_BATCH_SIZE", "0")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().Sorter.BatchSize, cfg.Sorter.BatchSize)
}
