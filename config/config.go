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
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cardinalhq/colsort/internal/filereader"
)

// Config aggregates configuration for the application.
type Config struct {
	Sorter SorterConfig `mapstructure:"sorter"`
	Cache  CacheConfig  `mapstructure:"cache"`
}

// SorterConfig tunes background sort jobs.
type SorterConfig struct {
	// BatchSize is the number of rows parsed between cancellation checks.
	BatchSize int `mapstructure:"batch_size"`
	// SampleRows is the number of rows schema inference looks at.
	SampleRows int `mapstructure:"sample_rows"`
	// Delimiter is the default field delimiter, e.g. "," or "\t".
	Delimiter string `mapstructure:"delimiter"`
}

// CacheConfig controls how long idle sorters are kept.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Sorter: SorterConfig{
			BatchSize:  filereader.DefaultBatchSize,
			SampleRows: filereader.DefaultSampleRows,
			Delimiter:  ",",
		},
		Cache: CacheConfig{
			TTL: 10 * time.Minute,
		},
	}
}

// Load reads configuration from a config file in the working directory and
// environment variables. Environment variables use the prefix "COLSORT" and
// the dot in keys is replaced by an underscore, so "sorter.batch_size"
// becomes "COLSORT_SORTER_BATCH_SIZE".
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("colsort")
	v.AddConfigPath(".")
	v.SetEnvPrefix("COLSORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	defaults := DefaultConfig()
	if cfg.Sorter.BatchSize <= 0 {
		cfg.Sorter.BatchSize = defaults.Sorter.BatchSize
	}
	if cfg.Sorter.SampleRows <= 0 {
		cfg.Sorter.SampleRows = defaults.Sorter.SampleRows
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = defaults.Cache.TTL
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(append([]string(nil), parts...), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
