// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package data

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pierrec/lz4/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/zeebo/blake3"
)

// Cache stores raw provider payloads. Lookups go to the in-process LRU first, then redis
// (when configured) and finally the on-disk directory (when configured). Values are stored
// lz4 compressed at every level. A nil *Cache is valid and never hits.
type Cache struct {
	local *lru.Cache
	rdb   *redis.Client
	ttl   time.Duration
	dir   string
}

// NewCache creates a payload cache. rdb and dir are optional.
func NewCache(localSize int, rdb *redis.Client, ttl time.Duration, dir string) (*Cache, error) {
	if localSize <= 0 {
		localSize = 256
	}
	local, err := lru.New(localSize)
	if err != nil {
		return nil, fmt.Errorf("could not create LRU cache: %w", err)
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	return &Cache{
		local: local,
		rdb:   rdb,
		ttl:   ttl,
		dir:   dir,
	}, nil
}

// NewCacheFromConfig builds the cache from the cache.* configuration keys
func NewCacheFromConfig() (*Cache, error) {
	var rdb *redis.Client
	if viper.GetBool("cache.redis") {
		opt, err := redis.ParseURL(viper.GetString("cache.redis_url"))
		if err != nil {
			log.Error().Err(err).Msg("could not parse redis URL")
			return nil, err
		}
		rdb = redis.NewClient(opt)
	}

	ttl := time.Duration(viper.GetInt("cache.ttl")) * time.Second
	return NewCache(viper.GetInt("cache.local_size"), rdb, ttl, viper.GetString("cache.dir"))
}

// CacheKey hashes a request URL into a fixed-width key usable as a file name
func CacheKey(url string) string {
	sum := blake3.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Get returns the decompressed payload stored under key
func (cache *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if cache == nil {
		return nil, false
	}

	if v, ok := cache.local.Get(key); ok {
		return cache.decompress(key, v.([]byte))
	}

	if cache.rdb != nil {
		val, err := cache.rdb.GetEx(ctx, key, cache.ttl).Bytes()
		switch {
		case err == nil:
			cache.local.Add(key, val)
			return cache.decompress(key, val)
		case !errors.Is(err, redis.Nil):
			log.Warn().Err(err).Str("Key", key).Msg("redis lookup failed")
		}
	}

	if cache.dir != "" {
		val, err := os.ReadFile(cache.path(key))
		if err == nil {
			cache.local.Add(key, val)
			return cache.decompress(key, val)
		}
	}

	return nil, false
}

// Set compresses value and stores it at every configured level
func (cache *Cache) Set(ctx context.Context, key string, value []byte) error {
	if cache == nil {
		return nil
	}

	compressed, err := Compress(value)
	if err != nil {
		return err
	}
	cache.local.Add(key, compressed)

	if cache.rdb != nil {
		if err := cache.rdb.Set(ctx, key, compressed, cache.ttl).Err(); err != nil {
			return err
		}
	}

	if cache.dir != "" {
		if err := os.WriteFile(cache.path(key), compressed, 0o644); err != nil {
			return err
		}
	}

	return nil
}

// Len returns the number of entries in the in-process cache
func (cache *Cache) Len() int {
	if cache == nil {
		return 0
	}
	return cache.local.Len()
}

func (cache *Cache) path(key string) string {
	return filepath.Join(cache.dir, key+".lz4")
}

func (cache *Cache) decompress(key string, val []byte) ([]byte, bool) {
	out, err := Decompress(val)
	if err != nil {
		log.Warn().Err(err).Str("Key", key).Msg("dropping corrupt cache entry")
		cache.local.Remove(key)
		return nil, false
	}
	return out, true
}

func Compress(in []byte) ([]byte, error) {
	r := bytes.NewReader(in)
	w := &bytes.Buffer{}
	zw := lz4.NewWriter(w)
	_, err := io.Copy(zw, r)
	if err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func Decompress(in []byte) ([]byte, error) {
	r := bytes.NewReader(in)
	w := &bytes.Buffer{}
	zr := lz4.NewReader(r)
	_, err := io.Copy(w, zr)
	if err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
