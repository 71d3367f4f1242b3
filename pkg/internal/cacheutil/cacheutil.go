/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cacheutil

import (
	"fmt"
	"time"

	"github.com/bluele/gcache"
)

// Cacheable is implemented by cached objects that know their own lifetime.
type Cacheable interface {
	CacheLifetime() time.Duration
}

// Fetcher loads the object for the given key.
type Fetcher func(key string) (Cacheable, error)

// MakeCache returns a cache with string keys that loads missing entries using the given fetcher
// and expires each entry after its own lifetime. A size of zero means unbounded.
func MakeCache(size int, fetch Fetcher) gcache.Cache {
	b := gcache.New(size)
	if size > 0 {
		b = b.ARC()
	}

	return b.LoaderExpireFunc(func(key interface{}) (interface{}, *time.Duration, error) {
		k, ok := key.(string)
		if !ok {
			return nil, nil, fmt.Errorf("key must be string")
		}

		obj, err := fetch(k)
		if err != nil {
			return nil, nil, err
		}

		lifetime := obj.CacheLifetime()

		return obj, &lifetime, nil
	}).Build()
}
