/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/bluele/gcache"
	"github.com/trustbloc/logutil-go/pkg/log"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
)

// ProfileResolver resolves issuer profiles.
type ProfileResolver interface {
	Resolve(ctx context.Context, profileURL string) (*Profile, error)
}

// Resolver resolves issuer profiles over HTTP and caches them for the lifetime advertised by the issuer.
type Resolver struct {
	*options

	cache gcache.Cache
}

// NewResolver returns a new issuer profile resolver.
func NewResolver(opts ...Option) *Resolver {
	o := newOptions(opts)

	return &Resolver{
		options: o,
		cache:   gcache.New(o.cacheSize).ARC().Build(),
	}
}

// Resolve returns the issuer profile at the given URL.
func (r *Resolver) Resolve(ctx context.Context, profileURL string) (*Profile, error) {
	if v, err := r.cache.Get(profileURL); err == nil {
		r.metrics.IssuerIncrementCacheHitCount()

		return v.(*Profile), nil //nolint:forcetypeassert
	}

	start := time.Now()

	defer func() {
		r.metrics.IssuerResolveTime(time.Since(start))
	}()

	u, err := url.Parse(profileURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid issuer profile URL [%s]", profileURL)
	}

	resp, err := r.get(ctx, profileURL)
	if err != nil {
		return nil, fmt.Errorf("unable to get issuer profile: %w", err)
	}

	profile, err := ParseProfile(resp.body)
	if err != nil {
		return nil, err
	}

	lifetime := maxAge(resp.cacheControl, r.cacheLifetime)

	if lifetime > 0 {
		if err := r.cache.SetWithExpire(profileURL, profile, lifetime); err != nil {
			logger.Warn("Error caching issuer profile", log.WithError(err), logfields.WithRequestURL(profileURL))
		}
	}

	logger.Debug("Resolved issuer profile", logfields.WithRequestURL(profileURL),
		logfields.WithIssuerID(profile.ID), logfields.WithExpiration(lifetime))

	return profile, nil
}
