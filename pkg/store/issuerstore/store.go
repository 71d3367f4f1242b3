/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/trustbloc/logutil-go/pkg/log"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
	bcerrors "github.com/trustbloc/blockcerts-verifier/pkg/errors"
	"github.com/trustbloc/blockcerts-verifier/pkg/issuer"
	"github.com/trustbloc/blockcerts-verifier/pkg/store"
)

var logger = log.New("issuer-store")

const (
	storeName            = "issuer-profile"
	maxCacheSize         = 1000
	defaultCacheLifetime = time.Minute
	defaultMaxAge        = time.Hour
)

type record struct {
	Profile  *issuer.Profile `json:"profile"`
	StoredAt time.Time       `json:"storedAt"`
}

// Store manages a persistent store of issuer profiles. Profiles are refreshed from the issuer once they
// are older than the maximum age. If the issuer cannot be reached due to a transient error then the stored
// profile is returned. The store also caches profiles in memory.
type Store struct {
	store    storage.Store
	resolver issuer.ProfileResolver
	cache    gcache.Cache
	maxAge   time.Duration
	now      func() time.Time
}

// Option is a store option.
type Option func(s *Store)

// WithMaxAge sets the age after which a stored profile is refreshed from the issuer.
func WithMaxAge(value time.Duration) Option {
	return func(s *Store) {
		s.maxAge = value
	}
}

// WithClock sets the clock (used in tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns a new issuer profile store that fetches missing or stale profiles using the given resolver.
func New(p storage.Provider, resolver issuer.ProfileResolver, opts ...Option) (*Store, error) {
	s, err := store.Open(p, storeName)
	if err != nil {
		return nil, err
	}

	is := &Store{
		store:    s,
		resolver: resolver,
		maxAge:   defaultMaxAge,
		now:      time.Now,
		cache:    gcache.New(maxCacheSize).ARC().Expiration(defaultCacheLifetime).Build(),
	}

	for _, opt := range opts {
		opt(is)
	}

	logger.Info("Created issuer profile store", logfields.WithStoreName(storeName),
		logfields.WithExpiration(is.maxAge))

	return is, nil
}

// Resolve returns the issuer profile at the given URL.
func (s *Store) Resolve(ctx context.Context, profileURL string) (*issuer.Profile, error) {
	if v, err := s.cache.Get(profileURL); err == nil {
		return v.(*issuer.Profile), nil //nolint:forcetypeassert
	}

	rec, err := s.getFromDB(profileURL)
	if err != nil && !errors.Is(err, storage.ErrDataNotFound) {
		return nil, fmt.Errorf("get from DB: %w", err)
	}

	if rec != nil && s.now().Sub(rec.StoredAt) < s.maxAge {
		s.addToCache(profileURL, rec.Profile)

		return rec.Profile, nil
	}

	profile, err := s.resolver.Resolve(ctx, profileURL)
	if err != nil {
		if rec != nil && bcerrors.IsTransient(err) {
			logger.Warn("Error refreshing issuer profile. Using stored profile.", log.WithError(err),
				logfields.WithRequestURL(profileURL))

			return rec.Profile, nil
		}

		return nil, err
	}

	if err := s.putToDB(profileURL, profile); err != nil {
		// The profile was resolved. A storage error shouldn't fail the verification.
		logger.Warn("Error storing issuer profile", log.WithError(err), logfields.WithRequestURL(profileURL))
	}

	s.addToCache(profileURL, profile)

	return profile, nil
}

func (s *Store) addToCache(profileURL string, profile *issuer.Profile) {
	if err := s.cache.Set(profileURL, profile); err != nil {
		logger.Warn("Error caching issuer profile", log.WithError(err), logfields.WithRequestURL(profileURL))
	}
}

func (s *Store) getFromDB(profileURL string) (*record, error) {
	b, err := s.store.Get(profileURL)
	if err != nil {
		return nil, fmt.Errorf("get issuer profile [%s]: %w", profileURL, err)
	}

	rec := &record{}

	if err := json.Unmarshal(b, rec); err != nil {
		return nil, fmt.Errorf("unmarshal issuer profile [%s]: %w", profileURL, err)
	}

	logger.Debug("Issuer profile found in storage", logfields.WithRequestURL(profileURL))

	return rec, nil
}

func (s *Store) putToDB(profileURL string, profile *issuer.Profile) error {
	b, err := json.Marshal(&record{Profile: profile, StoredAt: s.now()})
	if err != nil {
		return fmt.Errorf("marshal issuer profile [%s]: %w", profileURL, err)
	}

	if err := s.store.Put(profileURL, b); err != nil {
		return fmt.Errorf("store issuer profile [%s]: %w", profileURL, err)
	}

	logger.Debug("Stored issuer profile", logfields.WithRequestURL(profileURL), logfields.WithIssuerID(profile.ID))

	return nil
}
