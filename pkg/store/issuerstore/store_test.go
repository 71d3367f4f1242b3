/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuerstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/stretchr/testify/require"

	bcerrors "github.com/trustbloc/blockcerts-verifier/pkg/errors"
	"github.com/trustbloc/blockcerts-verifier/pkg/internal/testutil/mongodbtestutil"
	"github.com/trustbloc/blockcerts-verifier/pkg/issuer"
	"github.com/trustbloc/blockcerts-verifier/pkg/mocks"
	"github.com/trustbloc/blockcerts-verifier/pkg/store"
	"github.com/trustbloc/blockcerts-verifier/pkg/store/wrapper"
)

const profileURL = "https://issuer.example.com/issuer.json"

func TestNew(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s, err := New(mem.NewProvider(), &mockResolver{})
		require.NoError(t, err)
		require.NotNil(t, s)
	})

	t.Run("open store error", func(t *testing.T) {
		errExpected := errors.New("injected open store error")

		s, err := New(&mockProvider{Provider: mem.NewProvider(), openErr: errExpected}, &mockResolver{})
		require.ErrorIs(t, err, errExpected)
		require.Nil(t, s)
	})
}

func TestStore_MongoDB(t *testing.T) {
	connectionString := mongodbtestutil.StartMongoDB(t)

	p, err := store.NewProvider(store.DatabaseTypeMongoDB, connectionString, "issuerstore_test")
	require.NoError(t, err)

	defer func() {
		require.NoError(t, p.Close())
	}()

	metrics := mocks.NewMetricsProvider()
	wp := wrapper.NewProvider(p, store.DatabaseTypeMongoDB, metrics)

	require.NoError(t, wp.Ping())

	r := &mockResolver{profile: &issuer.Profile{ID: profileURL, Name: "Example University"}}

	s, err := New(wp, r)
	require.NoError(t, err)

	pr, err := s.Resolve(context.Background(), profileURL)
	require.NoError(t, err)
	require.Equal(t, "Example University", pr.Name)

	s2, err := New(wp, r)
	require.NoError(t, err)

	pr, err = s2.Resolve(context.Background(), profileURL)
	require.NoError(t, err)
	require.Equal(t, "Example University", pr.Name)
	require.Equal(t, 1, r.calls)
	require.Equal(t, 1, metrics.DBOpCount(store.DatabaseTypeMongoDB, "put"))
}

func TestStore_Resolve(t *testing.T) {
	profile := &issuer.Profile{ID: profileURL, Name: "Example University"}

	t.Run("fetch from remote -> stored", func(t *testing.T) {
		p := mem.NewProvider()
		r := &mockResolver{profile: profile}

		s, err := New(p, r)
		require.NoError(t, err)

		pr, err := s.Resolve(context.Background(), profileURL)
		require.NoError(t, err)
		require.Equal(t, "Example University", pr.Name)

		// Served from the cache.
		_, err = s.Resolve(context.Background(), profileURL)
		require.NoError(t, err)
		require.Equal(t, 1, r.calls)

		// A new store on the same provider finds the profile in the DB.
		s2, err := New(p, r)
		require.NoError(t, err)

		pr, err = s2.Resolve(context.Background(), profileURL)
		require.NoError(t, err)
		require.Equal(t, profileURL, pr.ID)
		require.Equal(t, 1, r.calls)
	})

	t.Run("stale profile is refreshed", func(t *testing.T) {
		p := mem.NewProvider()
		r := &mockResolver{profile: profile}

		now := time.Now()

		s, err := New(p, r, WithMaxAge(time.Minute), WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		_, err = s.Resolve(context.Background(), profileURL)
		require.NoError(t, err)

		s2, err := New(p, r, WithMaxAge(time.Minute),
			WithClock(func() time.Time { return now.Add(2 * time.Minute) }))
		require.NoError(t, err)

		_, err = s2.Resolve(context.Background(), profileURL)
		require.NoError(t, err)
		require.Equal(t, 2, r.calls)
	})

	t.Run("stale profile and transient error -> stored profile", func(t *testing.T) {
		p := mem.NewProvider()

		now := time.Now()

		s, err := New(p, &mockResolver{profile: profile}, WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		_, err = s.Resolve(context.Background(), profileURL)
		require.NoError(t, err)

		s2, err := New(p, &mockResolver{err: bcerrors.NewTransientf("injected transient error")},
			WithMaxAge(time.Minute), WithClock(func() time.Time { return now.Add(time.Hour) }))
		require.NoError(t, err)

		pr, err := s2.Resolve(context.Background(), profileURL)
		require.NoError(t, err)
		require.Equal(t, "Example University", pr.Name)
	})

	t.Run("stale profile and persistent error -> error", func(t *testing.T) {
		p := mem.NewProvider()

		now := time.Now()

		s, err := New(p, &mockResolver{profile: profile}, WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		_, err = s.Resolve(context.Background(), profileURL)
		require.NoError(t, err)

		s2, err := New(p, &mockResolver{err: bcerrors.ErrContentNotFound},
			WithMaxAge(time.Minute), WithClock(func() time.Time { return now.Add(time.Hour) }))
		require.NoError(t, err)

		_, err = s2.Resolve(context.Background(), profileURL)
		require.ErrorIs(t, err, bcerrors.ErrContentNotFound)
	})

	t.Run("fetch from remote -> error", func(t *testing.T) {
		errExpected := errors.New("injected fetch error")

		s, err := New(mem.NewProvider(), &mockResolver{err: errExpected})
		require.NoError(t, err)

		_, err = s.Resolve(context.Background(), profileURL)
		require.ErrorIs(t, err, errExpected)
	})

	t.Run("DB get error -> error", func(t *testing.T) {
		errExpected := errors.New("injected get error")

		p := &mockProvider{Provider: mem.NewProvider(), getErr: errExpected}

		s, err := New(p, &mockResolver{profile: profile})
		require.NoError(t, err)

		_, err = s.Resolve(context.Background(), profileURL)
		require.ErrorIs(t, err, errExpected)
	})

	t.Run("DB put error -> profile returned", func(t *testing.T) {
		p := &mockProvider{Provider: mem.NewProvider(), putErr: errors.New("injected put error")}

		s, err := New(p, &mockResolver{profile: profile})
		require.NoError(t, err)

		pr, err := s.Resolve(context.Background(), profileURL)
		require.NoError(t, err)
		require.NotNil(t, pr)
	})
}

type mockResolver struct {
	profile *issuer.Profile
	err     error
	calls   int
}

func (m *mockResolver) Resolve(context.Context, string) (*issuer.Profile, error) {
	m.calls++

	if m.err != nil {
		return nil, m.err
	}

	return m.profile, nil
}

type mockProvider struct {
	storage.Provider

	openErr error
	getErr  error
	putErr  error
}

func (p *mockProvider) OpenStore(name string) (storage.Store, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}

	s, err := p.Provider.OpenStore(name)
	if err != nil {
		return nil, err
	}

	return &mockStore{Store: s, getErr: p.getErr, putErr: p.putErr}, nil
}

type mockStore struct {
	storage.Store

	getErr error
	putErr error
}

func (s *mockStore) Get(key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}

	return s.Store.Get(key)
}

func (s *mockStore) Put(key string, value []byte, tags ...storage.Tag) error {
	if s.putErr != nil {
		return s.putErr
	}

	return s.Store.Put(key, value, tags...)
}
