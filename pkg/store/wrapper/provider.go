/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wrapper

import (
	"time"

	"github.com/hyperledger/aries-framework-go/spi/storage"
)

type metricsProvider interface {
	DBPutTime(dbType string, value time.Duration)
	DBGetTime(dbType string, value time.Duration)
	DBQueryTime(dbType string, value time.Duration)
}

type pinger interface {
	Ping() error
}

// ProviderWrapper wraps a storage provider so that the operations of its stores are timed.
type ProviderWrapper struct {
	storage.Provider

	dbType  string
	metrics metricsProvider
}

// NewProvider returns a new provider wrapper.
func NewProvider(p storage.Provider, dbType string, metrics metricsProvider) *ProviderWrapper {
	return &ProviderWrapper{Provider: p, dbType: dbType, metrics: metrics}
}

// OpenStore opens the store and wraps it.
func (p *ProviderWrapper) OpenStore(name string) (storage.Store, error) {
	s, err := p.Provider.OpenStore(name)
	if err != nil {
		return nil, err
	}

	return NewStore(s, p.dbType, p.metrics), nil
}

// Ping checks the connection to the database. Providers without a connection (such as the in-memory
// provider) are always reachable.
func (p *ProviderWrapper) Ping() error {
	if pp, ok := p.Provider.(pinger); ok {
		return pp.Ping()
	}

	return nil
}

// Unwrap returns the wrapped provider.
func (p *ProviderWrapper) Unwrap() storage.Provider {
	return p.Provider
}
