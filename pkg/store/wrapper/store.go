/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wrapper

import (
	"time"

	"github.com/hyperledger/aries-framework-go/spi/storage"
)

// StoreWrapper times the reads, writes and queries of a store.
type StoreWrapper struct {
	storage.Store

	m      metricsProvider
	dbType string
}

// NewStore returns a new store wrapper.
func NewStore(s storage.Store, dbType string, m metricsProvider) *StoreWrapper {
	return &StoreWrapper{Store: s, m: m, dbType: dbType}
}

// Put stores the value.
func (s *StoreWrapper) Put(key string, value []byte, tags ...storage.Tag) error {
	start := time.Now()
	defer func() { s.m.DBPutTime(s.dbType, time.Since(start)) }()

	return s.Store.Put(key, value, tags...)
}

// Get retrieves the value.
func (s *StoreWrapper) Get(key string) ([]byte, error) {
	start := time.Now()
	defer func() { s.m.DBGetTime(s.dbType, time.Since(start)) }()

	return s.Store.Get(key)
}

// GetBulk retrieves the values of the given keys.
func (s *StoreWrapper) GetBulk(keys ...string) ([][]byte, error) {
	start := time.Now()
	defer func() { s.m.DBGetTime(s.dbType, time.Since(start)) }()

	return s.Store.GetBulk(keys...)
}

// Query runs the query.
func (s *StoreWrapper) Query(expression string, options ...storage.QueryOption) (storage.Iterator, error) {
	start := time.Now()
	defer func() { s.m.DBQueryTime(s.dbType, time.Since(start)) }()

	return s.Store.Query(expression, options...)
}
