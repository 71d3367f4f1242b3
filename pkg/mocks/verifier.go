/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hyperledger/aries-framework-go/pkg/doc/did"

	"github.com/trustbloc/blockcerts-verifier/pkg/chain"
	bcerrors "github.com/trustbloc/blockcerts-verifier/pkg/errors"
	"github.com/trustbloc/blockcerts-verifier/pkg/explorer"
	"github.com/trustbloc/blockcerts-verifier/pkg/issuer"
)

// TxLookup is a mock transaction lookup.
type TxLookup struct {
	mutex   sync.Mutex
	txns    map[string]*explorer.TransactionData
	err     error
	lookups int
}

// NewTxLookup returns a mock transaction lookup.
func NewTxLookup() *TxLookup {
	return &TxLookup{txns: make(map[string]*explorer.TransactionData)}
}

// WithTransaction adds transaction data for the given transaction ID.
func (m *TxLookup) WithTransaction(txID string, data *explorer.TransactionData) *TxLookup {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.txns[txID] = data

	return m
}

// WithError causes LookForTx to return the given error.
func (m *TxLookup) WithError(err error) *TxLookup {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.err = err

	return m
}

// LookForTx returns the transaction data for the given ID.
func (m *TxLookup) LookForTx(_ context.Context, txID string, _ *chain.Blockchain) (*explorer.TransactionData, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.lookups++

	if m.err != nil {
		return nil, m.err
	}

	data, ok := m.txns[txID]
	if !ok {
		return nil, fmt.Errorf("transaction [%s]: %w", txID, bcerrors.ErrContentNotFound)
	}

	return data, nil
}

// Lookups returns the number of times LookForTx was called.
func (m *TxLookup) Lookups() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.lookups
}

// ProfileResolver is a mock issuer profile resolver.
type ProfileResolver struct {
	mutex    sync.Mutex
	profiles map[string]*issuer.Profile
	err      error
	resolves int
}

// NewProfileResolver returns a mock issuer profile resolver.
func NewProfileResolver() *ProfileResolver {
	return &ProfileResolver{profiles: make(map[string]*issuer.Profile)}
}

// WithProfile adds the profile for the given URL.
func (m *ProfileResolver) WithProfile(profileURL string, profile *issuer.Profile) *ProfileResolver {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.profiles[profileURL] = profile

	return m
}

// WithProfileJSON adds the profile for the given URL from its JSON representation.
func (m *ProfileResolver) WithProfileJSON(profileURL string, profileJSON []byte) *ProfileResolver {
	profile, err := issuer.ParseProfile(profileJSON)
	if err != nil {
		panic(err)
	}

	return m.WithProfile(profileURL, profile)
}

// WithError causes Resolve to return the given error.
func (m *ProfileResolver) WithError(err error) *ProfileResolver {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.err = err

	return m
}

// Resolve returns the profile for the given URL.
func (m *ProfileResolver) Resolve(_ context.Context, profileURL string) (*issuer.Profile, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.resolves++

	if m.err != nil {
		return nil, m.err
	}

	p, ok := m.profiles[profileURL]
	if !ok {
		return nil, fmt.Errorf("%s: %w", profileURL, bcerrors.ErrContentNotFound)
	}

	return p, nil
}

// Resolves returns the number of times Resolve was called.
func (m *ProfileResolver) Resolves() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.resolves
}

// RevocationFetcher is a mock revocation list fetcher.
type RevocationFetcher struct {
	mutex   sync.Mutex
	lists   map[string]*issuer.RevocationList
	err     error
	fetches int
}

// NewRevocationFetcher returns a mock revocation list fetcher.
func NewRevocationFetcher() *RevocationFetcher {
	return &RevocationFetcher{lists: make(map[string]*issuer.RevocationList)}
}

// WithList adds the revocation list for the given URL.
func (m *RevocationFetcher) WithList(listURL string, list *issuer.RevocationList) *RevocationFetcher {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.lists[listURL] = list

	return m
}

// WithError causes FetchRevocationList to return the given error.
func (m *RevocationFetcher) WithError(err error) *RevocationFetcher {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.err = err

	return m
}

// FetchRevocationList returns the list for the given URL.
func (m *RevocationFetcher) FetchRevocationList(_ context.Context, listURL, _ string) (*issuer.RevocationList, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.fetches++

	if m.err != nil {
		return nil, m.err
	}

	l, ok := m.lists[listURL]
	if !ok {
		return nil, fmt.Errorf("%s: %w", listURL, bcerrors.ErrContentNotFound)
	}

	return l, nil
}

// Fetches returns the number of times FetchRevocationList was called.
func (m *RevocationFetcher) Fetches() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.fetches
}

// DIDResolver is a mock DID resolver.
type DIDResolver struct {
	mutex sync.Mutex
	docs  map[string]*did.Doc
	err   error
}

// NewDIDResolver returns a mock DID resolver.
func NewDIDResolver() *DIDResolver {
	return &DIDResolver{docs: make(map[string]*did.Doc)}
}

// WithDocument adds a DID document.
func (m *DIDResolver) WithDocument(doc *did.Doc) *DIDResolver {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.docs[doc.ID] = doc

	return m
}

// WithError causes Resolve to return the given error.
func (m *DIDResolver) WithError(err error) *DIDResolver {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.err = err

	return m
}

// Resolve returns the document for the given DID.
func (m *DIDResolver) Resolve(_ context.Context, didID string) (*did.Doc, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	doc, ok := m.docs[didID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", didID, bcerrors.ErrContentNotFound)
	}

	return doc, nil
}

// Canonicalizer is a mock canonicalizer which serializes the document with encoding/json,
// which sorts map keys.
type Canonicalizer struct {
	err error
}

// NewCanonicalizer returns a mock canonicalizer.
func NewCanonicalizer() *Canonicalizer {
	return &Canonicalizer{}
}

// WithError causes Canonicalize to return the given error.
func (m *Canonicalizer) WithError(err error) *Canonicalizer {
	m.err = err

	return m
}

// Canonicalize returns the JSON serialization of the document.
func (m *Canonicalizer) Canonicalize(doc map[string]interface{}) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}

	return json.Marshal(doc)
}
