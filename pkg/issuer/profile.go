/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/trustbloc/blockcerts-verifier/pkg/internal/timeutil"
)

// PublicKeyPrefix is the scheme prefix of bitcoin issuing addresses in issuer profiles.
const PublicKeyPrefix = "ecdsa-koblitz-pubkey:"

var (
	// ErrNoKeys is returned when the issuer profile publishes no keys.
	ErrNoKeys = errors.New("issuer profile has no public keys")

	// ErrKeyNotFound is returned when no issuer key matches the issuing address.
	ErrKeyNotFound = errors.New("no issuer key matches the issuing address")

	// ErrKeyNotValid is returned when the matching key was not valid at the signing date.
	ErrKeyNotValid = errors.New("issuer key was not valid at the signing date")
)

// PublicKey is an entry of the publicKey array of a v2/v3 issuer profile.
type PublicKey struct {
	ID      string `json:"id"`
	Created string `json:"created,omitempty"`
	Expires string `json:"expires,omitempty"`
	Revoked string `json:"revoked,omitempty"`
}

// LegacyKey is an entry of the issuerKeys or revocationKeys array of a v1 issuer profile.
type LegacyKey struct {
	Key  string `json:"key"`
	Date string `json:"date,omitempty"`
}

// Profile is an issuer profile (identification) document.
type Profile struct {
	Context         interface{}  `json:"@context,omitempty"`
	ID              string       `json:"id"`
	Type            interface{}  `json:"type,omitempty"`
	Name            string       `json:"name,omitempty"`
	URL             string       `json:"url,omitempty"`
	Email           string       `json:"email,omitempty"`
	Image           string       `json:"image,omitempty"`
	IntroductionURL string       `json:"introductionURL,omitempty"`
	RevocationList  string       `json:"revocationList,omitempty"`
	PublicKeys      []*PublicKey `json:"publicKey,omitempty"`
	IssuerKeys      []*LegacyKey `json:"issuerKeys,omitempty"`
	RevocationKeys  []*LegacyKey `json:"revocationKeys,omitempty"`
}

// ParseProfile unmarshals an issuer profile.
func ParseProfile(data []byte) (*Profile, error) {
	p := &Profile{}

	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("unmarshal issuer profile: %w", err)
	}

	return p, nil
}

// Domain returns the host of the profile URL, or of the profile ID if no URL is set.
func (p *Profile) Domain() string {
	for _, v := range []string{p.URL, p.ID} {
		u, err := url.Parse(v)
		if err == nil && u.Host != "" {
			return u.Host
		}
	}

	return ""
}

// Key is a parsed issuer key.
type Key struct {
	PublicKey string     `json:"publicKey"`
	Created   *time.Time `json:"created,omitempty"`
	Expires   *time.Time `json:"expires,omitempty"`
	Revoked   *time.Time `json:"revoked,omitempty"`
}

// ParseKeys extracts the keys of the given profile. The v2/v3 publicKey array takes precedence over the
// v1 issuerKeys array.
func ParseKeys(p *Profile) ([]*Key, error) {
	var keys []*Key

	if len(p.PublicKeys) > 0 {
		for _, pk := range p.PublicKeys {
			k, err := parsePublicKey(pk)
			if err != nil {
				return nil, err
			}

			keys = append(keys, k)
		}
	} else {
		for _, lk := range p.IssuerKeys {
			created, err := timeutil.ParseOptional(lk.Date)
			if err != nil {
				return nil, fmt.Errorf("issuer key [%s]: %w", lk.Key, err)
			}

			keys = append(keys, &Key{PublicKey: strings.TrimPrefix(lk.Key, PublicKeyPrefix), Created: created})
		}
	}

	if len(keys) == 0 {
		return nil, ErrNoKeys
	}

	return keys, nil
}

func parsePublicKey(pk *PublicKey) (*Key, error) {
	created, err := timeutil.ParseOptional(pk.Created)
	if err != nil {
		return nil, fmt.Errorf("created date of key [%s]: %w", pk.ID, err)
	}

	expires, err := timeutil.ParseOptional(pk.Expires)
	if err != nil {
		return nil, fmt.Errorf("expiry date of key [%s]: %w", pk.ID, err)
	}

	revoked, err := timeutil.ParseOptional(pk.Revoked)
	if err != nil {
		return nil, fmt.Errorf("revocation date of key [%s]: %w", pk.ID, err)
	}

	return &Key{
		PublicKey: strings.TrimPrefix(pk.ID, PublicKeyPrefix),
		Created:   created,
		Expires:   expires,
		Revoked:   revoked,
	}, nil
}

// SelectKey returns the key matching the issuing address that was valid at the signing date. When several keys
// match, the most recent key created at or before the signing date is selected.
func SelectKey(keys []*Key, address string, signingDate time.Time) (*Key, error) {
	var candidates []*Key

	for _, k := range keys {
		if sameAddress(k.PublicKey, address) {
			candidates = append(candidates, k)
		}
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w [%s]", ErrKeyNotFound, address)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return createdAt(candidates[i]).After(createdAt(candidates[j]))
	})

	for _, k := range candidates {
		if k.Created != nil && k.Created.After(signingDate) {
			continue
		}

		if k.Revoked != nil && !signingDate.Before(*k.Revoked) {
			return nil, fmt.Errorf("%w: key [%s] revoked at %s", ErrKeyNotValid, k.PublicKey, k.Revoked)
		}

		if k.Expires != nil && !signingDate.Before(*k.Expires) {
			return nil, fmt.Errorf("%w: key [%s] expired at %s", ErrKeyNotValid, k.PublicKey, k.Expires)
		}

		return k, nil
	}

	return nil, fmt.Errorf("%w: no key for [%s] created before %s", ErrKeyNotValid, address, signingDate)
}

func createdAt(k *Key) time.Time {
	if k.Created == nil {
		return time.Time{}
	}

	return *k.Created
}

// Ethereum addresses are case-insensitive, bitcoin addresses are not.
func sameAddress(a, b string) bool {
	if strings.HasPrefix(a, "0x") && strings.HasPrefix(b, "0x") {
		return strings.EqualFold(a, b)
	}

	return a == b
}
