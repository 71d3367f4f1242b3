/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

const assertionIDParam = "assertionId"

// RevokedAssertion is an entry of a revocation list.
type RevokedAssertion struct {
	ID               string `json:"id"`
	RevocationReason string `json:"revocationReason,omitempty"`
}

// RevocationList is the list of credentials revoked by an issuer.
type RevocationList struct {
	Context           interface{}         `json:"@context,omitempty"`
	ID                string              `json:"id,omitempty"`
	Type              interface{}         `json:"type,omitempty"`
	Issuer            interface{}         `json:"issuer,omitempty"`
	RevokedAssertions []*RevokedAssertion `json:"revokedAssertions"`
}

// Find returns the first revoked assertion matching one of the given IDs, or nil.
func (l *RevocationList) Find(ids ...string) *RevokedAssertion {
	for _, a := range l.RevokedAssertions {
		for _, id := range ids {
			if id != "" && a.ID == id {
				return a
			}
		}
	}

	return nil
}

// RevocationFetcher fetches revocation lists.
type RevocationFetcher interface {
	FetchRevocationList(ctx context.Context, listURL, credentialID string) (*RevocationList, error)
}

// RevocationClient fetches revocation lists over HTTP.
type RevocationClient struct {
	*options
}

// NewRevocationClient returns a new revocation list client.
func NewRevocationClient(opts ...Option) *RevocationClient {
	return &RevocationClient{options: newOptions(opts)}
}

// FetchRevocationList fetches the revocation list at the given URL. The credential ID is passed
// as the assertionId query parameter so that issuers may return a filtered list.
func (c *RevocationClient) FetchRevocationList(ctx context.Context, listURL,
	credentialID string) (*RevocationList, error) {
	u, err := url.Parse(listURL)
	if err != nil {
		return nil, fmt.Errorf("parse revocation list URL [%s]: %w", listURL, err)
	}

	if credentialID != "" {
		q := u.Query()
		q.Set(assertionIDParam, credentialID)
		u.RawQuery = q.Encode()
	}

	resp, err := c.get(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("get revocation list: %w", err)
	}

	list := &RevocationList{}

	if err := json.Unmarshal(resp.body, list); err != nil {
		return nil, fmt.Errorf("unmarshal revocation list: %w", err)
	}

	return list, nil
}
