/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package timeutil

import (
	"fmt"
	"strings"
	"time"
)

//nolint:gochecknoglobals
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Parse parses an ISO-8601 date as found in credentials and issuer profiles. Values without a zone are UTC.
func Parse(value string) (time.Time, error) {
	v := strings.TrimSpace(value)

	for _, layout := range layouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date [%s]", value)
}

// ParseOptional parses the given value, returning nil if the value is empty.
func ParseOptional(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil //nolint:nilnil
	}

	t, err := Parse(value)
	if err != nil {
		return nil, err
	}

	return &t, nil
}
