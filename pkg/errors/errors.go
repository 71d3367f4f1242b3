/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package errors

import (
	"errors"
	"fmt"
)

// ErrContentNotFound is used to indicate that a remote resource (issuer profile, revocation list,
// transaction) does not exist at the given location.
var ErrContentNotFound = errors.New("content not found")

type kind int

const (
	kindTransient kind = iota
	kindBadRequest
)

func (k kind) String() string {
	if k == kindTransient {
		return "transient"
	}

	return "bad request"
}

// classified wraps an error with a kind so that callers can decide whether to retry
// or to report an invalid request.
type classified struct {
	kind kind
	err  error
}

func (e *classified) Error() string {
	return e.err.Error()
}

func (e *classified) Unwrap() error {
	return e.err
}

// NewTransient returns a transient error that wraps the given error in order to indicate to the caller that a retry may
// resolve the problem, whereas a non-transient (persistent) error will always fail with the same outcome if retried.
func NewTransient(err error) error {
	return &classified{kind: kindTransient, err: err}
}

// NewTransientf returns a transient error built from the given format.
func NewTransientf(format string, a ...interface{}) error {
	return NewTransient(fmt.Errorf(format, a...))
}

// IsTransient returns true if the given error is a 'transient' error.
func IsTransient(err error) bool {
	return isKind(err, kindTransient)
}

// NewBadRequest returns a 'bad request' error that wraps the given error in order to indicate to the caller that
// the submitted credential or request was invalid.
func NewBadRequest(err error) error {
	return &classified{kind: kindBadRequest, err: err}
}

// NewBadRequestf returns a 'bad request' error built from the given format.
func NewBadRequestf(format string, a ...interface{}) error {
	return NewBadRequest(fmt.Errorf(format, a...))
}

// IsBadRequest returns true if the given error is a 'bad request' error.
func IsBadRequest(err error) bool {
	return isKind(err, kindBadRequest)
}

func isKind(err error, k kind) bool {
	for err != nil {
		var c *classified

		if !errors.As(err, &c) {
			return false
		}

		if c.kind == k {
			return true
		}

		err = c.err
	}

	return false
}
