/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"errors"

	"github.com/trustbloc/blockcerts-verifier/pkg/certificate"
)

var (
	// ErrNoProof is returned from Init when the certificate carries no proof.
	ErrNoProof = certificate.ErrNoProof

	// ErrUnsupportedProofType is returned from Init when a proof type has no registered suite.
	ErrUnsupportedProofType = errors.New("unsupported proof type")

	// ErrUnsupportedStep is returned from Init when a configured status check is not a known substep.
	ErrUnsupportedStep = errors.New("unsupported verification step")

	// ErrNotInitialized is returned from Verify when Init has not succeeded.
	ErrNotInitialized = errors.New("verifier is not initialized")

	// ErrVerificationInProgress is returned when a verification is already running on the engine.
	ErrVerificationInProgress = errors.New("verification already in progress")
)
