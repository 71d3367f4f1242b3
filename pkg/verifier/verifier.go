/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"
	"go.opentelemetry.io/otel/trace"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
	"github.com/trustbloc/blockcerts-verifier/pkg/certificate"
	"github.com/trustbloc/blockcerts-verifier/pkg/chain"
	"github.com/trustbloc/blockcerts-verifier/pkg/i18n"
	"github.com/trustbloc/blockcerts-verifier/pkg/issuer"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/tracing"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/status"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/suite"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/suite/merkleproof2017"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/suite/merkleproof2019"
)

var logger = log.New("verifier")

const (
	successMocknet    = "mocknet"
	successBlockchain = "blockchain"
	chainPlaceholder  = "{chain}"
	errUnsupportedKey = "unsupportedStep"
)

// suites maps each supported proof type to the constructor of its suite.
//
//nolint:gochecknoglobals
var suites = map[string]suite.Constructor{
	certificate.MerkleProof2017:    merkleproof2017.New,
	certificate.ChainpointSHA256v2: merkleproof2017.New,
	certificate.MerkleProof2019:    merkleproof2019.New,
}

// SupportedProofTypes returns true if every given proof type has a registered suite.
func SupportedProofTypes(proofTypes ...string) bool {
	return len(unsupportedTypes(proofTypes)) == 0
}

// FinalStep is the result of a verification.
type FinalStep struct {
	Code    steps.Code   `json:"code"`
	Status  steps.Status `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Signer describes the signer of one of the certificate's proofs. The blockchain fields are set
// only for proofs anchored in a blockchain transaction.
type Signer struct {
	SigningDate         string            `json:"signingDate,omitempty"`
	SignatureSuiteType  string            `json:"signatureSuiteType"`
	IssuerPublicKey     string            `json:"issuerPublicKey,omitempty"`
	IssuerName          string            `json:"issuerName,omitempty"`
	IssuerProfileDomain string            `json:"issuerProfileDomain,omitempty"`
	IssuerProfileURL    string            `json:"issuerProfileUrl,omitempty"`
	Chain               *chain.Blockchain `json:"chain,omitempty"`
	TransactionID       string            `json:"transactionId,omitempty"`
	TransactionLink     string            `json:"transactionLink,omitempty"`
	RawTransactionLink  string            `json:"rawTransactionLink,omitempty"`
}

type profileProvider interface {
	Profile() *issuer.Profile
}

// Engine verifies a certificate. Init must succeed before Verify is called. An engine runs
// one verification at a time; sequential calls to Verify start from a clean run.
type Engine struct {
	cert *certificate.Certificate
	opts *options
	text i18n.Provider

	mutex          sync.RWMutex
	initialized    bool
	suites         []suite.Suite
	tree           []*steps.Step
	process        []steps.Code
	statusHandlers map[steps.Code]status.Checker
	lastRecords    []*StepRecord

	verifying atomic.Bool
}

// New returns a verification engine for the given certificate.
func New(cert *certificate.Certificate, opts ...Option) *Engine {
	o := newOptions(opts)

	return &Engine{
		cert: cert,
		opts: o,
		text: i18n.New(o.locale),
	}
}

// Locale returns the resolved locale of labels and messages.
func (e *Engine) Locale() string {
	return e.text.Locale()
}

// Init creates and initializes one suite per proof and builds the verification steps. Proof types
// are validated before any suite is initialized.
func (e *Engine) Init(ctx context.Context) error {
	if !e.verifying.CompareAndSwap(false, true) {
		return ErrVerificationInProgress
	}

	defer e.verifying.Store(false)

	start := time.Now()

	defer func() {
		e.opts.metrics.VerifierInitTime(time.Since(start))
	}()

	if e.cert == nil || len(e.cert.Proofs) == 0 {
		return fmt.Errorf("init verifier: %w", ErrNoProof)
	}

	if unsupported := unsupportedTypes(e.cert.ProofTypes()); len(unsupported) > 0 {
		return fmt.Errorf("init verifier: %w: %s", ErrUnsupportedProofType, strings.Join(unsupported, ", "))
	}

	for _, code := range e.opts.statusChecks {
		if steps.DictionaryParent(code) == "" {
			return fmt.Errorf("init verifier: %w: %s", ErrUnsupportedStep, code)
		}
	}

	created, err := e.createSuites(ctx)
	if err != nil {
		return fmt.Errorf("init verifier: %w", err)
	}

	vm := steps.VerificationMap(e.text, e.opts.statusChecks)

	var tree []*steps.Step

	for _, step := range vm.Steps {
		if step.Code == steps.ProofVerification {
			for _, s := range created {
				step.Suites = append(step.Suites, &steps.SuiteSubsteps{
					ProofType: s.Type(),
					Substeps:  s.ProofVerificationSteps(steps.ProofVerification),
				})
			}
		}

		if step.IsEmpty() {
			continue
		}

		tree = append(tree, step)
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.suites = created
	e.tree = tree
	e.process = vm.Process
	e.statusHandlers = map[steps.Code]status.Checker{
		steps.CheckRevokedStatus: status.NewRevocationChecker(e.opts.revocationFetcher, e.text),
		steps.CheckExpiresDate:   status.NewExpiryChecker(e.opts.clock, e.text),
	}
	e.initialized = true

	logger.Debug("Initialized verifier", logfields.WithCredentialID(e.cert.ID),
		logfields.WithProofTypes(e.cert.ProofTypes()...), logfields.WithLocale(e.text.Locale()))

	return nil
}

func (e *Engine) createSuites(ctx context.Context) ([]suite.Suite, error) {
	created := make([]suite.Suite, 0, len(e.cert.Proofs))

	for _, proof := range e.cert.Proofs {
		s, err := suites[proof.Type](&suite.Context{
			Certificate:       e.cert,
			Proof:             proof,
			Text:              e.text,
			Lookup:            e.opts.lookup,
			IssuerResolver:    e.opts.issuerResolver,
			DIDResolver:       e.opts.didResolver,
			JSONCanonicalizer: e.opts.jsonCanonicalizer,
			LDCanonicalizer:   e.opts.ldCanonicalizer,
			Clock:             e.opts.clock,
		})
		if err != nil {
			return nil, fmt.Errorf("create suite for proof %d [%s]: %w", proof.Index, proof.Type, err)
		}

		if err := s.Init(ctx); err != nil {
			return nil, fmt.Errorf("init suite for proof %d [%s]: %w", proof.Index, proof.Type, err)
		}

		created = append(created, s)
	}

	return created, nil
}

// Verify runs the proof verification of every suite followed by the status checks. Step updates
// are published to the given callback, which may be nil. Once a step has failed, the remaining
// steps are skipped. An error is returned only if the engine is not initialized or is busy.
func (e *Engine) Verify(ctx context.Context, cb ProgressCallback) (*FinalStep, error) {
	if !e.verifying.CompareAndSwap(false, true) {
		return nil, ErrVerificationInProgress
	}

	defer e.verifying.Store(false)

	e.mutex.RLock()
	initialized := e.initialized
	e.mutex.RUnlock()

	if !initialized {
		return nil, ErrNotInitialized
	}

	start := time.Now()

	r := newRun(e.tree, cb, e.opts.tracer, e.opts.metrics, e.cert.ID)

	ctx, span := e.opts.tracer.Start(ctx, "verify certificate",
		trace.WithAttributes(tracing.RunIDAttribute(r.id), tracing.CredentialIDAttribute(e.cert.ID)))
	defer span.End()

	r.logger.Debug("Starting verification")

	for _, s := range e.suites {
		proofStart := time.Now()

		s.VerifyProof(ctx, r)

		e.opts.metrics.VerifierProofVerificationTime(s.Type(), time.Since(proofStart))
	}

	e.checkStatus(ctx, r)

	result := e.finalStep(r)

	e.mutex.Lock()
	e.lastRecords = r.snapshot()
	e.mutex.Unlock()

	e.opts.metrics.VerifierVerifyTime(time.Since(start))
	e.opts.metrics.VerifierIncrementResultCount(string(result.Status))

	r.logger.Info("Verification completed", logfields.WithStepStatus(string(result.Status)))

	return result, nil
}

// checkStatus dispatches each configured status check to its handler in declared order. A code
// without a handler fails the run.
func (e *Engine) checkStatus(ctx context.Context, r *run) {
	start := time.Now()

	defer func() {
		e.opts.metrics.VerifierStatusCheckTime(time.Since(start))
	}()

	subject := &status.Subject{
		Certificate:       e.cert,
		RevocationListURL: e.revocationListURL(),
	}

	for _, code := range e.process {
		if r.failed {
			return
		}

		handler, ok := e.statusHandlers[code]
		if !ok {
			msg := fmt.Sprintf("%s: %s", e.text.Text(i18n.GroupErrors, errUnsupportedKey), code)

			r.logger.Error("No handler for status check", logfields.WithStepCode(string(code)))

			r.fail(code, msg)

			return
		}

		handler.Check(ctx, r, subject)
	}
}

// revocationListURL returns the revocation list of the first issuer profile that publishes one.
func (e *Engine) revocationListURL() string {
	for _, s := range e.suites {
		pp, ok := s.(profileProvider)
		if !ok {
			continue
		}

		if p := pp.Profile(); p != nil && p.RevocationList != "" {
			return p.RevocationList
		}
	}

	return ""
}

func (e *Engine) finalStep(r *run) *FinalStep {
	if failure := r.firstFailure(); failure != nil {
		return &FinalStep{Code: steps.Final, Status: steps.Failure, Message: failure.Message}
	}

	return &FinalStep{Code: steps.Final, Status: steps.Success, Message: e.successMessage()}
}

// successMessage returns the chain-specific message of a certificate with a single anchored proof.
func (e *Engine) successMessage() string {
	if len(e.suites) != 1 {
		return ""
	}

	anchored, ok := e.suites[0].(suite.BlockchainAnchored)
	if !ok || anchored.Chain() == nil {
		return ""
	}

	bc := anchored.Chain()

	if bc.IsMockChain() {
		return e.text.Text(i18n.GroupSuccess, successMocknet)
	}

	return strings.ReplaceAll(e.text.Text(i18n.GroupSuccess, successBlockchain), chainPlaceholder, bc.Name)
}

// SignersData returns the signer of each proof. It is valid once Init has succeeded.
func (e *Engine) SignersData() []*Signer {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	signers := make([]*Signer, len(e.suites))

	for i, s := range e.suites {
		signer := &Signer{
			SigningDate:         s.SigningDate(),
			SignatureSuiteType:  s.Type(),
			IssuerPublicKey:     s.IssuerPublicKey(),
			IssuerName:          s.IssuerName(),
			IssuerProfileDomain: s.IssuerProfileDomain(),
			IssuerProfileURL:    s.IssuerProfileURL(),
		}

		if anchored, ok := s.(suite.BlockchainAnchored); ok {
			signer.Chain = anchored.Chain()
			signer.TransactionID = anchored.TransactionID()
			signer.TransactionLink = anchored.TransactionLink()
			signer.RawTransactionLink = anchored.RawTransactionLink()
		}

		signers[i] = signer
	}

	return signers
}

// VerificationSteps returns a copy of the verification steps built by Init.
func (e *Engine) VerificationSteps() []*steps.Step {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return steps.Clone(e.tree)
}

// Records returns the step records of the last completed verification.
func (e *Engine) Records() []*StepRecord {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return append([]*StepRecord(nil), e.lastRecords...)
}

func unsupportedTypes(proofTypes []string) []string {
	var unsupported []string

	for _, t := range proofTypes {
		if _, ok := suites[t]; !ok {
			unsupported = append(unsupported, t)
		}
	}

	return unsupported
}
