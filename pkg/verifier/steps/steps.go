/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package steps

import (
	"github.com/trustbloc/blockcerts-verifier/pkg/i18n"
)

// Code identifies a verification step or substep.
type Code string

// Verification phases.
const (
	FormatValidation  Code = "formatValidation"
	ProofVerification Code = "proofVerification"
	StatusCheck       Code = "statusCheck"
	Final             Code = "final"
)

// Verification substeps.
const (
	GetTransactionID     Code = "getTransactionId"
	ComputeLocalHash     Code = "computeLocalHash"
	FetchRemoteHash      Code = "fetchRemoteHash"
	GetIssuerProfile     Code = "getIssuerProfile"
	ParseIssuerKeys      Code = "parseIssuerKeys"
	CompareHashes        Code = "compareHashes"
	CheckMerkleRoot      Code = "checkMerkleRoot"
	CheckReceipt         Code = "checkReceipt"
	CheckIssuerSignature Code = "checkIssuerSignature"
	CheckAuthenticity    Code = "checkAuthenticity"
	CheckRevokedStatus   Code = "checkRevokedStatus"
	CheckExpiresDate     Code = "checkExpiresDate"
)

// Status is the status of a step.
type Status string

// Step statuses.
const (
	Starting Status = "starting"
	Success  Status = "success"
	Failure  Status = "failure"
)

const (
	labelSuffix        = "Label"
	labelPendingSuffix = "LabelPending"
)

// DefaultStatusChecks are the status-check substeps run after proof verification.
//
//nolint:gochecknoglobals
var DefaultStatusChecks = []Code{CheckRevokedStatus, CheckExpiresDate}

//nolint:gochecknoglobals
var parentSteps = []Code{FormatValidation, ProofVerification, StatusCheck}

// The substep dictionary: each substep and the phase it belongs to.
//
//nolint:gochecknoglobals
var substepsByParent = map[Code][]Code{
	FormatValidation:  {GetTransactionID, ComputeLocalHash, FetchRemoteHash, GetIssuerProfile, ParseIssuerKeys},
	ProofVerification: {CompareHashes, CheckMerkleRoot, CheckReceipt},
	StatusCheck:       {CheckIssuerSignature, CheckAuthenticity, CheckRevokedStatus, CheckExpiresDate},
}

// Substeps that may be configured for each phase.
//
//nolint:gochecknoglobals
var candidates = map[Code][]Code{
	FormatValidation:  nil,
	ProofVerification: nil,
	StatusCheck:       {CheckRevokedStatus, CheckExpiresDate},
}

// Substep describes a verification substep.
type Substep struct {
	Code         Code   `json:"code"`
	Label        string `json:"label"`
	LabelPending string `json:"labelPending"`
	ParentStep   Code   `json:"parentStep"`
}

// SuiteSubsteps are the substeps declared by one proof suite.
type SuiteSubsteps struct {
	ProofType string     `json:"proofType"`
	Substeps  []*Substep `json:"subSteps"`
}

// Step is a verification phase.
type Step struct {
	Code         Code             `json:"code"`
	Label        string           `json:"label"`
	LabelPending string           `json:"labelPending"`
	Substeps     []*Substep       `json:"subSteps"`
	Suites       []*SuiteSubsteps `json:"suites,omitempty"`
}

// IsEmpty returns true if the step has neither substeps nor suite substeps.
func (s *Step) IsEmpty() bool {
	return len(s.Substeps) == 0 && len(s.Suites) == 0
}

// Map is the verification map.
type Map struct {
	// Process lists the configured status-check substeps in execution order.
	Process []Code
	Steps   []*Step
}

// ParentVerificationSteps returns the verification phases with no substeps.
func ParentVerificationSteps(text i18n.Provider) []*Step {
	result := make([]*Step, len(parentSteps))

	for i, code := range parentSteps {
		result[i] = &Step{
			Code:         code,
			Label:        text.Text(i18n.GroupSteps, string(code)+labelSuffix),
			LabelPending: text.Text(i18n.GroupSteps, string(code)+labelPendingSuffix),
		}
	}

	return result
}

// VerificationMap returns the verification phases populated with the configured status checks that are
// applicable to each phase. Process keeps every configured code, including codes that apply to no phase.
func VerificationMap(text i18n.Provider, statusChecks []Code) *Map {
	result := ParentVerificationSteps(text)

	for _, step := range result {
		for _, candidate := range candidates[step.Code] {
			if contains(statusChecks, candidate) {
				step.Substeps = append(step.Substeps, ConvertToSubstep(step.Code, candidate, text))
			}
		}
	}

	return &Map{
		Process: append([]Code(nil), statusChecks...),
		Steps:   result,
	}
}

// ConvertToSubstep returns the substep with the given code placed under the given parent step.
func ConvertToSubstep(parent, code Code, text i18n.Provider) *Substep {
	return &Substep{
		Code:         code,
		Label:        text.Text(i18n.GroupSubSteps, string(code)+labelSuffix),
		LabelPending: text.Text(i18n.GroupSubSteps, string(code)+labelPendingSuffix),
		ParentStep:   parent,
	}
}

// NewSubstep returns the substep with the given code under its parent from the substep dictionary.
func NewSubstep(code Code, text i18n.Provider) *Substep {
	return ConvertToSubstep(DictionaryParent(code), code, text)
}

// DictionaryParent returns the parent phase of the given substep, or an empty code if the substep is unknown.
func DictionaryParent(code Code) Code {
	for parent, codes := range substepsByParent {
		if contains(codes, code) {
			return parent
		}
	}

	return ""
}

// FindSubstep returns the substep with the given code from the step tree. Suite substeps are searched only
// for the given proof type (or for all suites if the proof type is empty).
func FindSubstep(code Code, tree []*Step, proofType string) *Substep {
	for _, step := range tree {
		for _, s := range step.Substeps {
			if s.Code == code {
				return s
			}
		}

		for _, suite := range step.Suites {
			if proofType != "" && suite.ProofType != proofType {
				continue
			}

			for _, s := range suite.Substeps {
				if s.Code == code {
					return s
				}
			}
		}
	}

	return nil
}

// Clone returns a deep copy of the given steps.
func Clone(tree []*Step) []*Step {
	if tree == nil {
		return nil
	}

	result := make([]*Step, len(tree))

	for i, step := range tree {
		c := *step
		c.Substeps = cloneSubsteps(step.Substeps)

		if step.Suites != nil {
			c.Suites = make([]*SuiteSubsteps, len(step.Suites))

			for j, suite := range step.Suites {
				c.Suites[j] = &SuiteSubsteps{ProofType: suite.ProofType, Substeps: cloneSubsteps(suite.Substeps)}
			}
		}

		result[i] = &c
	}

	return result
}

func cloneSubsteps(substeps []*Substep) []*Substep {
	if substeps == nil {
		return nil
	}

	result := make([]*Substep, len(substeps))

	for i, s := range substeps {
		c := *s
		result[i] = &c
	}

	return result
}

func contains(codes []Code, code Code) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}

	return false
}
