/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package i18n

import (
	_ "embed" // required for the embedded dictionaries
	"encoding/json"
	"fmt"
	"strings"

	"github.com/trustbloc/logutil-go/pkg/log"
	"golang.org/x/text/language"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
)

var logger = log.New("i18n")

// Text groups.
const (
	GroupSteps    = "steps"
	GroupSubSteps = "subSteps"
	GroupSuccess  = "success"
	GroupErrors   = "errors"
)

// Locales.
const (
	LocaleAuto    = "auto"
	DefaultLocale = "en-US"
)

// MissingText is returned for keys that are not present in the dictionary.
const MissingText = "[missing locale item data]"

//go:embed data/i18n.json
var dictionaryJSON []byte

type dictionary map[string]map[string]string

var (
	dictionaries     map[string]dictionary //nolint:gochecknoglobals
	supportedLocales []string              //nolint:gochecknoglobals
	matcher          language.Matcher      //nolint:gochecknoglobals
)

//nolint:gochecknoinits
func init() {
	if err := json.Unmarshal(dictionaryJSON, &dictionaries); err != nil {
		panic(fmt.Errorf("unmarshal embedded dictionaries: %w", err))
	}

	// The default locale must be first so that the matcher falls back to it.
	supportedLocales = []string{DefaultLocale}

	for locale := range dictionaries {
		if locale != DefaultLocale {
			supportedLocales = append(supportedLocales, locale)
		}
	}

	tags := make([]language.Tag, len(supportedLocales))
	for i, l := range supportedLocales {
		tags[i] = language.Make(l)
	}

	matcher = language.NewMatcher(tags)
}

// Provider returns localized strings.
type Provider interface {
	Locale() string
	Text(group, key string) string
}

// Texts is a Provider backed by one of the embedded dictionaries.
type Texts struct {
	locale string
	dict   dictionary
}

// New returns the text provider for the closest supported match of the given locale.
// "auto", an empty string and unknown locales resolve to en-US.
func New(locale string) *Texts {
	resolved := Resolve(locale)

	return &Texts{locale: resolved, dict: dictionaries[resolved]}
}

// Resolve returns the supported locale that best matches the given one.
func Resolve(locale string) string {
	if locale == "" || strings.EqualFold(locale, LocaleAuto) {
		return DefaultLocale
	}

	if _, ok := dictionaries[locale]; ok {
		return locale
	}

	tag, err := language.Parse(locale)
	if err != nil {
		logger.Debug("Unable to parse locale. Using default.", logfields.WithLocale(locale), log.WithError(err))

		return DefaultLocale
	}

	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return DefaultLocale
	}

	return supportedLocales[index]
}

// SupportedLocales returns the locales for which a dictionary exists.
func SupportedLocales() []string {
	return append([]string(nil), supportedLocales...)
}

// Locale returns the resolved locale.
func (t *Texts) Locale() string {
	return t.locale
}

// Text returns the string for the given group and key.
func (t *Texts) Text(group, key string) string {
	g, ok := t.dict[group]
	if !ok {
		return MissingText
	}

	v, ok := g[key]
	if !ok {
		return MissingText
	}

	return v
}
