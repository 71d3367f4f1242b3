/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"fmt"
	"strings"

	"github.com/hyperledger/aries-framework-go-ext/component/storage/mongodb"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/trustbloc/logutil-go/pkg/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
)

var logger = log.New("store")

// Supported database types.
const (
	DatabaseTypeMem     = "mem"
	DatabaseTypeMongoDB = "mongodb"
)

// TagGroup defines a group of tags that may be used to create a compound index.
type TagGroup []string

// NewTagGroup is a convenience function that returns a TagGroup from the given set of tags.
func NewTagGroup(tags ...string) TagGroup {
	return tags
}

// NewProvider returns the storage provider for the given database type.
func NewProvider(databaseType, databaseURL, databasePrefix string) (storage.Provider, error) {
	switch {
	case strings.EqualFold(databaseType, DatabaseTypeMem):
		return mem.NewProvider(), nil
	case strings.EqualFold(databaseType, DatabaseTypeMongoDB):
		if databaseURL == "" {
			return nil, fmt.Errorf("database URL is required for database type [%s]", databaseType)
		}

		p, err := mongodb.NewProvider(databaseURL, mongodb.WithDBPrefix(databasePrefix))
		if err != nil {
			return nil, fmt.Errorf("create MongoDB provider: %w", err)
		}

		return p, nil
	default:
		return nil, fmt.Errorf("unsupported database type [%s]", databaseType)
	}
}

type mongoDBProvider interface {
	CreateCustomIndexes(storeName string, model ...mongo.IndexModel) error
}

// Open opens the store for the given namespace. On MongoDB a compound index is created for each tag group,
// other providers are configured with the union of the tags.
func Open(provider storage.Provider, namespace string, tagGroups ...TagGroup) (storage.Store, error) {
	s, err := provider.OpenStore(namespace)
	if err != nil {
		return nil, fmt.Errorf("open store [%s]: %w", namespace, err)
	}

	if mp, ok := provider.(mongoDBProvider); ok {
		if err := createIndexes(mp, namespace, tagGroups); err != nil {
			return nil, err
		}

		return s, nil
	}

	if len(tagGroups) == 0 {
		return s, nil
	}

	err = provider.SetStoreConfig(namespace, storage.StoreConfiguration{TagNames: uniqueTags(tagGroups)})
	if err != nil {
		return nil, fmt.Errorf("set store configuration for [%s]: %w", namespace, err)
	}

	return s, nil
}

func createIndexes(provider mongoDBProvider, namespace string, tagGroups []TagGroup) error {
	for _, tagGroup := range tagGroups {
		logger.Info("Creating MongoDB index", logfields.WithStoreName(namespace),
			logfields.WithParameter(strings.Join(tagGroup, ",")))

		keys := make(bson.D, len(tagGroup))

		for i, tag := range tagGroup {
			keys[i] = bson.E{Key: tag, Value: 1}
		}

		if err := provider.CreateCustomIndexes(namespace, mongo.IndexModel{Keys: keys}); err != nil {
			return fmt.Errorf("create index for [%s]: %w", namespace, err)
		}
	}

	return nil
}

func uniqueTags(tagGroups []TagGroup) []string {
	var tags []string

	seen := make(map[string]struct{})

	for _, group := range tagGroups {
		for _, tag := range group {
			if _, ok := seen[tag]; ok {
				continue
			}

			seen[tag] = struct{}{}

			tags = append(tags, tag)
		}
	}

	return tags
}
