/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mongodbtestutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	dctest "github.com/ory/dockertest/v3"
	dc "github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// EnableEnvKey must be set to true for the MongoDB tests to run. The tests require Docker.
	EnableEnvKey = "BLOCKCERTS_MONGODB_TESTS"

	image         = "mongo"
	tag           = "4.0.0"
	containerPort = "27017/tcp"
	maxWait       = 30 * time.Second
	pingTimeout   = 3 * time.Second
)

// StartMongoDB starts a MongoDB container and returns its connection string. The container is purged when
// the test completes. The test is skipped unless MongoDB tests are enabled.
func StartMongoDB(t *testing.T) string {
	t.Helper()

	if !strings.EqualFold(os.Getenv(EnableEnvKey), "true") {
		t.Skipf("MongoDB tests are disabled. Set %s=true to enable them.", EnableEnvKey)
	}

	pool, err := dctest.NewPool("")
	require.NoError(t, err)

	pool.MaxWait = maxWait

	resource, err := pool.RunWithOptions(&dctest.RunOptions{
		Repository: image,
		Tag:        tag,
		PortBindings: map[dc.Port][]dc.PortBinding{
			containerPort: {{HostIP: "", HostPort: ""}},
		},
	})
	require.NoError(t, err, "start MongoDB container")

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Error purging MongoDB container: %s", err)
		}
	})

	connectionString := fmt.Sprintf("mongodb://localhost:%s", resource.GetPort(containerPort))

	require.NoError(t, pool.Retry(func() error {
		return ping(connectionString)
	}), "MongoDB did not come up at %s", connectionString)

	return connectionString
}

func ping(connectionString string) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return err
	}

	defer client.Disconnect(context.Background()) //nolint:errcheck

	return client.Ping(ctx, nil)
}
