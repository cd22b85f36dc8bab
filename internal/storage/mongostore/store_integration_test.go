//go:build integration

package mongostore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"smp/internal/storage"
	"smp/internal/storage/mongostore"
	"smp/internal/storage/storagetest"
	"smp/pkg/testutil/containers"
)

func TestMongoDocumentStore(t *testing.T) {
	mongo := containers.NewMongoContainer(t)
	run := 0
	suite.Run(t, &storagetest.DocumentStoreSuite{
		NewStore: func() storage.DocumentStore {
			run++
			store, err := mongostore.Open(context.Background(), mongostore.Config{
				URI:      mongo.URI,
				Database: fmt.Sprintf("smp_test_%d", run),
			})
			require.NoError(t, err)
			return store
		},
	})
}
