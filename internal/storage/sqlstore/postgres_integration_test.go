//go:build integration

package sqlstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"smp/internal/storage"
	"smp/internal/storage/sqlstore"
	"smp/internal/storage/storagetest"
	"smp/pkg/testutil/containers"
)

func TestPostgresDocumentStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	suite.Run(t, &storagetest.DocumentStoreSuite{
		NewStore: func() storage.DocumentStore {
			store, err := sqlstore.Open(context.Background(), sqlstore.Postgres, pg.DSN)
			require.NoError(t, err)
			// each test starts from an empty table
			_, err = store.DB().ExecContext(context.Background(), "DELETE FROM smp_documents")
			require.NoError(t, err)
			return store
		},
	})
}
