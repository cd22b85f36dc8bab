package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"smp/internal/storage"
	"smp/internal/storage/sqlstore"
	"smp/internal/storage/storagetest"
)

func TestSQLiteDocumentStore(t *testing.T) {
	suite.Run(t, &storagetest.DocumentStoreSuite{
		NewStore: func() storage.DocumentStore {
			path := filepath.Join(t.TempDir(), "smp.db")
			store, err := sqlstore.Open(context.Background(), sqlstore.SQLite, path)
			require.NoError(t, err)
			return store
		},
	})
}

func TestSQLiteReopenKeepsDocuments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "smp.db")

	store, err := sqlstore.Open(ctx, sqlstore.SQLite, path)
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, "groups", "k", []byte(`{"owner":"alice"}`)))
	require.NoError(t, store.Close())

	reopened, err := sqlstore.Open(ctx, sqlstore.SQLite, path)
	require.NoError(t, err)
	defer reopened.Close()

	doc, err := reopened.Get(ctx, "groups", "k")
	require.NoError(t, err)
	require.JSONEq(t, `{"owner":"alice"}`, string(doc))
}
