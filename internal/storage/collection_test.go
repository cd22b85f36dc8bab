package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smp/internal/storage"
	"smp/internal/storage/memory"
	"smp/pkg/platform/sentinel"
)

type widget struct {
	ID    string   `json:"id"`
	Owner string   `json:"owner"`
	Tags  []string `json:"tags,omitempty"`
}

func (w widget) StorageKey() string { return w.ID }

func TestCollection(t *testing.T) {
	ctx := context.Background()
	c := storage.NewCollection[widget](memory.New(), "widgets")

	require.NoError(t, c.Insert(ctx, widget{ID: "a", Owner: "alice", Tags: []string{"x"}}))
	require.NoError(t, c.Insert(ctx, widget{ID: "b", Owner: "bob"}))
	require.NoError(t, c.Insert(ctx, widget{ID: "c", Owner: "alice"}))

	t.Run("find by key decodes the entity", func(t *testing.T) {
		got, err := c.FindByKey(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, widget{ID: "a", Owner: "alice", Tags: []string{"x"}}, *got)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := c.FindByKey(ctx, "zzz")
		require.ErrorIs(t, err, sentinel.ErrNotFound)
		assert.True(t, storage.IsNotFound(err))
	})

	t.Run("predicates filter find all and count", func(t *testing.T) {
		owned := func(w widget) bool { return w.Owner == "alice" }
		all, err := c.FindAll(ctx, owned)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		n, err := c.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("replace returns previous", func(t *testing.T) {
		prev, err := c.Replace(ctx, widget{ID: "b", Owner: "carol"})
		require.NoError(t, err)
		require.NotNil(t, prev)
		assert.Equal(t, "bob", prev.Owner)

		prev, err = c.Replace(ctx, widget{ID: "d", Owner: "dave"})
		require.NoError(t, err)
		assert.Nil(t, prev)
	})

	t.Run("stored values are not aliased", func(t *testing.T) {
		got, err := c.FindByKey(ctx, "a")
		require.NoError(t, err)
		got.Tags[0] = "mutated"

		again, err := c.FindByKey(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "x", again.Tags[0])
	})
}

func TestOpen(t *testing.T) {
	store, err := storage.Open(context.Background(), storage.Config{Driver: "memory"})
	require.NoError(t, err)
	assert.NoError(t, store.Ping(context.Background()))

	_, err = storage.Open(context.Background(), storage.Config{Driver: "cassandra"})
	require.Error(t, err)

	_, err = storage.Open(context.Background(), storage.Config{Driver: "postgres"})
	require.Error(t, err, "postgres without a DSN")
}
