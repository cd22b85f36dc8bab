// Package storagetest holds the behavioural suite every DocumentStore must pass.
package storagetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/suite"

	"smp/pkg/platform/sentinel"

	"smp/internal/storage"
)

// DocumentStoreSuite exercises the manager contract against one backend.
// Embedders set NewStore before running.
type DocumentStoreSuite struct {
	suite.Suite
	NewStore func() storage.DocumentStore
	store    storage.DocumentStore
	ctx      context.Context
}

func (s *DocumentStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore()
}

func (s *DocumentStoreSuite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

func (s *DocumentStoreSuite) TestInsertAndGet() {
	s.Require().NoError(s.store.Insert(s.ctx, "groups", "k1", []byte(`{"id":"k1","owner":"alice"}`)))

	doc, err := s.store.Get(s.ctx, "groups", "k1")
	s.Require().NoError(err)
	s.JSONEq(`{"id":"k1","owner":"alice"}`, string(doc))

	s.Run("duplicate insert conflicts", func() {
		err := s.store.Insert(s.ctx, "groups", "k1", []byte(`{"id":"k1"}`))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("same key in another collection is independent", func() {
		s.NoError(s.store.Insert(s.ctx, "cards", "k1", []byte(`{"id":"k1"}`)))
	})

	s.Run("missing key is not found", func() {
		_, err := s.store.Get(s.ctx, "groups", "absent")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *DocumentStoreSuite) TestReplaceReturnsPrevious() {
	prev, err := s.store.Replace(s.ctx, "groups", "k1", []byte(`{"v":"a"}`))
	s.Require().NoError(err)
	s.Nil(prev)

	prev, err = s.store.Replace(s.ctx, "groups", "k1", []byte(`{"v":"b"}`))
	s.Require().NoError(err)
	s.JSONEq(`{"v":"a"}`, string(prev))

	doc, err := s.store.Get(s.ctx, "groups", "k1")
	s.Require().NoError(err)
	s.JSONEq(`{"v":"b"}`, string(doc))
}

func (s *DocumentStoreSuite) TestDeleteReportsRemovedCount() {
	s.Require().NoError(s.store.Insert(s.ctx, "groups", "k1", []byte(`{}`)))

	n, err := s.store.Delete(s.ctx, "groups", "k1")
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = s.store.Delete(s.ctx, "groups", "k1")
	s.Require().NoError(err)
	s.Equal(0, n)
}

func (s *DocumentStoreSuite) TestListOrderedByKey() {
	for _, k := range []string{"c", "a", "b"} {
		s.Require().NoError(s.store.Insert(s.ctx, "groups", k, []byte(fmt.Sprintf(`{"k":%q}`, k))))
	}

	docs, err := s.store.List(s.ctx, "groups")
	s.Require().NoError(err)
	s.Require().Len(docs, 3)
	s.JSONEq(`{"k":"a"}`, string(docs[0]))
	s.JSONEq(`{"k":"c"}`, string(docs[2]))

	empty, err := s.store.List(s.ctx, "nothing")
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *DocumentStoreSuite) TestConcurrentInsertHasOneWinner() {
	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.store.Insert(s.ctx, "groups", "race", []byte(`{}`))
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		s.ErrorIs(err, sentinel.ErrConflict)
	}
	s.Equal(1, wins)
}
