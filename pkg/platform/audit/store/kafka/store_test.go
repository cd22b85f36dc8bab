package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "smp/pkg/platform/audit"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	var results kgo.ProduceResults
	for _, r := range rs {
		f.records = append(f.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func TestStore_Append(t *testing.T) {
	t.Run("keys records by entity key", func(t *testing.T) {
		producer := &fakeProducer{}
		store := New(producer, "smp.audit")

		record := audit.Success(audit.EntityRedirect, audit.OperationUpdate, "g1|doc", nil)
		require.NoError(t, store.Append(context.Background(), record))

		require.Len(t, producer.records, 1)
		got := producer.records[0]
		assert.Equal(t, "smp.audit", got.Topic)
		assert.Equal(t, "g1|doc", string(got.Key))

		var decoded audit.Record
		require.NoError(t, json.Unmarshal(got.Value, &decoded))
		assert.Equal(t, audit.EntityRedirect, decoded.EntityType)
		assert.Equal(t, audit.OutcomeSuccess, decoded.Outcome)
	})

	t.Run("surfaces produce errors", func(t *testing.T) {
		store := New(&fakeProducer{err: errors.New("broker down")}, "smp.audit")
		err := store.Append(context.Background(), audit.Record{Key: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker down")
	})
}
