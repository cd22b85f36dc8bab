package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "smp/pkg/platform/audit"
)

func TestStore_Append(t *testing.T) {
	var buf bytes.Buffer
	store := New(slog.New(slog.NewJSONHandler(&buf, nil)))

	record := audit.Failure(audit.EntityServiceGroup, audit.OperationDelete, "g1", errors.New("directory down"))
	require.NoError(t, store.Append(context.Background(), record))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "delete", line["operation"])
	assert.Equal(t, "directory down", line["detail_error"])
}
