package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	ok := CheckerFunc(func(context.Context) error { return nil })
	down := CheckerFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("all healthy", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Handler(map[string]Checker{"storage": ok}, time.Second)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("one failing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Handler(map[string]Checker{"storage": ok, "redis": down}, time.Second)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var rep report
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&rep))
		assert.Equal(t, "unavailable", rep.Status)
		assert.Equal(t, "ok", rep.Checks["storage"])
		assert.Equal(t, "connection refused", rep.Checks["redis"])
	})
}
