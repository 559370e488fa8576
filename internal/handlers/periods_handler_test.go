// internal/handlers/periods_handler_test.go
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kobopos/ledger-be/internal/adapters/memory"
	"github.com/kobopos/ledger-be/internal/core/domain"
	"github.com/kobopos/ledger-be/internal/core/services"
	"github.com/kobopos/ledger-be/internal/handlers"
	"github.com/kobopos/ledger-be/test/helpers"
)

func newPeriodsHandler(t *testing.T) (*handlers.PeriodsHandler, *memory.Store) {
	t.Helper()
	store := memory.NewStore(helpers.TestLogger())
	service := services.NewPeriodService(store, helpers.TestLogger())
	return handlers.NewPeriodsHandler(service, helpers.TestLogger()), store
}

func periodBody(start, end time.Time) []byte {
	return []byte(fmt.Sprintf(`{"store_id": %q, "start_date": %q, "end_date": %q}`,
		helpers.TestStoreID, start.Format(time.RFC3339), end.Format(time.RFC3339)))
}

func TestPeriodsHandler_CreatePeriod(t *testing.T) {
	handler, _ := newPeriodsHandler(t)

	jan := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb := jan.AddDate(0, 1, 0)

	t.Run("creates_period", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/periods", bytes.NewReader(periodBody(jan, feb)))
		w := httptest.NewRecorder()

		handler.CreatePeriod(w, req)

		require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
		var period domain.TaxPeriod
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &period))
		assert.Equal(t, domain.PeriodOpen, period.Status)
	})

	t.Run("overlap_conflict", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/periods",
			bytes.NewReader(periodBody(jan.AddDate(0, 0, 10), feb.AddDate(0, 0, 10))))
		w := httptest.NewRecorder()

		handler.CreatePeriod(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("bad_timestamp", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"store_id": %q, "start_date": "yesterday", "end_date": "tomorrow"}`, helpers.TestStoreID))
		req := httptest.NewRequest("POST", "/api/v1/periods", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.CreatePeriod(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("inverted_bounds", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/periods", bytes.NewReader(periodBody(feb.AddDate(1, 0, 0), jan.AddDate(1, 0, 0))))
		w := httptest.NewRecorder()

		handler.CreatePeriod(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPeriodsHandler_ClosePeriod(t *testing.T) {
	handler, store := newPeriodsHandler(t)

	period := helpers.CreateTestPeriod()
	require.NoError(t, store.CreatePeriod(context.Background(), period))

	close := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/v1/periods/"+period.ID.String()+"/close", nil)
		req.SetPathValue("id", period.ID.String())
		w := httptest.NewRecorder()
		handler.ClosePeriod(w, req)
		return w
	}

	w := close()
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	var closed domain.TaxPeriod
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &closed))
	assert.Equal(t, domain.PeriodClosed, closed.Status)

	// Close is one-way.
	w = close()
	assert.Equal(t, http.StatusConflict, w.Code)
}
