package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/dashboard/internal/modules/market_hours"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, now time.Time) *Handler {
	t.Helper()
	loc, err := time.LoadLocation(market_hours.ReferenceTimezone)
	require.NoError(t, err)

	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(market_hours.NewGateIn(loc), logger)
	handler.now = func() time.Time { return now.In(loc) }
	return handler
}

func TestHandleGetStatus(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		validate func(*testing.T, map[string]interface{})
	}{
		{
			name: "open on a weekday",
			now:  time.Date(2024, 1, 9, 16, 0, 0, 0, time.UTC),
			validate: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, true, data["open"])
				assert.Equal(t, "America/New_York", data["timezone"])
				assert.Equal(t, "09:30", data["opens_at"])
				assert.Equal(t, "16:15", data["closes_at"])
				assert.NotContains(t, data, "next_open_date")
			},
		},
		{
			name: "closed on saturday night",
			now:  time.Date(2024, 1, 14, 4, 0, 0, 0, time.UTC),
			validate: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, false, data["open"])
				assert.Equal(t, "2024-01-15", data["next_open_date"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(t, tt.now)
			req := httptest.NewRequest("GET", "/api/market-hours/status", nil)
			w := httptest.NewRecorder()

			handler.HandleGetStatus(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			require.Contains(t, response, "metadata")
			data, ok := response["data"].(map[string]interface{})
			require.True(t, ok)
			tt.validate(t, data)
		})
	}
}
