package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/dashboard/internal/clientdata"
	"github.com/aristath/dashboard/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *clientdata.Repository {
	t.Helper()
	db, err := database.New(database.Config{Path: "file::memory:", Profile: database.ProfileCache, Name: "client_data"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return clientdata.NewRepository(db.Conn())
}

func newTestRouter(repo CacheRepository) http.Handler {
	r := chi.NewRouter()
	NewHandler(repo, zerolog.Nop()).RegisterRoutes(r)
	return r
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlePut_ThenGet(t *testing.T) {
	repo := newTestRepo(t)
	router := newTestRouter(repo)

	w := serve(router, http.MethodPut, "/cache/market_prices/all", `{"AAPL":189.5}`)
	require.Equal(t, http.StatusOK, w.Code)

	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	assert.Equal(t, "market_prices", stored["table"])
	expires, err := time.Parse(time.RFC3339, stored["expires_at"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(clientdata.TTLMarketPrices), expires, 2*time.Second)

	w = serve(router, http.MethodGet, "/cache/market_prices/all", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data     map[string]float64     `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 189.5, resp.Data["AAPL"])
	assert.Equal(t, "all", resp.Metadata["key"])
	assert.NotEmpty(t, resp.Metadata["timestamp"])
}

func TestHandleGet_Missing(t *testing.T) {
	router := newTestRouter(newTestRepo(t))

	w := serve(router, http.MethodGet, "/cache/portfolios/main", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGet_Expired(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Store(clientdata.TablePortfolioSummary, "main", map[string]int{"v": 1}, -time.Minute))

	w := serve(newTestRouter(repo), http.MethodGet, "/cache/portfolio_summary/main", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlePut_InvalidJSON(t *testing.T) {
	repo := newTestRepo(t)
	router := newTestRouter(repo)

	w := serve(router, http.MethodPut, "/cache/portfolios/main", `{"broken"`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	data, err := repo.Get(clientdata.TablePortfolios, "main")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestHandlePut_TooLarge(t *testing.T) {
	router := newTestRouter(newTestRepo(t))

	body := `"` + strings.Repeat("x", maxEntrySize) + `"`
	w := serve(router, http.MethodPut, "/cache/portfolios/main", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHandleDelete(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Store(clientdata.TableBreakEvenAnalysis, "AAPL", map[string]int{"v": 1}, time.Hour))
	router := newTestRouter(repo)

	w := serve(router, http.MethodDelete, "/cache/break_even_analysis/AAPL", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(router, http.MethodGet, "/cache/break_even_analysis/AAPL", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownTable(t *testing.T) {
	router := newTestRouter(newTestRepo(t))

	tests := []struct {
		method string
		body   string
	}{
		{http.MethodGet, ""},
		{http.MethodPut, `{}`},
		{http.MethodDelete, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w := serve(router, tt.method, "/cache/ui_state/anything", tt.body)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}
