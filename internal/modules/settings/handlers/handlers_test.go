package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/dashboard/internal/modules/settings"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTokenService struct {
	mock.Mock
}

func (m *mockTokenService) Save(token string) (settings.TokenStatus, error) {
	args := m.Called(token)
	return args.Get(0).(settings.TokenStatus), args.Error(1)
}

func (m *mockTokenService) Clear() (settings.TokenStatus, error) {
	args := m.Called()
	return args.Get(0).(settings.TokenStatus), args.Error(1)
}

func (m *mockTokenService) Status() (settings.TokenStatus, error) {
	args := m.Called()
	return args.Get(0).(settings.TokenStatus), args.Error(1)
}

func newTestRouter(svc TokenService) http.Handler {
	r := chi.NewRouter()
	NewHandler(svc, zerolog.Nop()).RegisterRoutes(r)
	return r
}

func do(router http.Handler, method, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/settings/api-token", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

var stored = settings.TokenStatus{Source: settings.TokenSourceStored, Configured: true}

func TestHandleGetAPIToken(t *testing.T) {
	svc := &mockTokenService{}
	svc.On("Status").Return(stored, nil)

	w := do(newTestRouter(svc), http.MethodGet, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "stored", resp.Data["source"])
	assert.Equal(t, true, resp.Data["configured"])
}

func TestHandleSetAPIToken(t *testing.T) {
	svc := &mockTokenService{}
	svc.On("Save", "abc").Return(stored, nil)

	w := do(newTestRouter(svc), http.MethodPut, `{"token":"abc"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "abc")
	svc.AssertExpectations(t)
}

func TestHandleSetAPIToken_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		saveErr error
		want    int
	}{
		{"malformed body", `{"token":`, nil, http.StatusBadRequest},
		{"blank token", `{"token":""}`, settings.ErrEmptyToken, http.StatusBadRequest},
		{"store failure", `{"token":"abc"}`, errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockTokenService{}
			svc.On("Save", mock.Anything).Return(settings.TokenStatus{}, tt.saveErr)

			w := do(newTestRouter(svc), http.MethodPut, tt.body)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestHandleClearAPIToken(t *testing.T) {
	svc := &mockTokenService{}
	svc.On("Clear").Return(settings.TokenStatus{Source: settings.TokenSourceEnv, Configured: true, EnvDefault: true}, nil)

	w := do(newTestRouter(svc), http.MethodDelete, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"env"`)
}
