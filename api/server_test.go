package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeci/runner-autoscaler/internal/scheduler"
	"github.com/forgeci/runner-autoscaler/pkg/config"
	"github.com/forgeci/runner-autoscaler/pkg/models"
)

type fakeStatusProvider struct {
	status scheduler.Status
	ok     bool
}

func (f *fakeStatusProvider) LastStatus() (scheduler.Status, bool) {
	return f.status, f.ok
}

type fakeTokenIssuer struct {
	token string
	err   error
}

func (f *fakeTokenIssuer) CreateRegistrationToken(ctx context.Context) (string, time.Time, error) {
	return f.token, time.Now().Add(time.Hour), f.err
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(config.APIConfig{
		Enabled:     true,
		Port:        8080,
		JWTSecret:   "test-secret",
		JWTDuration: time.Hour,
		AdminToken:  "admin-token",
	}, Deps{
		Status: &fakeStatusProvider{
			status: scheduler.Status{
				Snapshot: models.Snapshot{QueuedJobs: 2, CurrentInstances: 1},
				Decision: models.Decision{Action: models.ActionScaleUp, TargetInstances: 2},
			},
			ok: true,
		},
		TokenIssuer: &fakeTokenIssuer{token: "REG123"},
		Mode:        "test",
	})
}

func doRequest(s *Server, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func obtainJWT(t *testing.T, s *Server) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"admin_token": "admin-token"})
	rec := doRequest(s, http.MethodPost, "/auth/token", "", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func TestServer_HealthLive(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/health/live", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}

func TestServer_HealthWithDatabaseDisabled(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"disabled"`)
}

func TestServer_AuthToken(t *testing.T) {
	s := newTestServer(t)

	token := obtainJWT(t, s)
	assert.NotEmpty(t, token)
}

func TestServer_AuthToken_WrongAdminToken(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"admin_token": "wrong"})
	rec := doRequest(s, http.MethodPost, "/auth/token", "", body)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_StatusRequiresAuth(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(s, http.MethodGet, "/status", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_Status(t *testing.T) {
	s := newTestServer(t)
	token := obtainJWT(t, s)

	rec := doRequest(s, http.MethodGet, "/status", token, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var status scheduler.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.ActionScaleUp, status.Decision.Action)
	assert.Equal(t, 2, status.Snapshot.QueuedJobs)
}

func TestServer_Status_NoCycleYet(t *testing.T) {
	s := NewServer(config.APIConfig{
		JWTSecret:  "test-secret",
		AdminToken: "admin-token",
	}, Deps{
		Status:      &fakeStatusProvider{ok: false},
		TokenIssuer: &fakeTokenIssuer{},
		Mode:        "test",
	})
	token := obtainJWT(t, s)

	rec := doRequest(s, http.MethodGet, "/status", token, nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_RegistrationToken(t *testing.T) {
	s := newTestServer(t)
	token := obtainJWT(t, s)

	rec := doRequest(s, http.MethodPost, "/runners/registration-token", token, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "REG123")
}

func TestServer_RecentEventsWithoutDatabase(t *testing.T) {
	s := newTestServer(t)
	token := obtainJWT(t, s)

	rec := doRequest(s, http.MethodGet, "/events/recent", token, nil)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
