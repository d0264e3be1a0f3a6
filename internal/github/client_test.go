package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		Token:   "test-token",
		Owner:   "forgeci",
		Repo:    "pipeline",
		BaseURL: server.URL,
	})
	return client, server
}

func TestClient_CountQueuedJobs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/forgeci/pipeline/actions/runs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "queued", r.URL.Query().Get("status"))
		assert.Equal(t, "token test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"workflow_runs": [{"id": 11}, {"id": 12}]}`))
	})
	mux.HandleFunc("/repos/forgeci/pipeline/actions/runs/11/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jobs": [
			{"status": "queued", "labels": ["self-hosted"]},
			{"status": "queued", "labels": ["gpu"]},
			{"status": "in_progress", "labels": ["self-hosted"]}
		]}`))
	})
	mux.HandleFunc("/repos/forgeci/pipeline/actions/runs/12/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jobs": [{"status": "queued", "labels": ["self-hosted", "linux"]}]}`))
	})

	client, _ := newTestClient(t, mux)
	count, err := client.CountQueuedJobs(context.Background(), "self-hosted")

	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestClient_CountQueuedJobs_SkipsFailedRun(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/forgeci/pipeline/actions/runs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"workflow_runs": [{"id": 11}, {"id": 12}]}`))
	})
	mux.HandleFunc("/repos/forgeci/pipeline/actions/runs/11/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/repos/forgeci/pipeline/actions/runs/12/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jobs": [{"status": "queued", "labels": ["self-hosted"]}]}`))
	})

	client, _ := newTestClient(t, mux)
	count, err := client.CountQueuedJobs(context.Background(), "self-hosted")

	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClient_CountQueuedJobs_RunsListingFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/forgeci/pipeline/actions/runs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client, _ := newTestClient(t, mux)
	_, err := client.CountQueuedJobs(context.Background(), "self-hosted")

	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestClient_OrgScope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/forgeci/actions/runs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"workflow_runs": [{"id": 11, "repository": {"full_name": "forgeci/pipeline"}}]}`))
	})
	mux.HandleFunc("/repos/forgeci/pipeline/actions/runs/11/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jobs": [{"status": "queued", "labels": ["self-hosted"]}]}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(Config{Token: "t", Org: "forgeci", BaseURL: server.URL})
	count, err := client.CountQueuedJobs(context.Background(), "self-hosted")

	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClient_ListRunners(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/forgeci/pipeline/actions/runners", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"runners": [
			{"id": 1, "name": "ci-runner-a", "status": "online", "busy": false},
			{"id": 2, "name": "ci-runner-b", "status": "offline", "busy": false}
		]}`))
	})

	client, _ := newTestClient(t, mux)
	runners, err := client.ListRunners(context.Background())

	require.NoError(t, err)
	require.Len(t, runners, 2)
	assert.Equal(t, int64(1), runners[0].ID)
	assert.True(t, runners[0].Online())
	assert.True(t, runners[1].Dead())
}

func TestClient_DeleteRunner(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/forgeci/pipeline/actions/runners/42", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, mux)
	assert.NoError(t, client.DeleteRunner(context.Background(), 42))
}

func TestClient_DeleteRunner_UnexpectedStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/forgeci/pipeline/actions/runners/42", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client, _ := newTestClient(t, mux)
	err := client.DeleteRunner(context.Background(), 42)

	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestClient_CreateRegistrationToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/forgeci/pipeline/actions/runners/registration-token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token": "AABBCC", "expires_at": "2025-06-01T13:00:00Z"}`))
	})

	client, _ := newTestClient(t, mux)
	token, expiresAt, err := client.CreateRegistrationToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "AABBCC", token)
	assert.Equal(t, 2025, expiresAt.Year())
}
