package digitalocean

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAppServer serves a single app whose spec is mutated by PUTs, the
// same way the apps endpoint behaves.
type fakeAppServer struct {
	mu   sync.Mutex
	spec map[string]interface{}

	// When set, PUTs are accepted but the stored spec keeps this count,
	// simulating a concurrent modification between write and readback.
	pinnedCount *float64
}

func (f *fakeAppServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/apps/app-123", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"app": map[string]interface{}{"spec": f.spec},
			})
		case http.MethodPut:
			var body struct {
				Spec map[string]interface{} `json:"spec"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.spec = body.Spec
			if f.pinnedCount != nil {
				for _, wk := range f.spec["workers"].([]interface{}) {
					wk.(map[string]interface{})["instance_count"] = *f.pinnedCount
				}
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"app": map[string]interface{}{"spec": f.spec},
			})
		}
	})
	return mux
}

func specWithWorker(name string, count interface{}) map[string]interface{} {
	worker := map[string]interface{}{"name": name}
	if count != nil {
		worker["instance_count"] = count
	}
	return map[string]interface{}{
		"name":    "ci-app",
		"region":  "fra",
		"workers": []interface{}{worker},
	}
}

func newTestClient(t *testing.T, fake *fakeAppServer) *Client {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	return NewClient(Config{
		Token:      "test-token",
		AppID:      "app-123",
		WorkerName: "runner",
		BaseURL:    server.URL,
	})
}

func TestClient_GetInstanceCount(t *testing.T) {
	fake := &fakeAppServer{spec: specWithWorker("runner", float64(3))}
	client := newTestClient(t, fake)

	count, err := client.GetInstanceCount(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestClient_GetInstanceCount_DefaultsToOne(t *testing.T) {
	fake := &fakeAppServer{spec: specWithWorker("runner", nil)}
	client := newTestClient(t, fake)

	count, err := client.GetInstanceCount(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClient_GetInstanceCount_WorkerNotFound(t *testing.T) {
	fake := &fakeAppServer{spec: specWithWorker("web", float64(2))}
	client := newTestClient(t, fake)

	_, err := client.GetInstanceCount(context.Background())

	assert.ErrorIs(t, err, ErrWorkerNotFound)
}

func TestClient_SetInstanceCount(t *testing.T) {
	fake := &fakeAppServer{spec: specWithWorker("runner", float64(1))}
	client := newTestClient(t, fake)

	require.NoError(t, client.SetInstanceCount(context.Background(), 4))

	count, err := client.GetInstanceCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	// Unrelated spec fields survive the round trip.
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "fra", fake.spec["region"])
}

func TestClient_SetInstanceCount_SpecConflict(t *testing.T) {
	pinned := float64(2)
	fake := &fakeAppServer{
		spec:        specWithWorker("runner", float64(1)),
		pinnedCount: &pinned,
	}
	client := newTestClient(t, fake)

	err := client.SetInstanceCount(context.Background(), 4)

	assert.ErrorIs(t, err, ErrSpecConflict)
}

func TestClient_SetInstanceCount_WorkerNotFound(t *testing.T) {
	fake := &fakeAppServer{spec: specWithWorker("web", float64(1))}
	client := newTestClient(t, fake)

	err := client.SetInstanceCount(context.Background(), 2)

	assert.ErrorIs(t, err, ErrWorkerNotFound)
}

func TestClient_GetInstanceCount_RequestFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{Token: "t", AppID: "app-123", WorkerName: "runner", BaseURL: server.URL})
	_, err := client.GetInstanceCount(context.Background())

	assert.ErrorIs(t, err, ErrRequestFailed)
}
