package cli

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DecodesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Task not found","trace_id":"abc123"}`))
	}))
	defer srv.Close()

	serverURL = srv.URL
	err := newClient().get("/api/tasks/whatever", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Task not found")
	assert.Contains(t, err.Error(), "abc123")
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	serverURL = srv.URL
	err := newClient().get("/api/tasks", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestResolvePayload(t *testing.T) {
	payload, err := resolvePayload([]string{"echo"})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(payload))

	payload, err = resolvePayload([]string{"echo", `{"a":1}`})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(payload))

	file := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"from":"file"}`), 0o600))
	payload, err = resolvePayload([]string{"echo", "@" + file})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"file"}`, string(payload))

	_, err = resolvePayload([]string{"echo", "@/nonexistent/path.json"})
	assert.Error(t, err)
}
