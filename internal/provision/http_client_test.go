package provision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calegray/codedock/internal/domain"
)

func TestHTTPClient_CreateSandbox(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sandboxes", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req CreateSandboxRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://github.com/acme/widgets.git", req.RepoURL)

		json.NewEncoder(w).Encode(CreateSandboxResponse{
			SandboxID: "sb-123",
			Status:    "spawning",
			TunnelURLs: map[string]string{
				"8080": "https://preview.example.dev",
			},
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-key", 5*time.Second)
	resp, err := client.CreateSandbox(context.Background(), CreateSandboxRequest{
		SessionID: uuid.New(),
		RepoURL:   "https://github.com/acme/widgets.git",
		Branch:    "main",
		AuthToken: "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, "sb-123", resp.SandboxID)
	assert.Equal(t, "https://preview.example.dev", resp.TunnelURLs["8080"])
}

func TestHTTPClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantRetryable bool
	}{
		{"server error is retryable", http.StatusBadGateway, true},
		{"client error is permanent", http.StatusUnprocessableEntity, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			client := NewHTTPClient(srv.URL, "", 5*time.Second)
			_, err := client.Snapshot(context.Background(), "sb-123", "pre-stop")
			require.Error(t, err)

			var perr *domain.ProvisionError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantRetryable, perr.Retryable)
		})
	}
}

func TestHTTPClient_TransportFailureRetryable(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", "", 500*time.Millisecond)
	err := client.Terminate(context.Background(), "sb-123")
	require.Error(t, err)

	var perr *domain.ProvisionError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.Retryable)
}
