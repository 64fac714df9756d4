package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/calegray/codedock/internal/domain"
)

// HTTPClient implements Provisioner against the provisioning service's
// JSON API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a new provisioning client
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateSandbox spawns a sandbox for a session
func (c *HTTPClient) CreateSandbox(ctx context.Context, req CreateSandboxRequest) (*CreateSandboxResponse, error) {
	var resp CreateSandboxResponse
	if err := c.post(ctx, "/v1/sandboxes", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Snapshot requests a point-in-time image of a sandbox
func (c *HTTPClient) Snapshot(ctx context.Context, sandboxID, reason string) (*SnapshotResponse, error) {
	body := map[string]string{"reason": reason}
	var resp SnapshotResponse
	if err := c.post(ctx, "/v1/sandboxes/"+sandboxID+"/snapshot", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Restore spins a fresh sandbox from a prior snapshot
func (c *HTTPClient) Restore(ctx context.Context, snapshotID string) (*RestoreResponse, error) {
	body := map[string]string{"snapshot_id": snapshotID}
	var resp RestoreResponse
	if err := c.post(ctx, "/v1/sandboxes/restore", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Terminate tears a sandbox down
func (c *HTTPClient) Terminate(ctx context.Context, sandboxID string) error {
	return c.post(ctx, "/v1/sandboxes/"+sandboxID+"/terminate", nil, nil)
}

// DispatchPrompt forwards a prompt to the sandbox execution channel
func (c *HTTPClient) DispatchPrompt(ctx context.Context, sandboxID string, req PromptRequest) error {
	return c.post(ctx, "/v1/sandboxes/"+sandboxID+"/exec", req, nil)
}

// CancelExecution signals the sandbox to stop the current execution
func (c *HTTPClient) CancelExecution(ctx context.Context, sandboxID string) error {
	return c.post(ctx, "/v1/sandboxes/"+sandboxID+"/cancel", nil, nil)
}

// post sends a JSON request and decodes the JSON reply. Upstream 5xx
// and transport failures are retryable; 4xx are permanent.
func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	op := path

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return &domain.ProvisionError{Op: op, Retryable: false, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return &domain.ProvisionError{Op: op, Retryable: false, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &domain.ProvisionError{Op: op, Retryable: true, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &domain.ProvisionError{Op: op, Retryable: true, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode >= 500 {
		return &domain.ProvisionError{Op: op, Retryable: true, Err: fmt.Errorf("provisioner error (HTTP %d): %s", resp.StatusCode, respBody)}
	}
	if resp.StatusCode >= 400 {
		return &domain.ProvisionError{Op: op, Retryable: false, Err: fmt.Errorf("provisioner rejected request (HTTP %d): %s", resp.StatusCode, respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &domain.ProvisionError{Op: op, Retryable: false, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}
	return nil
}
