package actor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/calegray/codedock/internal/pipeline"
	"github.com/calegray/codedock/internal/provision"
	"github.com/calegray/codedock/internal/scm"
	"github.com/calegray/codedock/internal/security"
)

type mockProvisioner struct {
	mock.Mock
}

func (m *mockProvisioner) CreateSandbox(ctx context.Context, req provision.CreateSandboxRequest) (*provision.CreateSandboxResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provision.CreateSandboxResponse), args.Error(1)
}

func (m *mockProvisioner) Snapshot(ctx context.Context, sandboxID, reason string) (*provision.SnapshotResponse, error) {
	args := m.Called(ctx, sandboxID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provision.SnapshotResponse), args.Error(1)
}

func (m *mockProvisioner) Restore(ctx context.Context, snapshotID string) (*provision.RestoreResponse, error) {
	args := m.Called(ctx, snapshotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provision.RestoreResponse), args.Error(1)
}

func (m *mockProvisioner) Terminate(ctx context.Context, sandboxID string) error {
	args := m.Called(ctx, sandboxID)
	return args.Error(0)
}

func (m *mockProvisioner) DispatchPrompt(ctx context.Context, sandboxID string, req provision.PromptRequest) error {
	args := m.Called(ctx, sandboxID, req)
	return args.Error(0)
}

func (m *mockProvisioner) CancelExecution(ctx context.Context, sandboxID string) error {
	args := m.Called(ctx, sandboxID)
	return args.Error(0)
}

type mockSCMClient struct {
	mock.Mock
}

func (m *mockSCMClient) CreatePullRequest(ctx context.Context, input scm.CreatePullRequestInput) (*scm.PullRequest, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scm.PullRequest), args.Error(1)
}

// memLiveText is an in-process LiveTextCache for tests.
type memLiveText struct {
	mu   sync.Mutex
	text map[uuid.UUID]string
}

func newMemLiveText() *memLiveText {
	return &memLiveText{text: make(map[uuid.UUID]string)}
}

func (c *memLiveText) Get(_ context.Context, messageID uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text, ok := c.text[messageID]
	return text, ok, nil
}

func (c *memLiveText) Set(_ context.Context, messageID uuid.UUID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text[messageID] = text
	return nil
}

func (c *memLiveText) Invalidate(_ context.Context, messageID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.text, messageID)
	return nil
}

type testHarness struct {
	svc         *Service
	store       *memStore
	provisioner *mockProvisioner
	scm         *mockSCMClient
	liveText    *memLiveText
	hub         *pipeline.Hub
}

func newTestHarness(opts Options) *testHarness {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	encryptor, err := security.NewEncryptor(key)
	if err != nil {
		panic(err)
	}

	h := &testHarness{
		store:       newMemStore(),
		provisioner: new(mockProvisioner),
		scm:         new(mockSCMClient),
		liveText:    newMemLiveText(),
		hub:         pipeline.NewHub(),
	}
	h.svc = NewService(
		h.store,
		h.provisioner,
		h.scm,
		h.hub,
		encryptor,
		security.NewSandboxTokenManager([]byte("sandbox-token-secret"), time.Hour),
		h.liveText,
		opts,
	)
	return h
}

// expectSandbox wires the happy-path provisioning expectations: one
// spawned sandbox with the given external id, prompts dispatch fine.
func (h *testHarness) expectSandbox(externalID string) {
	h.provisioner.On("CreateSandbox", mock.Anything, mock.Anything).
		Return(&provision.CreateSandboxResponse{
			SandboxID:  externalID,
			Status:     "spawning",
			TunnelURLs: map[string]string{"3000": "https://" + externalID + ".tunnel.test"},
		}, nil)
	h.provisioner.On("DispatchPrompt", mock.Anything, externalID, mock.Anything).Return(nil)
}
