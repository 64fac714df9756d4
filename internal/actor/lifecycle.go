package actor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/calegray/codedock/internal/domain"
	"github.com/calegray/codedock/internal/provision"
)

// ensureSandbox returns the session's active instance, provisioning a
// fresh one (restored from the latest snapshot when available) if none
// is usable. Callers hold the actor lock, so the one-active-instance
// invariant is never contended.
func (s *Service) ensureSandbox(ctx context.Context, session *domain.Session) (*domain.SandboxInstance, error) {
	instance, err := s.store.Sandboxes().ActiveBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	if instance != nil {
		if !s.staleInstance(instance) {
			if instance.Status == domain.SandboxIdle {
				instance.Status = domain.SandboxReady
			}
			s.touch(instance)
			if err := s.store.Sandboxes().Update(ctx, instance); err != nil {
				return nil, err
			}
			return instance, nil
		}
		// Inactivity timeout is evaluated lazily, on the next access,
		// rather than by a background sweeper.
		s.stopInstance(ctx, instance, "inactivity timeout")
	}

	return s.provision(ctx, session)
}

// staleInstance reports whether an instance has outlived the
// inactivity window.
func (s *Service) staleInstance(instance *domain.SandboxInstance) bool {
	last := instance.CreatedAt
	if instance.LastActivityAt != nil {
		last = *instance.LastActivityAt
	}
	return time.Since(last) > s.opts.InactivityWindow
}

// provision spawns a new instance, restoring from the most recent
// snapshot when one exists. A provisioning failure leaves the session
// untouched so the caller is free to retry.
func (s *Service) provision(ctx context.Context, session *domain.Session) (*domain.SandboxInstance, error) {
	instanceID := uuid.New()
	authToken, err := s.sandboxTokens.Mint(session.ID, instanceID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	instance := &domain.SandboxInstance{
		ID:            instanceID,
		SessionID:     session.ID,
		AuthToken:     authToken,
		Status:        domain.SandboxSpawning,
		GitSyncStatus: domain.GitSyncPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	prior, err := s.store.Sandboxes().LatestBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	if prior != nil && prior.SnapshotID != "" {
		resp, err := s.provisioner.Restore(ctx, prior.SnapshotID)
		if err != nil {
			return nil, err
		}
		instance.ExternalID = resp.SandboxID
		instance.SnapshotID = prior.SnapshotID
		// The restored working tree is whatever the snapshot captured.
		instance.GitSyncStatus = prior.GitSyncStatus
		instance.TunnelURLs = resp.TunnelURLs
	} else {
		resp, err := s.provisioner.CreateSandbox(ctx, provision.CreateSandboxRequest{
			SessionID: session.ID,
			RepoURL:   session.RepoURL(),
			Branch:    session.WorkingBranch,
			AuthToken: authToken,
			Model:     session.Model,
		})
		if err != nil {
			return nil, err
		}
		instance.ExternalID = resp.SandboxID
		instance.ExternalObjectID = resp.ObjectID
		instance.TunnelURLs = resp.TunnelURLs
	}

	s.touch(instance)
	if err := s.store.Sandboxes().Create(ctx, instance); err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("sandbox_id", instance.ID.String()).
		Str("external_id", instance.ExternalID).
		Bool("restored", instance.SnapshotID != "").
		Msg("Sandbox provisioned")
	return instance, nil
}

// touch records activity on an instance.
func (s *Service) touch(instance *domain.SandboxInstance) {
	now := time.Now().UTC()
	instance.LastActivityAt = &now
	instance.LastHeartbeatAt = &now
	instance.UpdatedAt = now
}

// stopInstance snapshots (when configured) and stops one instance.
// Best-effort: snapshot or terminate failures are logged, the local
// stopped transition always applies.
func (s *Service) stopInstance(ctx context.Context, instance *domain.SandboxInstance, reason string) {
	if s.opts.SnapshotOnStop && instance.ExternalID != "" {
		snap, err := s.provisioner.Snapshot(ctx, instance.ExternalID, reason)
		if err != nil {
			log.Warn().Err(err).
				Str("sandbox_id", instance.ID.String()).
				Msg("Snapshot before stop failed")
		} else {
			instance.SnapshotID = snap.SnapshotID
			instance.ImageID = snap.ImageID
		}
	}

	if instance.ExternalID != "" {
		if err := s.provisioner.Terminate(ctx, instance.ExternalID); err != nil {
			log.Warn().Err(err).
				Str("sandbox_id", instance.ID.String()).
				Msg("Sandbox terminate failed")
		}
	}

	instance.Status = domain.SandboxStopped
	instance.UpdatedAt = time.Now().UTC()
	if err := s.store.Sandboxes().Update(ctx, instance); err != nil {
		log.Error().Err(err).
			Str("sandbox_id", instance.ID.String()).
			Msg("Failed to persist sandbox stop")
	}
}

// stopActiveSandbox stops the session's active instance, if any.
func (s *Service) stopActiveSandbox(ctx context.Context, sessionID uuid.UUID, reason string) {
	instance, err := s.store.Sandboxes().ActiveBySession(ctx, sessionID)
	if err != nil || instance == nil {
		return
	}
	s.stopInstance(ctx, instance, reason)
}

// terminateActiveSandbox tears down the active instance without
// snapshotting. Used on full session deletion.
func (s *Service) terminateActiveSandbox(ctx context.Context, sessionID uuid.UUID) {
	instance, err := s.store.Sandboxes().ActiveBySession(ctx, sessionID)
	if err != nil || instance == nil {
		return
	}
	if instance.ExternalID != "" {
		if err := s.provisioner.Terminate(ctx, instance.ExternalID); err != nil {
			log.Warn().Err(err).
				Str("sandbox_id", instance.ID.String()).
				Msg("Sandbox terminate failed")
		}
	}
	instance.Status = domain.SandboxStopped
	instance.UpdatedAt = time.Now().UTC()
	if err := s.store.Sandboxes().Update(ctx, instance); err != nil {
		log.Error().Err(err).
			Str("sandbox_id", instance.ID.String()).
			Msg("Failed to persist sandbox stop")
	}
}

// Heartbeat records sandbox liveness. An idle instance becomes ready
// again on the next heartbeat.
func (s *Service) Heartbeat(ctx context.Context, sessionID uuid.UUID) error {
	return s.run(sessionID, func(*state) error {
		instance, err := s.store.Sandboxes().ActiveBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		if instance == nil {
			return domain.ErrNotFound
		}
		if instance.Status == domain.SandboxIdle || instance.Status == domain.SandboxSpawning {
			instance.Status = domain.SandboxReady
		}
		s.touch(instance)
		return s.store.Sandboxes().Update(ctx, instance)
	})
}

// SnapshotSession snapshots the active instance on demand and records
// the snapshot id, so a later provision can restore it.
func (s *Service) SnapshotSession(ctx context.Context, sessionID uuid.UUID, reason string) (string, error) {
	var snapshotID string
	err := s.run(sessionID, func(*state) error {
		instance, err := s.store.Sandboxes().ActiveBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		if instance == nil {
			return domain.ErrNotFound
		}
		snap, err := s.provisioner.Snapshot(ctx, instance.ExternalID, reason)
		if err != nil {
			return err
		}
		instance.SnapshotID = snap.SnapshotID
		instance.ImageID = snap.ImageID
		instance.UpdatedAt = time.Now().UTC()
		snapshotID = snap.SnapshotID
		return s.store.Sandboxes().Update(ctx, instance)
	})
	return snapshotID, err
}
