package contract

import (
	"context"
	"fmt"
	"time"

	"contractflow/activity"
	"contractflow/auth"
)

// ListVersions returns a contract's snapshots, newest first.
func (s *Service) ListVersions(ctx context.Context, contractID string) ([]Version, error) {
	if contractID == "" {
		return nil, fmt.Errorf("contract: missing contract id")
	}
	if _, err := s.repo.Get(ctx, contractID); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, contractID)
}

// RestoreParams identifies the snapshot to bring back.
type RestoreParams struct {
	ContractID string
	ActorID    string
	ActorRole  auth.Role
	VersionID  int64
}

// Restore replaces a draft contract's content with a past snapshot. The
// current content is itself snapshotted first, so a restore can be undone
// like any other edit.
func (s *Service) Restore(ctx context.Context, params RestoreParams) (Contract, error) {
	if params.ContractID == "" || params.ActorID == "" {
		return Contract{}, fmt.Errorf("contract: restore missing identifiers")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Contract{}, fmt.Errorf("contract: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := s.repo.GetForUpdate(ctx, tx, params.ContractID)
	if err != nil {
		return Contract{}, err
	}
	if c.CreatedBy != params.ActorID && params.ActorRole != auth.RoleApprover {
		return Contract{}, fmt.Errorf("%w: only the creator or an approver can restore", ErrForbidden)
	}
	if c.Status != StatusDraft {
		return Contract{}, fmt.Errorf("%w: versions can only be restored while in draft", ErrInvalidState)
	}

	v, err := s.repo.GetVersion(ctx, tx, params.VersionID)
	if err != nil {
		return Contract{}, err
	}
	if v.ContractID != params.ContractID {
		return Contract{}, ErrVersionNotFound
	}

	if v.Content == c.Content {
		return c, nil
	}

	captured := v.ChangedAt.UTC().Format(time.RFC3339)
	updated, err := s.applyEdit(ctx, tx, c, editApplication{
		actorID:    params.ActorID,
		newContent: v.Content,
		desc:       fmt.Sprintf("Restored from version %d (captured %s)", v.ID, captured),
		action:     activity.ActionVersionRestored,
		details:    fmt.Sprintf("Restored contract %q from version %d (captured %s)", c.Name, v.ID, captured),
	})
	if err != nil {
		return Contract{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Contract{}, fmt.Errorf("contract: commit restore: %w", err)
	}

	s.log.Info().
		Str("contract_id", params.ContractID).
		Int64("version_id", params.VersionID).
		Msg("contract content restored")
	return updated, nil
}
