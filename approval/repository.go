package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no approval row exists for the identifier.
var ErrNotFound = errors.New("approval: not found")

const approvalColumns = `id, contract_id, approver_id, round, status, feedback, requested_at, action_date`

// Repository handles data access for approval rounds.
type Repository interface {
	CreateRound(ctx context.Context, tx pgx.Tx, contractID string, approverIDs []string) error
	Get(ctx context.Context, tx pgx.Tx, id string) (Approval, error)
	RecordDecision(ctx context.Context, tx pgx.Tx, id string, status Status, feedback *string, actionDate time.Time) (Approval, error)
	ListByContract(ctx context.Context, contractID string) ([]RosterEntry, error)
	ListCurrentRoundForUpdate(ctx context.Context, tx pgx.Tx, contractID string) ([]Approval, error)
	ListPendingForApprover(ctx context.Context, approverID string) ([]PendingReview, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateRound inserts one pending row per approver in a single statement,
// numbered one past the contract's highest existing round.
func (r *PGRepository) CreateRound(ctx context.Context, tx pgx.Tx, contractID string, approverIDs []string) error {
	if len(approverIDs) == 0 {
		return fmt.Errorf("approval: create round: empty approver set")
	}

	const query = `
		INSERT INTO contract_approvals (contract_id, approver_id, round)
		SELECT $1::uuid,
		       unnest($2::text[])::uuid,
		       1 + COALESCE((SELECT MAX(round) FROM contract_approvals WHERE contract_id = $1::uuid), 0)
	`

	tag, err := tx.Exec(ctx, query, contractID, approverIDs)
	if err != nil {
		return fmt.Errorf("approval: create round: %w", err)
	}
	if int(tag.RowsAffected()) != len(approverIDs) {
		return fmt.Errorf("approval: create round: inserted %d of %d rows", tag.RowsAffected(), len(approverIDs))
	}
	return nil
}

// Get reads one approval row without locking it. Review takes its locks at
// the contract level first; see ListCurrentRoundForUpdate.
func (r *PGRepository) Get(ctx context.Context, tx pgx.Tx, id string) (Approval, error) {
	query := `SELECT ` + approvalColumns + ` FROM contract_approvals WHERE id = $1`

	a, err := scanApproval(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Approval{}, ErrNotFound
		}
		return Approval{}, fmt.Errorf("approval: get: %w", err)
	}
	return a, nil
}

func (r *PGRepository) RecordDecision(ctx context.Context, tx pgx.Tx, id string, status Status, feedback *string, actionDate time.Time) (Approval, error) {
	query := `
		UPDATE contract_approvals
		SET status = $2,
		    feedback = $3,
		    action_date = $4
		WHERE id = $1
		RETURNING ` + approvalColumns

	a, err := scanApproval(tx.QueryRow(ctx, query, id, status, feedback, actionDate))
	if err != nil {
		return Approval{}, fmt.Errorf("approval: record decision: %w", err)
	}
	return a, nil
}

// ListByContract returns the full roster with approver identities, oldest
// request first.
func (r *PGRepository) ListByContract(ctx context.Context, contractID string) ([]RosterEntry, error) {
	query := `
		SELECT a.id, a.contract_id, a.approver_id, a.round, a.status, a.feedback, a.requested_at, a.action_date,
		       u.full_name, u.initials
		FROM contract_approvals a
		JOIN users u ON u.id = a.approver_id
		WHERE a.contract_id = $1
		ORDER BY a.round, a.requested_at, a.id
	`

	rows, err := r.pool.Query(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("approval: list by contract: %w", err)
	}
	defer rows.Close()

	roster := []RosterEntry{}
	for rows.Next() {
		var e RosterEntry
		if err := rows.Scan(
			&e.ID,
			&e.ContractID,
			&e.ApproverID,
			&e.Round,
			&e.Status,
			&e.Feedback,
			&e.RequestedAt,
			&e.ActionDate,
			&e.ApproverName,
			&e.ApproverInitials,
		); err != nil {
			return nil, fmt.Errorf("approval: scan roster entry: %w", err)
		}
		roster = append(roster, e)
	}
	return roster, rows.Err()
}

// ListCurrentRoundForUpdate locks and returns every approval row of the
// contract's latest round. Consensus is always derived from this locked read,
// never from the row the reviewer just changed.
func (r *PGRepository) ListCurrentRoundForUpdate(ctx context.Context, tx pgx.Tx, contractID string) ([]Approval, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM contract_approvals
		WHERE contract_id = $1
		  AND round = (SELECT MAX(round) FROM contract_approvals WHERE contract_id = $1)
		ORDER BY requested_at, id
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("approval: list for update: %w", err)
	}
	defer rows.Close()

	approvals := []Approval{}
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}

// ListPendingForApprover returns the approver's open requests joined with the
// contracts awaiting their review, each carrying the contract's full approval
// roster. Requests on contracts that have already left pending_approval are
// omitted: a short-circuited rejection leaves the other approvers' rows
// pending, but there is nothing actionable left to review.
func (r *PGRepository) ListPendingForApprover(ctx context.Context, approverID string) ([]PendingReview, error) {
	query := `
		SELECT a.id, a.contract_id, a.approver_id, a.round, a.status, a.feedback, a.requested_at, a.action_date,
		       c.id, c.name, c.description, c.parties, c.effective_date, c.expiry_date, c.contract_value,
		       c.status, c.content, c.created_by, c.template_id, c.created_at, c.updated_at
		FROM contract_approvals a
		JOIN contracts c ON c.id = a.contract_id
		WHERE a.approver_id = $1
		  AND a.status = 'pending'
		  AND c.status = 'pending_approval'
		  AND a.round = (SELECT MAX(round) FROM contract_approvals WHERE contract_id = a.contract_id)
		ORDER BY a.requested_at, a.id
	`

	rows, err := r.pool.Query(ctx, query, approverID)
	if err != nil {
		return nil, fmt.Errorf("approval: list pending: %w", err)
	}
	defer rows.Close()

	reviews := []PendingReview{}
	for rows.Next() {
		var p PendingReview
		if err := rows.Scan(
			&p.Approval.ID,
			&p.Approval.ContractID,
			&p.Approval.ApproverID,
			&p.Approval.Round,
			&p.Approval.Status,
			&p.Approval.Feedback,
			&p.Approval.RequestedAt,
			&p.Approval.ActionDate,
			&p.Contract.ID,
			&p.Contract.Name,
			&p.Contract.Description,
			&p.Contract.Parties,
			&p.Contract.EffectiveDate,
			&p.Contract.ExpiryDate,
			&p.Contract.Value,
			&p.Contract.Status,
			&p.Contract.Content,
			&p.Contract.CreatedBy,
			&p.Contract.TemplateID,
			&p.Contract.CreatedAt,
			&p.Contract.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("approval: scan pending review: %w", err)
		}
		reviews = append(reviews, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range reviews {
		roster, err := r.ListByContract(ctx, reviews[i].Approval.ContractID)
		if err != nil {
			return nil, err
		}
		reviews[i].Roster = roster
	}
	return reviews, nil
}

func scanApproval(row pgx.Row) (Approval, error) {
	var a Approval
	return a, row.Scan(
		&a.ID,
		&a.ContractID,
		&a.ApproverID,
		&a.Round,
		&a.Status,
		&a.Feedback,
		&a.RequestedAt,
		&a.ActionDate,
	)
}
