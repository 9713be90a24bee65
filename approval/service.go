package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"contractflow/activity"
	"contractflow/contract"
)

var (
	// ErrForbidden signals the actor is not the approver the request was
	// addressed to.
	ErrForbidden = errors.New("approval: forbidden")
	// ErrInvalidDecision signals a verdict outside approve/reject.
	ErrInvalidDecision = errors.New("approval: invalid decision")
	// ErrFeedbackRequired signals a rejection without feedback.
	ErrFeedbackRequired = errors.New("approval: feedback required for rejection")
	// ErrAlreadyDecided signals the approval row has already left pending or
	// belongs to a superseded round.
	ErrAlreadyDecided = errors.New("approval: already decided")
	// ErrContractNotPending signals a review against a contract that is no
	// longer awaiting approval.
	ErrContractNotPending = errors.New("approval: contract not pending approval")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ContractStore is the slice of the contract repository the coordinator needs
// to finalize consensus inside its own transaction.
type ContractStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (contract.Contract, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status contract.Status) (contract.Contract, error)
}

// ActivityWriter appends an activity entry inside the caller's transaction.
type ActivityWriter interface {
	Append(ctx context.Context, tx pgx.Tx, entry activity.Entry) error
}

// Coordinator records individual approver decisions and derives the contract
// level outcome from the full current round.
type Coordinator struct {
	pool      TxBeginner
	repo      Repository
	contracts ContractStore
	activity  ActivityWriter
	log       zerolog.Logger
	now       func() time.Time
}

func NewCoordinator(pool TxBeginner, repo Repository, contracts ContractStore, activityLog ActivityWriter, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		pool:      pool,
		repo:      repo,
		contracts: contracts,
		activity:  activityLog,
		log:       log,
		now:       time.Now,
	}
}

func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// ReviewResult reports the recorded decision and the contract status after
// consensus was re-derived.
type ReviewResult struct {
	Approval       Approval
	ContractStatus contract.Status
}

// Review records one approver's verdict and, inside the same transaction,
// re-derives consensus from a fresh locked read of the whole round. The
// first rejection decides the contract immediately; approval decides it only
// once every request in the round is approved.
func (c *Coordinator) Review(ctx context.Context, params ReviewParams) (ReviewResult, error) {
	if params.ApprovalID == "" || params.ActorID == "" {
		return ReviewResult{}, fmt.Errorf("approval: review missing identifiers")
	}
	if params.Decision != DecisionApprove && params.Decision != DecisionReject {
		return ReviewResult{}, fmt.Errorf("%w: %q", ErrInvalidDecision, params.Decision)
	}

	feedback := strings.TrimSpace(params.Feedback)
	if params.Decision == DecisionReject && feedback == "" {
		return ReviewResult{}, ErrFeedbackRequired
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return ReviewResult{}, fmt.Errorf("approval: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Unlocked read to learn the contract; every lock below is taken in the
	// fixed order contract row, then approval rows. Concurrent reviews of the
	// same contract queue on the contract lock before touching any approval
	// row, so the round-wide lock can never form a cycle.
	a, err := c.repo.Get(ctx, tx, params.ApprovalID)
	if err != nil {
		return ReviewResult{}, err
	}
	if a.ApproverID != params.ActorID {
		return ReviewResult{}, fmt.Errorf("%w: request addressed to a different approver", ErrForbidden)
	}

	con, err := c.contracts.GetForUpdate(ctx, tx, a.ContractID)
	if err != nil {
		return ReviewResult{}, err
	}
	if con.Status != contract.StatusPendingApproval {
		return ReviewResult{}, fmt.Errorf("%w: contract is %s", ErrContractNotPending, con.Status)
	}

	round, err := c.repo.ListCurrentRoundForUpdate(ctx, tx, a.ContractID)
	if err != nil {
		return ReviewResult{}, err
	}
	locked, ok := findApproval(round, a.ID)
	if !ok {
		return ReviewResult{}, fmt.Errorf("%w: request belongs to a superseded round", ErrAlreadyDecided)
	}
	if locked.Status != StatusPending {
		return ReviewResult{}, fmt.Errorf("%w: already %s", ErrAlreadyDecided, locked.Status)
	}

	var feedbackPtr *string
	if feedback != "" {
		feedbackPtr = &feedback
	}
	decided, err := c.repo.RecordDecision(ctx, tx, a.ID, Status(params.Decision), feedbackPtr, c.now())
	if err != nil {
		return ReviewResult{}, err
	}
	for i := range round {
		if round[i].ID == decided.ID {
			round[i] = decided
		}
	}

	action := activity.ActionContractApproved
	details := fmt.Sprintf("Approved contract %q", con.Name)
	if params.Decision == DecisionReject {
		action = activity.ActionContractRejected
		details = fmt.Sprintf("Rejected contract %q: %s", con.Name, feedback)
	}
	if err := c.activity.Append(ctx, tx, activity.Entry{
		ContractID: &con.ID,
		UserID:     params.ActorID,
		Action:     action,
		Details:    details,
	}); err != nil {
		return ReviewResult{}, err
	}

	status := con.Status
	if next := Consensus(round); next != contract.StatusPendingApproval {
		updated, err := c.contracts.UpdateStatus(ctx, tx, con.ID, next)
		if err != nil {
			return ReviewResult{}, err
		}
		status = updated.Status
	}

	if err := tx.Commit(ctx); err != nil {
		return ReviewResult{}, fmt.Errorf("approval: commit review: %w", err)
	}

	c.log.Info().
		Str("contract_id", con.ID).
		Str("approval_id", a.ID).
		Str("decision", string(params.Decision)).
		Str("contract_status", string(status)).
		Msg("review recorded")
	return ReviewResult{Approval: decided, ContractStatus: status}, nil
}

// Consensus derives the contract status implied by a round of approvals. Any
// rejection decides the round; otherwise the round is decided only when every
// request is approved.
func Consensus(round []Approval) contract.Status {
	if len(round) == 0 {
		return contract.StatusPendingApproval
	}
	allApproved := true
	for _, a := range round {
		switch a.Status {
		case StatusRejected:
			return contract.StatusRejected
		case StatusPending:
			allApproved = false
		}
	}
	if allApproved {
		return contract.StatusApproved
	}
	return contract.StatusPendingApproval
}

// Roster returns the contract's full approval history with approver
// identities.
func (c *Coordinator) Roster(ctx context.Context, contractID string) ([]RosterEntry, error) {
	if contractID == "" {
		return nil, fmt.Errorf("approval: missing contract id")
	}
	return c.repo.ListByContract(ctx, contractID)
}

// PendingFor returns the approver's open review queue.
func (c *Coordinator) PendingFor(ctx context.Context, approverID string) ([]PendingReview, error) {
	if approverID == "" {
		return nil, fmt.Errorf("approval: missing approver id")
	}
	return c.repo.ListPendingForApprover(ctx, approverID)
}

func findApproval(round []Approval, id string) (Approval, bool) {
	for _, a := range round {
		if a.ID == id {
			return a, true
		}
	}
	return Approval{}, false
}
