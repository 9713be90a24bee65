package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"contractflow/activity"
	"contractflow/auth"
)

var (
	// ErrForbidden signals the actor lacks the relationship or role the
	// operation requires.
	ErrForbidden = errors.New("contract: forbidden")
	// ErrInvalidState signals the contract is not in a status from which the
	// requested transition is legal.
	ErrInvalidState = errors.New("contract: invalid state")
	// ErrNoApprovers signals submission was attempted with no approver
	// accounts registered.
	ErrNoApprovers = errors.New("contract: no approvers available")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ApproverDirectory resolves the current set of approvers at submit time.
// The fan-out is a snapshot: approvers registered later do not join rounds
// already opened.
type ApproverDirectory interface {
	ListApprovers(ctx context.Context) ([]auth.User, error)
}

// ApprovalCreator opens an approval round inside the submit transaction.
type ApprovalCreator interface {
	CreateRound(ctx context.Context, tx pgx.Tx, contractID string, approverIDs []string) error
}

// ActivityWriter appends an activity entry inside the caller's transaction.
// A failed append aborts the whole transition.
type ActivityWriter interface {
	Append(ctx context.Context, tx pgx.Tx, entry activity.Entry) error
}

// Service is the lifecycle engine: it owns every contract status transition
// and the versioning rules around edits.
type Service struct {
	pool      TxBeginner
	repo      Repository
	users     ApproverDirectory
	approvals ApprovalCreator
	activity  ActivityWriter
	log       zerolog.Logger
	idGen     func() string
	now       func() time.Time
}

func NewService(pool TxBeginner, repo Repository, users ApproverDirectory, approvals ApprovalCreator, activityLog ActivityWriter, log zerolog.Logger) *Service {
	return &Service{
		pool:      pool,
		repo:      repo,
		users:     users,
		approvals: approvals,
		activity:  activityLog,
		log:       log,
		idGen:     func() string { return uuid.NewString() },
		now:       time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGen = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create drafts a new contract owned by the acting author.
func (s *Service) Create(ctx context.Context, params CreateParams) (Contract, error) {
	if params.Name == "" {
		return Contract{}, fmt.Errorf("contract: name required")
	}
	if params.Parties == "" {
		return Contract{}, fmt.Errorf("contract: parties required")
	}
	if params.Content == "" {
		return Contract{}, fmt.Errorf("contract: content required")
	}
	if params.CreatedBy == "" {
		return Contract{}, fmt.Errorf("contract: missing creator user id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Contract{}, fmt.Errorf("contract: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	created, err := s.repo.Create(ctx, tx, Contract{
		ID:            s.idGen(),
		Name:          params.Name,
		Description:   params.Description,
		Parties:       params.Parties,
		EffectiveDate: params.EffectiveDate,
		ExpiryDate:    params.ExpiryDate,
		Value:         params.Value,
		Status:        StatusDraft,
		Content:       params.Content,
		CreatedBy:     params.CreatedBy,
		TemplateID:    params.TemplateID,
	})
	if err != nil {
		return Contract{}, err
	}

	if err := s.activity.Append(ctx, tx, activity.Entry{
		ContractID: &created.ID,
		UserID:     params.CreatedBy,
		Action:     activity.ActionContractCreated,
		Details:    fmt.Sprintf("Created contract %q", created.Name),
	}); err != nil {
		return Contract{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Contract{}, fmt.Errorf("contract: commit create: %w", err)
	}

	s.log.Info().Str("contract_id", created.ID).Str("created_by", created.CreatedBy).Msg("contract drafted")
	return created, nil
}

// Submit moves a draft or rejected contract into pending approval and fans a
// pending approval row out to every registered approver. All writes share one
// transaction: either the status flips and every row is created, or nothing
// is persisted.
func (s *Service) Submit(ctx context.Context, contractID, actorID string) (Contract, error) {
	if contractID == "" || actorID == "" {
		return Contract{}, fmt.Errorf("contract: submit missing identifiers")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Contract{}, fmt.Errorf("contract: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := s.repo.GetForUpdate(ctx, tx, contractID)
	if err != nil {
		return Contract{}, err
	}
	if c.CreatedBy != actorID {
		return Contract{}, fmt.Errorf("%w: only the creator can submit for approval", ErrForbidden)
	}
	if !Submittable(c.Status) {
		return Contract{}, fmt.Errorf("%w: cannot submit from %s", ErrInvalidState, c.Status)
	}

	approvers, err := s.users.ListApprovers(ctx)
	if err != nil {
		return Contract{}, fmt.Errorf("contract: list approvers: %w", err)
	}
	if len(approvers) == 0 {
		return Contract{}, ErrNoApprovers
	}

	updated, err := s.repo.UpdateStatus(ctx, tx, contractID, StatusPendingApproval)
	if err != nil {
		return Contract{}, err
	}

	approverIDs := make([]string, 0, len(approvers))
	for _, a := range approvers {
		approverIDs = append(approverIDs, a.ID)
	}
	if err := s.approvals.CreateRound(ctx, tx, contractID, approverIDs); err != nil {
		return Contract{}, err
	}

	if err := s.activity.Append(ctx, tx, activity.Entry{
		ContractID: &contractID,
		UserID:     actorID,
		Action:     activity.ActionContractSubmitted,
		Details:    fmt.Sprintf("Submitted contract %q for approval", c.Name),
	}); err != nil {
		return Contract{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Contract{}, fmt.Errorf("contract: commit submit: %w", err)
	}

	s.log.Info().
		Str("contract_id", contractID).
		Int("approvers", len(approverIDs)).
		Msg("contract submitted for approval")
	return updated, nil
}

// EditParams captures one content edit against a contract.
type EditParams struct {
	ContractID        string
	ActorID           string
	ActorRole         auth.Role
	NewContent        string
	ChangeDescription string
}

// RecordEdit applies a content edit. When the new content differs from the
// current content, the previous content is snapshotted as a version before
// the contract row is overwritten; a no-op edit writes nothing at all.
func (s *Service) RecordEdit(ctx context.Context, params EditParams) (Contract, error) {
	if params.ContractID == "" || params.ActorID == "" {
		return Contract{}, fmt.Errorf("contract: edit missing identifiers")
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
		return Contract{}, fmt.Errorf("%w: only the creator or an approver can edit", ErrForbidden)
	}

	if params.NewContent == c.Content {
		return c, nil
	}

	desc := strings.TrimSpace(params.ChangeDescription)
	if desc == "" {
		desc = "Updated contract"
	}

	updated, err := s.applyEdit(ctx, tx, c, editApplication{
		actorID:    params.ActorID,
		newContent: params.NewContent,
		desc:       desc,
		action:     activity.ActionContractUpdated,
		details:    fmt.Sprintf("Updated contract %q", c.Name),
	})
	if err != nil {
		return Contract{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Contract{}, fmt.Errorf("contract: commit edit: %w", err)
	}

	return updated, nil
}

type editApplication struct {
	actorID    string
	newContent string
	desc       string
	action     string
	details    string
}

// applyEdit snapshots the pre-edit content, overwrites the contract row, and
// logs, all inside the caller's transaction. Callers have already authorized
// the actor and established that the content differs.
func (s *Service) applyEdit(ctx context.Context, tx pgx.Tx, c Contract, edit editApplication) (Contract, error) {
	if _, err := s.repo.InsertVersion(ctx, tx, Version{
		ContractID:        c.ID,
		Content:           c.Content,
		ChangedBy:         edit.actorID,
		ChangeDescription: &edit.desc,
	}); err != nil {
		return Contract{}, err
	}

	updated, err := s.repo.UpdateContent(ctx, tx, c.ID, edit.newContent)
	if err != nil {
		return Contract{}, err
	}

	if err := s.activity.Append(ctx, tx, activity.Entry{
		ContractID: &c.ID,
		UserID:     edit.actorID,
		Action:     edit.action,
		Details:    edit.details,
	}); err != nil {
		return Contract{}, err
	}

	return updated, nil
}

// UpdateDetailsParams carries a metadata update against a contract.
type UpdateDetailsParams struct {
	ContractID string
	ActorID    string
	ActorRole  auth.Role
	Patch      DetailsPatch
}

// UpdateDetails applies a partial metadata update: name, description,
// parties, dates, and value. Content is untouched, so no version row is
// written. Authorization matches RecordEdit.
func (s *Service) UpdateDetails(ctx context.Context, params UpdateDetailsParams) (Contract, error) {
	if params.ContractID == "" || params.ActorID == "" {
		return Contract{}, fmt.Errorf("contract: details update missing identifiers")
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
		return Contract{}, fmt.Errorf("%w: only the creator or an approver can edit", ErrForbidden)
	}

	if params.Patch.Empty() {
		return c, nil
	}

	updated, err := s.repo.UpdateDetails(ctx, tx, params.ContractID, params.Patch)
	if err != nil {
		return Contract{}, err
	}

	if err := s.activity.Append(ctx, tx, activity.Entry{
		ContractID: &c.ID,
		UserID:     params.ActorID,
		Action:     activity.ActionContractUpdated,
		Details:    fmt.Sprintf("Updated contract %q details", c.Name),
	}); err != nil {
		return Contract{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Contract{}, fmt.Errorf("contract: commit details update: %w", err)
	}

	return updated, nil
}

// Execute marks an approved contract as executed. Only the creator may
// execute, even though any approver could approve.
func (s *Service) Execute(ctx context.Context, contractID, actorID string) (Contract, error) {
	if contractID == "" || actorID == "" {
		return Contract{}, fmt.Errorf("contract: execute missing identifiers")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Contract{}, fmt.Errorf("contract: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := s.repo.GetForUpdate(ctx, tx, contractID)
	if err != nil {
		return Contract{}, err
	}
	if c.Status != StatusApproved {
		return Contract{}, fmt.Errorf("%w: only approved contracts can be executed", ErrInvalidState)
	}
	if c.CreatedBy != actorID {
		return Contract{}, fmt.Errorf("%w: only the creator can execute", ErrForbidden)
	}

	updated, err := s.repo.UpdateStatus(ctx, tx, contractID, StatusExecuted)
	if err != nil {
		return Contract{}, err
	}

	if err := s.activity.Append(ctx, tx, activity.Entry{
		ContractID: &contractID,
		UserID:     actorID,
		Action:     activity.ActionContractExecuted,
		Details:    fmt.Sprintf("Executed contract %q", c.Name),
	}); err != nil {
		return Contract{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Contract{}, fmt.Errorf("contract: commit execute: %w", err)
	}

	s.log.Info().Str("contract_id", contractID).Msg("contract executed")
	return updated, nil
}

// CheckExpirations transitions every executed contract whose expiry date has
// passed to expired and returns the transitioned IDs. Safe to re-invoke at
// any cadence: already-expired contracts are not revisited. Activity entries
// are attributed to each contract's creator.
func (s *Service) CheckExpirations(ctx context.Context) ([]string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("contract: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	due, err := s.repo.ListForExpiry(ctx, tx, s.now())
	if err != nil {
		return nil, err
	}

	expired := []string{}
	for _, c := range due {
		if _, err := s.repo.UpdateStatus(ctx, tx, c.ID, StatusExpired); err != nil {
			return nil, err
		}
		if err := s.activity.Append(ctx, tx, activity.Entry{
			ContractID: &c.ID,
			UserID:     c.CreatedBy,
			Action:     activity.ActionContractExpired,
			Details:    fmt.Sprintf("Contract %q marked as expired", c.Name),
		}); err != nil {
			return nil, err
		}
		expired = append(expired, c.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("contract: commit expiry check: %w", err)
	}

	if len(expired) > 0 {
		s.log.Info().Int("count", len(expired)).Msg("contracts expired")
	}
	return expired, nil
}

// Get returns one contract.
func (s *Service) Get(ctx context.Context, id string) (Contract, error) {
	return s.repo.Get(ctx, id)
}

// ListResult pairs a page of contracts with the unpaged total.
type ListResult struct {
	Items []Contract
	Total int
}

// List returns contracts matching the filters.
func (s *Service) List(ctx context.Context, filters Filters) (ListResult, error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// Stats returns per-status counts plus the number of executed contracts
// expiring within the next 30 days.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return Stats{}, err
	}

	byStatus := map[Status]int{
		StatusDraft:           0,
		StatusPendingApproval: 0,
		StatusApproved:        0,
		StatusRejected:        0,
		StatusExecuted:        0,
		StatusExpired:         0,
	}
	for status, n := range counts {
		byStatus[status] = n
	}

	now := s.now()
	soon, err := s.repo.CountExpiringBetween(ctx, now, now.AddDate(0, 0, 30))
	if err != nil {
		return Stats{}, err
	}

	return Stats{ByStatus: byStatus, ExpiringSoon: soon}, nil
}
