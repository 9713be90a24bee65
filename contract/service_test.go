package contract

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"contractflow/activity"
	"contractflow/auth"
)

func newTestService(repo *fakeRepo, users *fakeDirectory) (*Service, *fakePool, *fakeApprovals, *fakeActivity) {
	pool := &fakePool{}
	approvals := &fakeApprovals{}
	log := &fakeActivity{}
	next := 0
	svc := NewService(pool, repo, users, approvals, log, zerolog.Nop()).
		WithIDGenerator(func() string {
			next++
			return fmt.Sprintf("id-%d", next)
		}).
		WithClock(func() time.Time {
			return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		})
	return svc, pool, approvals, log
}

func TestCreate_StartsInDraft(t *testing.T) {
	repo := &fakeRepo{contracts: map[string]Contract{}}
	svc, pool, _, log := newTestService(repo, &fakeDirectory{})

	created, err := svc.Create(context.Background(), CreateParams{
		Name:      "Mutual NDA",
		Parties:   "Acme Corp, Globex Inc",
		Content:   "# NDA",
		CreatedBy: "author-1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if created.Status != StatusDraft {
		t.Errorf("expected draft status, got %s", created.Status)
	}
	if !pool.tx.committed {
		t.Errorf("expected commit")
	}
	if len(log.entries) != 1 || log.entries[0].Action != activity.ActionContractCreated {
		t.Errorf("expected one created entry, got %+v", log.entries)
	}
}

func TestCreate_RequiresFields(t *testing.T) {
	repo := &fakeRepo{contracts: map[string]Contract{}}
	svc, pool, _, _ := newTestService(repo, &fakeDirectory{})

	_, err := svc.Create(context.Background(), CreateParams{Parties: "A, B", Content: "x", CreatedBy: "u"})
	if err == nil {
		t.Fatal("expected error for missing name")
	}
	if pool.tx != nil {
		t.Errorf("expected no transaction for invalid input")
	}
}

func TestSubmit_FansOutToAllApprovers(t *testing.T) {
	repo := &fakeRepo{contracts: map[string]Contract{
		"c-1": {ID: "c-1", Name: "Mutual NDA", Status: StatusDraft, CreatedBy: "author-1", Content: "# NDA"},
	}}
	users := &fakeDirectory{approvers: []auth.User{{ID: "appr-1"}, {ID: "appr-2"}, {ID: "appr-3"}}}
	svc, pool, approvals, log := newTestService(repo, users)

	updated, err := svc.Submit(context.Background(), "c-1", "author-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if updated.Status != StatusPendingApproval {
		t.Errorf("expected pending_approval, got %s", updated.Status)
	}
	if !pool.tx.committed {
		t.Errorf("expected commit")
	}
	if len(approvals.rounds) != 1 {
		t.Fatalf("expected one round, got %d", len(approvals.rounds))
	}
	if got := approvals.rounds[0].approverIDs; len(got) != 3 {
		t.Errorf("expected fan-out to 3 approvers, got %v", got)
	}
	if len(log.entries) != 1 || log.entries[0].Action != activity.ActionContractSubmitted {
		t.Errorf("expected submitted entry, got %+v", log.entries)
	}
}

func TestSubmit_OnlyCreator(t *testing.T) {
	repo := &fakeRepo{contracts: map[string]Contract{
		"c-1": {ID: "c-1", Status: StatusDraft, CreatedBy: "author-1"},
	}}
	users := &fakeDirectory{approvers: []auth.User{{ID: "appr-1"}}}
	svc, pool, approvals, _ := newTestService(repo, users)

	_, err := svc.Submit(context.Background(), "c-1", "someone-else")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if pool.tx.committed {
		t.Errorf("expected rollback")
	}
	if len(approvals.rounds) != 0 {
		t.Errorf("expected no round")
	}
}

func TestSubmit_InvalidStates(t *testing.T) {
	for _, status := range []Status{StatusPendingApproval, StatusApproved, StatusExecuted, StatusExpired} {
		repo := &fakeRepo{contracts: map[string]Contract{
			"c-1": {ID: "c-1", Status: status, CreatedBy: "author-1"},
		}}
		users := &fakeDirectory{approvers: []auth.User{{ID: "appr-1"}}}
		svc, _, _, _ := newTestService(repo, users)

		_, err := svc.Submit(context.Background(), "c-1", "author-1")
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("status %s: expected ErrInvalidState, got %v", status, err)
		}
	}
}

func TestSubmit_ResubmitAfterRejection(t *testing.T) {
	repo := &fakeRepo{contracts: map[string]Contract{
		"c-1": {ID: "c-1", Status: StatusRejected, CreatedBy: "author-1"},
	}}
	users := &fakeDirectory{approvers: []auth.User{{ID: "appr-1"}}}
	svc, _, approvals, _ := newTestService(repo, users)

	updated, err := svc.Submit(context.Background(), "c-1", "author-1")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if updated.Status != StatusPendingApproval {
		t.Errorf("expected pending_approval, got %s", updated.Status)
	}
	if len(approvals.rounds) != 1 {
		t.Errorf("expected fresh approval round on resubmit")
	}
}

func TestSubmit_NoApprovers(t *testing.T) {
	repo := &fakeRepo{contracts: map[string]Contract{
		"c-1": {ID: "c-1", Status: StatusDraft, CreatedBy: "author-1"},
	}}
	svc, pool, _, _ := newTestService(repo, &fakeDirectory{})

	_, err := svc.Submit(context.Background(), "c-1", "author-1")
	if !errors.Is(err, ErrNoApprovers) {
		t.Fatalf("expected ErrNoApprovers, got %v", err)
	}
	if repo.contracts["c-1"].Status != StatusDraft {
		t.Errorf("expected contract untouched, got %s", repo.contracts["c-1"].Status)
	}
	if pool.tx.committed {
		t.Errorf("expected rollback")
	}
}

func TestRecordEdit_SnapshotsPreviousContent(t *testing.T) {
	repo := &fakeRepo{contracts: map[string]Contract{
		"c-1": {ID: "c-1", Name: "NDA", Status: StatusDraft, CreatedBy: "author-1", Content: "v1"},
	}}
	svc, _, _, log := newTestService(repo, &fakeDirectory{})

	updated, err := svc.RecordEdit(context.Background(), EditParams{
		ContractID:        "c-1",
		ActorID:           "author-1",
		ActorRole:         auth.RoleAuthor,
		NewContent:        "v2",
		ChangeDescription: "Tighten indemnity clause",
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	if updated.Content != "v2" {
		t.Errorf("expected content v2, got %q", updated.Content)
	}
	if len(repo.versions) != 1 {
		t.Fatalf("expected one version, got %d", len(repo.versions))
	}
	if repo.versions[0].Content != "v1" {
		t.Errorf("version must hold the pre-edit content, got %q", repo.versions[0].Content)
	}
	if repo.versions[0].ChangedBy != "author-1" {
		t.Errorf("expected changed_by author-1, got %q", repo.versions[0].ChangedBy)
	}
	if len(log.entries) != 1 || log.entries[0].Action != activity.ActionContractUpdated {
		t.Errorf("expected updated entry, got %+v", log.entries)
	}
}

func TestRecordEdit_NoOpWritesNothing(t *testing.T) {
	repo := &fakeRepo{contracts: map[string]Contract{
		"c-1": {ID: "c-1", Status: StatusDraft, CreatedBy: "author-1", Content: "same"},
	}}
	svc, pool, _, log := newTestService(repo, &fakeDirectory{})

	if _, err := svc.RecordEdit(context.Background(), EditParams{
		ContractID: "c-1",
		ActorID:    "author-1",
		NewContent: "same",
	}); err != nil {
		t.Fatalf("no-op edit: %v", err)
	}

	if len(repo.versions) != 0 {
		t.Errorf("expected no version for no-op edit, got %d", len(repo.versions))
	}
	if len(log.entries) != 0 {
		t.Errorf("expected no activity for no-op edit")
	}
	if pool.tx.committed {
		t.Errorf("expected no commit for no-op edit")
	}
}

func TestRecordEdit_ApproverMayEdit(t *testing.T) {
	repo := &fakeRepo{contracts: map[string]Contract{
		"c-1": {ID: "c-1", Status: StatusDraft, CreatedBy: "author-1", Content: "v1"},
	}}
	svc, _, _, _ := newTestService(repo, &fakeDirectory{})

	if _, err := svc.RecordEdit(context.Background(), EditParams{
		ContractID: "c-1",
		ActorID:    "appr-1",
		ActorRole:  auth.RoleApprover,
		NewContent: "v2",
	}); err != nil {
		t.Fatalf("approver edit: %v", err)
	}

	_, err := svc.RecordEdit(context.Background(), EditParams{
		ContractID: "c-1",
		ActorID:    "stranger",
		ActorRole:  auth.RoleAuthor,
		NewContent: "v3",
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-creator author, got %v", err)
	}
}

func TestUpdateDetails_SetsExpiryWithoutVersion(t *testing.T) {
	repo := &fakeRepo{contracts: map[string]Contract{
		"c-1": {ID: "c-1", Name: "NDA", Status: StatusDraft, CreatedBy: "author-1", Content: "v1"},
	}}
	svc, _, _, log := newTestService(repo, &fakeDirectory{})

	expiry := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	updated, err := svc.UpdateDetails(context.Background(), UpdateDetailsParams{
		ContractID: "c-1",
		ActorID:    "author-1",
		ActorRole:  auth.RoleAuthor,
		Patch:      DetailsPatch{ExpiryDate: &expiry},
	})
	if err != nil {
		t.Fatalf("update details: %v", err)
	}

	if updated.ExpiryDate == nil || !updated.ExpiryDate.Equal(expiry) {
		t.Errorf("expected expiry %v, got %v", expiry, updated.ExpiryDate)
	}
	if updated.Content != "v1" {
		t.Errorf("content must be untouched, got %q", updated.Content)
	}
	if len(repo.versions) != 0 {
		t.Errorf("metadata update must not write a version, got %d", len(repo.versions))
	}
	if len(log.entries) != 1 || log.entries[0].Action != activity.ActionContractUpdated {
		t.Errorf("expected updated entry, got %+v", log.entries)
	}
}

func TestUpdateDetails_AuthorizationAndNoOp(t *testing.T) {
	repo := &fakeRepo{contracts: map[string]Contract{
		"c-1": {ID: "c-1", Status: StatusDraft, CreatedBy: "author-1"},
	}}
	svc, pool, _, log := newTestService(repo, &fakeDirectory{})

	name := "Renamed"
	_, err := svc.UpdateDetails(context.Background(), UpdateDetailsParams{
		ContractID: "c-1",
		ActorID:    "stranger",
		ActorRole:  auth.RoleAuthor,
		Patch:      DetailsPatch{Name: &name},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := svc.UpdateDetails(context.Background(), UpdateDetailsParams{
		ContractID: "c-1",
		ActorID:    "author-1",
		ActorRole:  auth.RoleAuthor,
	}); err != nil {
		t.Fatalf("empty patch: %v", err)
	}
	if len(log.entries) != 0 {
		t.Errorf("expected no activity for empty patch")
	}
	if pool.tx.committed {
		t.Errorf("expected no commit for empty patch")
	}
}

func TestExecute_RequiresApprovedAndCreator(t *testing.T) {
	repo := &fakeRepo{contracts: map[string]Contract{
		"c-1": {ID: "c-1", Name: "NDA", Status: StatusApproved, CreatedBy: "author-1"},
	}}
	svc, _, _, log := newTestService(repo, &fakeDirectory{})

	if _, err := svc.Execute(context.Background(), "c-1", "appr-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-creator, got %v", err)
	}

	updated, err := svc.Execute(context.Background(), "c-1", "author-1")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if updated.Status != StatusExecuted {
		t.Errorf("expected executed, got %s", updated.Status)
	}
	if len(log.entries) != 1 || log.entries[0].Action != activity.ActionContractExecuted {
		t.Errorf("expected executed entry, got %+v", log.entries)
	}

	if _, err := svc.Execute(context.Background(), "c-1", "author-1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on re-execute, got %v", err)
	}
}

func TestCheckExpirations_TransitionsDueContracts(t *testing.T) {
	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{contracts: map[string]Contract{
		"due":     {ID: "due", Name: "Old MSA", Status: StatusExecuted, ExpiryDate: &past, CreatedBy: "author-1"},
		"current": {ID: "current", Status: StatusExecuted, ExpiryDate: &future, CreatedBy: "author-1"},
		"open":    {ID: "open", Status: StatusExecuted, CreatedBy: "author-1"},
	}}
	svc, _, _, log := newTestService(repo, &fakeDirectory{})

	expired, err := svc.CheckExpirations(context.Background())
	if err != nil {
		t.Fatalf("check expirations: %v", err)
	}

	if len(expired) != 1 || expired[0] != "due" {
		t.Fatalf("expected only %q to expire, got %v", "due", expired)
	}
	if repo.contracts["due"].Status != StatusExpired {
		t.Errorf("expected due contract expired, got %s", repo.contracts["due"].Status)
	}
	if repo.contracts["current"].Status != StatusExecuted {
		t.Errorf("future-dated contract must stay executed")
	}
	if repo.contracts["open"].Status != StatusExecuted {
		t.Errorf("open-ended contract must stay executed")
	}
	if len(log.entries) != 1 || log.entries[0].Action != activity.ActionContractExpired {
		t.Errorf("expected one expired entry, got %+v", log.entries)
	}

	// Second sweep finds nothing.
	again, err := svc.CheckExpirations(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected idempotent sweep, got %v", again)
	}
}

func TestRestore_DraftOnly(t *testing.T) {
	repo := &fakeRepo{
		contracts: map[string]Contract{
			"c-1": {ID: "c-1", Name: "NDA", Status: StatusApproved, CreatedBy: "author-1", Content: "v3"},
		},
		versions: []Version{{ID: 1, ContractID: "c-1", Content: "v1", ChangedBy: "author-1"}},
	}
	svc, _, _, _ := newTestService(repo, &fakeDirectory{})

	_, err := svc.Restore(context.Background(), RestoreParams{
		ContractID: "c-1", ActorID: "author-1", ActorRole: auth.RoleAuthor, VersionID: 1,
	})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState outside draft, got %v", err)
	}
}

func TestRestore_SnapshotsCurrentContentFirst(t *testing.T) {
	repo := &fakeRepo{
		contracts: map[string]Contract{
			"c-1": {ID: "c-1", Name: "NDA", Status: StatusDraft, CreatedBy: "author-1", Content: "v3"},
		},
		versions: []Version{{
			ID: 1, ContractID: "c-1", Content: "v1", ChangedBy: "author-1",
			ChangedAt: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
		}},
		nextVersionID: 1,
	}
	svc, _, _, log := newTestService(repo, &fakeDirectory{})

	updated, err := svc.Restore(context.Background(), RestoreParams{
		ContractID: "c-1", ActorID: "author-1", ActorRole: auth.RoleAuthor, VersionID: 1,
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if updated.Content != "v1" {
		t.Errorf("expected restored content v1, got %q", updated.Content)
	}
	if len(repo.versions) != 2 {
		t.Fatalf("expected restore to snapshot current content, got %d versions", len(repo.versions))
	}
	if repo.versions[1].Content != "v3" {
		t.Errorf("snapshot must hold pre-restore content, got %q", repo.versions[1].Content)
	}
	if desc := repo.versions[1].ChangeDescription; desc == nil ||
		*desc != "Restored from version 1 (captured 2024-03-15T09:30:00Z)" {
		t.Errorf("description must name source version and capture time, got %v", desc)
	}
	if len(log.entries) != 1 || log.entries[0].Action != activity.ActionVersionRestored {
		t.Errorf("expected restored entry, got %+v", log.entries)
	}
}

func TestRestore_RejectsForeignVersion(t *testing.T) {
	repo := &fakeRepo{
		contracts: map[string]Contract{
			"c-1": {ID: "c-1", Status: StatusDraft, CreatedBy: "author-1", Content: "x"},
		},
		versions: []Version{{ID: 7, ContractID: "c-2", Content: "y", ChangedBy: "author-2"}},
	}
	svc, _, _, _ := newTestService(repo, &fakeDirectory{})

	_, err := svc.Restore(context.Background(), RestoreParams{
		ContractID: "c-1", ActorID: "author-1", ActorRole: auth.RoleAuthor, VersionID: 7,
	})
	if !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound for foreign version, got %v", err)
	}
}

type fakeDirectory struct {
	approvers []auth.User
}

func (f *fakeDirectory) ListApprovers(context.Context) ([]auth.User, error) {
	return f.approvers, nil
}

type roundCall struct {
	contractID  string
	approverIDs []string
}

type fakeApprovals struct {
	rounds []roundCall
}

func (f *fakeApprovals) CreateRound(_ context.Context, _ pgx.Tx, contractID string, approverIDs []string) error {
	f.rounds = append(f.rounds, roundCall{contractID: contractID, approverIDs: approverIDs})
	return nil
}

type fakeActivity struct {
	entries []activity.Entry
}

func (f *fakeActivity) Append(_ context.Context, _ pgx.Tx, entry activity.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

// fakeRepo keeps contracts in memory and applies writes immediately; tests
// assert commit/rollback behavior through fakeTx flags.
type fakeRepo struct {
	contracts     map[string]Contract
	versions      []Version
	nextVersionID int64
}

func (f *fakeRepo) Create(_ context.Context, _ pgx.Tx, c Contract) (Contract, error) {
	f.contracts[c.ID] = c
	return c, nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return Contract{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) GetForUpdate(_ context.Context, _ pgx.Tx, id string) (Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return Contract{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, _ pgx.Tx, id string, status Status) (Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return Contract{}, ErrNotFound
	}
	c.Status = status
	f.contracts[id] = c
	return c, nil
}

func (f *fakeRepo) UpdateContent(_ context.Context, _ pgx.Tx, id, content string) (Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return Contract{}, ErrNotFound
	}
	c.Content = content
	f.contracts[id] = c
	return c, nil
}

func (f *fakeRepo) UpdateDetails(_ context.Context, _ pgx.Tx, id string, patch DetailsPatch) (Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return Contract{}, ErrNotFound
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		c.Description = patch.Description
	}
	if patch.Parties != nil {
		c.Parties = *patch.Parties
	}
	if patch.EffectiveDate != nil {
		c.EffectiveDate = patch.EffectiveDate
	}
	if patch.ExpiryDate != nil {
		c.ExpiryDate = patch.ExpiryDate
	}
	if patch.Value != nil {
		c.Value = patch.Value
	}
	f.contracts[id] = c
	return c, nil
}

func (f *fakeRepo) List(_ context.Context, _ Filters) ([]Contract, int, error) {
	list := make([]Contract, 0, len(f.contracts))
	for _, c := range f.contracts {
		list = append(list, c)
	}
	return list, len(list), nil
}

func (f *fakeRepo) ListForExpiry(_ context.Context, _ pgx.Tx, cutoff time.Time) ([]Contract, error) {
	due := []Contract{}
	for _, c := range f.contracts {
		if c.Status == StatusExecuted && c.ExpiryDate != nil && c.ExpiryDate.Before(cutoff) {
			due = append(due, c)
		}
	}
	return due, nil
}

func (f *fakeRepo) InsertVersion(_ context.Context, _ pgx.Tx, v Version) (Version, error) {
	f.nextVersionID++
	v.ID = f.nextVersionID
	f.versions = append(f.versions, v)
	return v, nil
}

func (f *fakeRepo) ListVersions(_ context.Context, contractID string) ([]Version, error) {
	out := []Version{}
	for i := len(f.versions) - 1; i >= 0; i-- {
		if f.versions[i].ContractID == contractID {
			out = append(out, f.versions[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) GetVersion(_ context.Context, _ pgx.Tx, versionID int64) (Version, error) {
	for _, v := range f.versions {
		if v.ID == versionID {
			return v, nil
		}
	}
	return Version{}, ErrVersionNotFound
}

func (f *fakeRepo) CountByStatus(_ context.Context) (map[Status]int, error) {
	counts := map[Status]int{}
	for _, c := range f.contracts {
		counts[c.Status]++
	}
	return counts, nil
}

func (f *fakeRepo) CountExpiringBetween(_ context.Context, from, until time.Time) (int, error) {
	n := 0
	for _, c := range f.contracts {
		if c.Status == StatusExecuted && c.ExpiryDate != nil && c.ExpiryDate.After(from) && c.ExpiryDate.Before(until) {
			n++
		}
	}
	return n, nil
}

type fakePool struct {
	tx *fakeTx
}

func (f *fakePool) Begin(context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

type fakeTx struct {
	rolled    bool
	committed bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolled = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn { return nil }
