package contract

import "time"

// Status enumerates the contract lifecycle states.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusExecuted        Status = "executed"
	StatusExpired         Status = "expired"
)

// Contract mirrors the contracts table. Content always holds the latest
// accepted text; history lives in contract_versions.
type Contract struct {
	ID            string
	Name          string
	Description   *string
	Parties       string
	EffectiveDate *time.Time
	ExpiryDate    *time.Time
	Value         *int64
	Status        Status
	Content       string
	CreatedBy     string
	TemplateID    *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Version is an immutable snapshot of the content a contract held before an
// accepted edit, plus who changed it and when.
type Version struct {
	ID                int64
	ContractID        string
	Content           string
	ChangedBy         string
	ChangeDescription *string
	ChangedAt         time.Time
}

// CreateParams contains write parameters for drafting a new contract.
type CreateParams struct {
	Name          string
	Description   *string
	Parties       string
	EffectiveDate *time.Time
	ExpiryDate    *time.Time
	Value         *int64
	Content       string
	CreatedBy     string
	TemplateID    *string
}

// DetailsPatch carries partial metadata updates; nil fields are left
// untouched. Content is deliberately absent, edits to it go through the
// version-tracked path.
type DetailsPatch struct {
	Name          *string
	Description   *string
	Parties       *string
	EffectiveDate *time.Time
	ExpiryDate    *time.Time
	Value         *int64
}

// Empty reports whether the patch changes nothing.
func (p DetailsPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Parties == nil &&
		p.EffectiveDate == nil && p.ExpiryDate == nil && p.Value == nil
}

// Filters narrows contract listings.
type Filters struct {
	CreatorUserID string
	Status        Status
	Search        string
	Page          int
	PageSize      int
}

// Stats summarises the portfolio for dashboards.
type Stats struct {
	ByStatus     map[Status]int
	ExpiringSoon int
}
