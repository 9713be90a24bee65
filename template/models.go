package template

import "time"

// Template is a reusable starting point for new contract drafts.
type Template struct {
	ID          string
	Name        string
	Description string
	Content     string
	CreatedAt   time.Time
}

// CreateParams contains write parameters for a new template.
type CreateParams struct {
	Name        string
	Description string
	Content     string
}
