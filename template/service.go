package template

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Service manages the template catalog.
type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) Create(ctx context.Context, params CreateParams) (Template, error) {
	if params.Name == "" {
		return Template{}, fmt.Errorf("template: name required")
	}
	if params.Content == "" {
		return Template{}, fmt.Errorf("template: content required")
	}
	return s.repo.Create(ctx, Template{
		Name:        params.Name,
		Description: params.Description,
		Content:     params.Content,
	})
}

func (s *Service) Get(ctx context.Context, id string) (Template, error) {
	if id == "" {
		return Template{}, fmt.Errorf("template: missing template id")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Template, error) {
	return s.repo.List(ctx)
}

// Seed installs the default catalog on an empty templates table. A non-empty
// table is left alone so operator edits survive restarts.
func (s *Service) Seed(ctx context.Context) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Debug().Int("templates", n).Msg("template catalog already seeded")
		return nil
	}

	for _, t := range defaultTemplates {
		if _, err := s.repo.Create(ctx, t); err != nil {
			return fmt.Errorf("template: seed %q: %w", t.Name, err)
		}
	}
	s.log.Info().Int("templates", len(defaultTemplates)).Msg("template catalog seeded")
	return nil
}
