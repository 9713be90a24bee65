package template

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no template row exists for the identifier.
	ErrNotFound = errors.New("template: not found")
	// ErrDuplicateName is returned when a template name is already taken.
	ErrDuplicateName = errors.New("template: name already exists")
)

// Repository handles data access for contract templates.
type Repository interface {
	Create(ctx context.Context, t Template) (Template, error)
	Get(ctx context.Context, id string) (Template, error)
	List(ctx context.Context) ([]Template, error)
	Count(ctx context.Context) (int, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Create(ctx context.Context, t Template) (Template, error) {
	const query = `
		INSERT INTO contract_templates (name, description, content)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, content, created_at
	`

	created, err := scanTemplate(r.pool.QueryRow(ctx, query, t.Name, t.Description, t.Content))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Template{}, ErrDuplicateName
		}
		return Template{}, fmt.Errorf("template: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Template, error) {
	const query = `SELECT id, name, description, content, created_at FROM contract_templates WHERE id = $1`

	t, err := scanTemplate(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrNotFound
		}
		return Template{}, fmt.Errorf("template: get: %w", err)
	}
	return t, nil
}

func (r *PGRepository) List(ctx context.Context) ([]Template, error) {
	const query = `SELECT id, name, description, content, created_at FROM contract_templates ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("template: list: %w", err)
	}
	defer rows.Close()

	templates := []Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *PGRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contract_templates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("template: count: %w", err)
	}
	return n, nil
}

func scanTemplate(row pgx.Row) (Template, error) {
	var t Template
	return t, row.Scan(&t.ID, &t.Name, &t.Description, &t.Content, &t.CreatedAt)
}
