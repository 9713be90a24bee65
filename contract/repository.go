package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no contract row exists for the identifier.
	ErrNotFound = errors.New("contract: not found")
	// ErrVersionNotFound is returned when a version row is absent or belongs
	// to a different contract.
	ErrVersionNotFound = errors.New("contract: version not found")
)

const contractColumns = `id, name, description, parties, effective_date, expiry_date, contract_value, status, content, created_by, template_id, created_at, updated_at`

// Repository handles data access for contracts and their version history.
// Methods taking pgx.Tx participate in a transition's transaction; the rest
// run on the pool.
type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, c Contract) (Contract, error)
	Get(ctx context.Context, id string) (Contract, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Contract, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (Contract, error)
	UpdateContent(ctx context.Context, tx pgx.Tx, id, content string) (Contract, error)
	UpdateDetails(ctx context.Context, tx pgx.Tx, id string, patch DetailsPatch) (Contract, error)
	List(ctx context.Context, filters Filters) ([]Contract, int, error)
	ListForExpiry(ctx context.Context, tx pgx.Tx, cutoff time.Time) ([]Contract, error)
	InsertVersion(ctx context.Context, tx pgx.Tx, v Version) (Version, error)
	ListVersions(ctx context.Context, contractID string) ([]Version, error)
	GetVersion(ctx context.Context, tx pgx.Tx, versionID int64) (Version, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	CountExpiringBetween(ctx context.Context, from, until time.Time) (int, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, c Contract) (Contract, error) {
	query := `
		INSERT INTO contracts (id, name, description, parties, effective_date, expiry_date, contract_value, status, content, created_by, template_id)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + contractColumns

	row := tx.QueryRow(ctx, query,
		c.ID,
		c.Name,
		c.Description,
		c.Parties,
		c.EffectiveDate,
		c.ExpiryDate,
		c.Value,
		c.Status,
		c.Content,
		c.CreatedBy,
		c.TemplateID,
	)
	created, err := scanContract(row)
	if err != nil {
		return Contract{}, fmt.Errorf("contract: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`

	c, err := scanContract(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contract{}, ErrNotFound
		}
		return Contract{}, fmt.Errorf("contract: get: %w", err)
	}
	return c, nil
}

func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1 FOR UPDATE`

	c, err := scanContract(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contract{}, ErrNotFound
		}
		return Contract{}, fmt.Errorf("contract: get for update: %w", err)
	}
	return c, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (Contract, error) {
	query := `
		UPDATE contracts
		SET status = $2,
		    updated_at = get_tx_timestamp()
		WHERE id = $1
		RETURNING ` + contractColumns

	c, err := scanContract(tx.QueryRow(ctx, query, id, status))
	if err != nil {
		return Contract{}, fmt.Errorf("contract: update status: %w", err)
	}
	return c, nil
}

func (r *PGRepository) UpdateContent(ctx context.Context, tx pgx.Tx, id, content string) (Contract, error) {
	query := `
		UPDATE contracts
		SET content = $2,
		    updated_at = get_tx_timestamp()
		WHERE id = $1
		RETURNING ` + contractColumns

	c, err := scanContract(tx.QueryRow(ctx, query, id, content))
	if err != nil {
		return Contract{}, fmt.Errorf("contract: update content: %w", err)
	}
	return c, nil
}

// UpdateDetails overwrites only the patched metadata columns.
func (r *PGRepository) UpdateDetails(ctx context.Context, tx pgx.Tx, id string, patch DetailsPatch) (Contract, error) {
	set := []string{"updated_at = get_tx_timestamp()"}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Parties != nil {
		add("parties", *patch.Parties)
	}
	if patch.EffectiveDate != nil {
		add("effective_date", *patch.EffectiveDate)
	}
	if patch.ExpiryDate != nil {
		add("expiry_date", *patch.ExpiryDate)
	}
	if patch.Value != nil {
		add("contract_value", *patch.Value)
	}

	query := fmt.Sprintf(`UPDATE contracts SET %s WHERE id = $1 RETURNING %s`, strings.Join(set, ", "), contractColumns)

	c, err := scanContract(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return Contract{}, fmt.Errorf("contract: update details: %w", err)
	}
	return c, nil
}

func (r *PGRepository) List(ctx context.Context, filters Filters) ([]Contract, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	base := `SELECT ` + contractColumns + ` FROM contracts`
	where := []string{"1=1"}
	args := []any{}

	if filters.CreatorUserID != "" {
		where = append(where, fmt.Sprintf("created_by=$%d", len(args)+1))
		args = append(args, filters.CreatorUserID)
	}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status=$%d", len(args)+1))
		args = append(args, filters.Status)
	}
	if filters.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR parties ILIKE $%d OR COALESCE(description,'') ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filters.Search+"%")
	}

	whereClause := " WHERE " + strings.Join(where, " AND ")

	limit := filters.PageSize
	offset := (filters.Page - 1) * filters.PageSize

	query := fmt.Sprintf(`%s%s ORDER BY created_at DESC LIMIT %d OFFSET %d`, base, whereClause, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("contract: query list: %w", err)
	}
	defer rows.Close()

	list := []Contract{}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM contracts%s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("contract: count list: %w", err)
	}

	return list, total, nil
}

// ListForExpiry locks and returns executed contracts whose expiry date has
// passed the cutoff.
func (r *PGRepository) ListForExpiry(ctx context.Context, tx pgx.Tx, cutoff time.Time) ([]Contract, error) {
	query := `
		SELECT ` + contractColumns + `
		FROM contracts
		WHERE status = 'executed'
		  AND expiry_date IS NOT NULL
		  AND expiry_date < $1
		ORDER BY expiry_date
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("contract: list for expiry: %w", err)
	}
	defer rows.Close()

	list := []Contract{}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *PGRepository) InsertVersion(ctx context.Context, tx pgx.Tx, v Version) (Version, error) {
	const query = `
		INSERT INTO contract_versions (contract_id, content, changed_by, change_description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, contract_id, content, changed_by, change_description, changed_at
	`

	created, err := scanVersion(tx.QueryRow(ctx, query, v.ContractID, v.Content, v.ChangedBy, v.ChangeDescription))
	if err != nil {
		return Version{}, fmt.Errorf("contract: insert version: %w", err)
	}
	return created, nil
}

func (r *PGRepository) ListVersions(ctx context.Context, contractID string) ([]Version, error) {
	const query = `
		SELECT id, contract_id, content, changed_by, change_description, changed_at
		FROM contract_versions
		WHERE contract_id = $1
		ORDER BY changed_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("contract: list versions: %w", err)
	}
	defer rows.Close()

	versions := []Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *PGRepository) GetVersion(ctx context.Context, tx pgx.Tx, versionID int64) (Version, error) {
	const query = `
		SELECT id, contract_id, content, changed_by, change_description, changed_at
		FROM contract_versions
		WHERE id = $1
	`

	v, err := scanVersion(tx.QueryRow(ctx, query, versionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Version{}, ErrVersionNotFound
		}
		return Version{}, fmt.Errorf("contract: get version: %w", err)
	}
	return v, nil
}

func (r *PGRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	const query = `SELECT status, COUNT(*) FROM contracts GROUP BY status`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("contract: count by status: %w", err)
	}
	defer rows.Close()

	counts := map[Status]int{}
	for rows.Next() {
		var (
			status Status
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("contract: scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountExpiringBetween counts executed contracts whose expiry date falls in
// the (from, until) window.
func (r *PGRepository) CountExpiringBetween(ctx context.Context, from, until time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM contracts
		WHERE status = 'executed'
		  AND expiry_date IS NOT NULL
		  AND expiry_date > $1
		  AND expiry_date < $2
	`

	var n int
	if err := r.pool.QueryRow(ctx, query, from, until).Scan(&n); err != nil {
		return 0, fmt.Errorf("contract: count expiring: %w", err)
	}
	return n, nil
}

func scanContract(row pgx.Row) (Contract, error) {
	var c Contract
	return c, row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Parties,
		&c.EffectiveDate,
		&c.ExpiryDate,
		&c.Value,
		&c.Status,
		&c.Content,
		&c.CreatedBy,
		&c.TemplateID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

func scanVersion(row pgx.Row) (Version, error) {
	var v Version
	return v, row.Scan(
		&v.ID,
		&v.ContractID,
		&v.Content,
		&v.ChangedBy,
		&v.ChangeDescription,
		&v.ChangedAt,
	)
}
