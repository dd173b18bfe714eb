package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

const uniqueViolation = "23505"

type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO categories (id, name, description, created_at)
VALUES ($1,$2,$3,$4)
`, c.ID, c.Name, c.Description, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.WrapError(domain.ErrConflict, "create category", fmt.Errorf("name %q already exists", c.Name))
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// List returns categories with the number of non-archived documents referencing each.
func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT c.id, c.name, c.description, c.created_at, COUNT(d.id)
FROM categories c
LEFT JOIN documents d ON d.category_id = c.id AND d.status <> 'Archived'
GROUP BY c.id, c.name, c.description, c.created_at
ORDER BY c.name
`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.DocumentCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	return r.getOne(ctx, `WHERE c.id = $1`, id)
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	return r.getOne(ctx, `WHERE lower(c.name) = lower($1)`, name)
}

func (r *CategoryRepository) getOne(ctx context.Context, where string, arg string) (*domain.Category, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT c.id, c.name, c.description, c.created_at,
	(SELECT COUNT(*) FROM documents d WHERE d.category_id = c.id AND d.status <> 'Archived')
FROM categories c
`+where, arg)

	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.DocumentCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCategoryNotFound, "get category", fmt.Errorf("ref=%s", arg))
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}
	return &c, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return ensureAffected(res, domain.ErrCategoryNotFound, "delete category", id)
}
