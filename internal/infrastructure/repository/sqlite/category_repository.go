package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

const categorySelect = `
SELECT c.id, c.name, c.description, c.created_at,
	(SELECT COUNT(*) FROM documents d WHERE d.category_id = c.id AND d.status <> 'Archived')
FROM categories c`

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
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, description, created_at) VALUES (?,?,?,?)`,
		c.ID, c.Name, c.Description, c.CreatedAt)
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return domain.WrapError(domain.ErrConflict, "create category", fmt.Errorf("name %q already exists", c.Name))
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, categorySelect+` ORDER BY c.name COLLATE NOCASE`)
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
	return r.getOne(ctx, ` WHERE c.id = ?`, id)
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	return r.getOne(ctx, ` WHERE c.name = ? COLLATE NOCASE`, name)
}

func (r *CategoryRepository) getOne(ctx context.Context, where, arg string) (*domain.Category, error) {
	var c domain.Category
	err := r.db.QueryRowContext(ctx, categorySelect+where, arg).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.DocumentCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCategoryNotFound, "get category", fmt.Errorf("ref=%s", arg))
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}
	return &c, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrCategoryNotFound, "delete category", fmt.Errorf("id=%s", id))
	}
	return nil
}
