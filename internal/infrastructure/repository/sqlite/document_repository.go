package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/intellidocs/internal/core/domain"
	"github.com/kirillkom/intellidocs/internal/infrastructure/repository/sqlrow"
)

type DocumentRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	args, err := sqlrow.DocumentArgs(doc)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO documents (`+sqlrow.DocumentColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return getDocument(ctx, r.db, id, "get document")
}

func (r *DocumentRepository) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	var (
		conds []string
		args  []any
	)
	if filter.CategoryID != "" {
		conds = append(conds, "category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if q := strings.TrimSpace(filter.NameQuery); q != "" {
		conds = append(conds, `filename LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q)+"%")
	}

	query := "SELECT " + sqlrow.DocumentColumns + " FROM documents"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := sqlrow.ScanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	return r.mutate(ctx, id, domain.SetStatus(status, errMessage))
}

func (r *DocumentRepository) SaveProcessingResult(ctx context.Context, id string, result domain.ProcessingResult) error {
	return r.mutate(ctx, id, domain.ApplyProcessingResult(result))
}

func (r *DocumentRepository) UpdateKeyValues(ctx context.Context, id string, kvs []domain.KeyValue) error {
	return r.mutate(ctx, id, domain.ReplaceKeyValues(kvs))
}

func (r *DocumentRepository) UpdateCategory(ctx context.Context, id, categoryID string, status domain.DocumentStatus) error {
	return r.mutate(ctx, id, domain.AssignCategory(categoryID, status, r.now()))
}

func (r *DocumentRepository) Archive(ctx context.Context, id string, at time.Time) error {
	return r.mutate(ctx, id, domain.MarkArchived(at))
}

func (r *DocumentRepository) CountActiveByCategory(ctx context.Context, categoryID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE category_id = ? AND status <> 'Archived'`, categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count category documents: %w", err)
	}
	return n, nil
}

func (r *DocumentRepository) mutate(ctx context.Context, id string, m domain.Mutation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := getDocument(ctx, tx, id, "update document")
	if err != nil {
		return err
	}
	next, err := current.Apply(r.now(), m)
	if err != nil {
		return err
	}
	kv, err := sqlrow.EncodeKeyValues(next.KeyValues)
	if err != nil {
		return err
	}
	emb, err := sqlrow.EncodeEmbedding(next.Embedding)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
UPDATE documents
SET status = ?, category_id = ?, kv_data = ?, text = ?, embedding = ?, error_message = ?,
	processed_at = ?, archived_at = ?, updated_at = ?
WHERE id = ?`,
		string(next.Status), sqlrow.NullString(next.CategoryID), kv, sqlrow.NullString(next.Text), emb,
		sqlrow.NullString(next.Error), sqlrow.NullTime(next.ProcessedAt), sqlrow.NullTime(next.ArchivedAt),
		next.UpdatedAt, id)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update tx: %w", err)
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDocument(ctx context.Context, q queryRower, id, op string) (*domain.Document, error) {
	row := q.QueryRowContext(ctx, `SELECT `+sqlrow.DocumentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := sqlrow.ScanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, op, fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
