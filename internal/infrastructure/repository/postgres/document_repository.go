package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

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

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the documents, categories and audit_log tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS categories (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name ON categories(lower(name));

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	content_type TEXT NOT NULL,
	file_id TEXT NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('Queued','Uploaded','Pending','Processed','Unknown','Archived')),
	category_id TEXT,
	kv_data JSONB NOT NULL DEFAULT '[]'::jsonb,
	text TEXT,
	embedding JSONB,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ,
	archived_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category_id);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);

CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	action TEXT NOT NULL,
	document_id TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_document ON audit_log(document_id, created_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	args, err := sqlrow.DocumentArgs(doc)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (`+sqlrow.DocumentColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`, args...)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+sqlrow.DocumentColumns+`
FROM documents
WHERE id = $1
`, id)
	doc, err := sqlrow.ScanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	var (
		conds []string
		args  []any
	)
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		conds = append(conds, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.NameQuery); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		conds = append(conds, fmt.Sprintf(`filename ILIKE $%d ESCAPE '\'`, len(args)))
	}

	query := "SELECT " + sqlrow.DocumentColumns + "\nFROM documents\n"
	if len(conds) > 0 {
		query += "WHERE " + strings.Join(conds, " AND ") + "\n"
	}
	query += "ORDER BY created_at DESC, id"

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
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM documents
WHERE category_id = $1 AND status <> 'Archived'
`, categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count category documents: %w", err)
	}
	return n, nil
}

// mutate locks the row, applies m and writes back every mutable column in one transaction.
func (r *DocumentRepository) mutate(ctx context.Context, id string, m domain.Mutation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, `
SELECT `+sqlrow.DocumentColumns+`
FROM documents
WHERE id = $1
FOR UPDATE
`, id)
	current, err := sqlrow.ScanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrDocumentNotFound, "update document", fmt.Errorf("id=%s", id))
		}
		return fmt.Errorf("scan document: %w", err)
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

	res, err := tx.ExecContext(ctx, `
UPDATE documents
SET status = $2, category_id = $3, kv_data = $4, text = $5, embedding = $6, error_message = $7,
	processed_at = $8, archived_at = $9, updated_at = $10
WHERE id = $1
`, id, string(next.Status), sqlrow.NullString(next.CategoryID), kv, sqlrow.NullString(next.Text), emb,
		sqlrow.NullString(next.Error), sqlrow.NullTime(next.ProcessedAt), sqlrow.NullTime(next.ArchivedAt), next.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if err := ensureAffected(res, domain.ErrDocumentNotFound, "update document", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update tx: %w", err)
	}
	return nil
}

func ensureAffected(res sql.Result, kind error, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(kind, op, fmt.Errorf("id=%s", id))
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
