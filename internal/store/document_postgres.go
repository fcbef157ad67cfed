package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docshelf/docshelf/internal/documents"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentPostgresStore is a PostgreSQL implementation of
// documents.Repository.
type DocumentPostgresStore struct {
	pool *pgxpool.Pool
}

// NewDocumentPostgresStore creates a new PostgreSQL-backed document store.
func NewDocumentPostgresStore(pool *pgxpool.Pool) *DocumentPostgresStore {
	return &DocumentPostgresStore{pool: pool}
}

const documentColumns = `id, title, description, stored_name, file_size, page_count, owner_id, status, error_message, created_at`

func (p *DocumentPostgresStore) Save(ctx context.Context, doc *documents.Document) error {
	query := `
		INSERT INTO pdf_documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := p.pool.Exec(ctx, query,
		doc.ID,
		doc.Title,
		doc.Description,
		doc.StoredName,
		doc.FileSize,
		doc.PageCount,
		doc.OwnerID,
		string(doc.Status),
		doc.Error,
		doc.CreatedAt,
	)

	return err
}

func (p *DocumentPostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM pdf_documents
		WHERE id = $1
	`

	return p.scanOne(p.pool.QueryRow(ctx, query, id))
}

func (p *DocumentPostgresStore) List(ctx context.Context, ownerID string, offset, limit int) ([]*documents.Document, int64, error) {
	var total int64
	if err := p.pool.QueryRow(ctx,
		`SELECT count(*) FROM pdf_documents WHERE owner_id = $1`, ownerID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + documentColumns + `
		FROM pdf_documents
		WHERE owner_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`

	rows, err := p.pool.Query(ctx, query, ownerID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	docs := make([]*documents.Document, 0)

	for rows.Next() {
		doc, err := p.scanOne(rows)
		if err != nil {
			return nil, 0, err
		}

		docs = append(docs, doc)
	}

	return docs, total, rows.Err()
}

func (p *DocumentPostgresStore) Update(ctx context.Context, id uuid.UUID, update documents.Update) (*documents.Document, error) {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Title != nil {
		add("title", *update.Title)
	}

	if update.Description != nil {
		add("description", *update.Description)
	}

	if update.PageCount != nil {
		add("page_count", *update.PageCount)
	}

	if update.Status != nil {
		add("status", string(*update.Status))
	}

	if update.Error != nil {
		add("error_message", *update.Error)
	}

	if len(sets) == 0 {
		return p.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE pdf_documents
		SET %s
		WHERE id = $%d
		RETURNING `+documentColumns,
		strings.Join(sets, ", "), len(args),
	)

	return p.scanOne(p.pool.QueryRow(ctx, query, args...))
}

func (p *DocumentPostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM pdf_documents WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return documents.ErrNotFound
	}

	return nil
}

func (p *DocumentPostgresStore) scanOne(row pgx.Row) (*documents.Document, error) {
	var (
		doc    documents.Document
		status string
	)

	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.Description,
		&doc.StoredName,
		&doc.FileSize,
		&doc.PageCount,
		&doc.OwnerID,
		&status,
		&doc.Error,
		&doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, documents.ErrNotFound
		}

		return nil, err
	}

	doc.Status = documents.Status(status)

	return &doc, nil
}
