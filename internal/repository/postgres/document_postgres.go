package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"textdocs/internal/model"
	"textdocs/internal/repository"
)

var (
	newID = uuid.NewString
	now   = func() time.Time { return time.Now().UTC() }
)

// likeEscaper escapes LIKE wildcards so a search term matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(&d.ID, &d.Name, &d.FileType, &d.Content, &d.UploadDate); err != nil {
		return nil, err
	}
	d.UploadDate = d.UploadDate.UTC()
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, in model.DocumentInput) (*model.Document, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	doc := model.NewDocument(in, newID(), now())

	const q = `
		INSERT INTO files (id, name, file_type, content, upload_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, file_type, content, upload_date
	`
	return scanDocument(r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Name,
		doc.FileType,
		doc.Content,
		doc.UploadDate,
	))
}

// List returns metadata for all documents without reading the content column.
func (r *DocumentPostgres) List(ctx context.Context) ([]model.DocumentMetadata, error) {
	const q = `
		SELECT id, name, file_type, upload_date
		FROM files
		ORDER BY upload_date, id
	`
	return r.queryMetadata(ctx, q)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	const q = `
		SELECT id, name, file_type, content, upload_date
		FROM files
		WHERE id = $1
	`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return d, err
}

// SearchContent matches term as a literal, case-insensitive substring of content.
func (r *DocumentPostgres) SearchContent(ctx context.Context, term string) ([]model.DocumentMetadata, error) {
	if term == "" {
		return r.List(ctx)
	}
	const q = `
		SELECT id, name, file_type, upload_date
		FROM files
		WHERE content ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY upload_date, id
	`
	return r.queryMetadata(ctx, q, likeEscaper.Replace(term))
}

// Delete removes a document by ID and returns the removed row.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) (*model.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	const q = `
		DELETE FROM files
		WHERE id = $1
		RETURNING id, name, file_type, content, upload_date
	`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return d, err
}

// Ping verifies the database connection.
func (r *DocumentPostgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *DocumentPostgres) queryMetadata(ctx context.Context, q string, args ...any) ([]model.DocumentMetadata, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.DocumentMetadata, 0)
	for rows.Next() {
		var m model.DocumentMetadata
		if err := rows.Scan(&m.ID, &m.Name, &m.FileType, &m.UploadDate); err != nil {
			return nil, err
		}
		m.UploadDate = m.UploadDate.UTC()
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
