package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markoladipo/notara/internal/config"
	"github.com/markoladipo/notara/internal/core"
	"github.com/markoladipo/notara/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

var _ core.DbClient = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	if cfg.SslCertPath != "" {
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", cfg.SslCertPath)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: sqlDB}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q, user.ID, user.FirstName, user.Email, user.PasswordHash)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Notebooks

func (c *DatabaseClient) CreateNotebook(ctx context.Context, nb *models.Notebook) error {
	if nb == nil {
		return errors.New("nil notebook")
	}
	const q = `
		INSERT INTO notebooks (id, user_id, title, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q, nb.ID, nb.UserID, nb.Title, nb.Description, nb.Status)
	return err
}

func (c *DatabaseClient) GetNotebookByID(ctx context.Context, id string) (*models.Notebook, error) {
	const q = `
		SELECT id, user_id, title, description, status, created_at, updated_at
		FROM notebooks WHERE id = $1
	`
	var nb models.Notebook
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&nb.ID, &nb.UserID, &nb.Title, &nb.Description, &nb.Status, &nb.CreatedAt, &nb.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &nb, nil
}

func (c *DatabaseClient) ListNotebooksByUser(ctx context.Context, userID string) ([]models.Notebook, error) {
	const q = `
		SELECT id, user_id, title, description, status, created_at, updated_at
		FROM notebooks
		WHERE user_id = $1
		   OR id IN (SELECT notebook_id FROM notebook_members WHERE user_id = $1)
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notebook
	for rows.Next() {
		var nb models.Notebook
		if err := rows.Scan(
			&nb.ID, &nb.UserID, &nb.Title, &nb.Description, &nb.Status, &nb.CreatedAt, &nb.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, nb)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateNotebookStatus(ctx context.Context, id string, status string) error {
	const q = `
		UPDATE notebooks
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("notebook not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) AddNotebookMember(ctx context.Context, notebookID, userID string) error {
	const q = `
		INSERT INTO notebook_members (notebook_id, user_id, added_at)
		VALUES ($1, $2, now())
		ON CONFLICT DO NOTHING
	`
	_, err := c.db.ExecContext(ctx, q, notebookID, userID)
	return err
}

// Documents

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, notebook_id, user_id, file_name, storage_url, file_type, content_type, status, unit_count, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.NotebookID, doc.UserID, doc.FileName, doc.StorageURL, doc.FileType, doc.ContentType, doc.Status, doc.UnitCount)
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, notebook_id, user_id, file_name, storage_url, file_type, content_type, status, unit_count, summary, created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.NotebookID, &d.UserID, &d.FileName, &d.StorageURL, &d.FileType, &d.ContentType,
		&d.Status, &d.UnitCount, &d.Summary, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) ListDocumentsByNotebook(ctx context.Context, notebookID string) ([]models.Document, error) {
	const q = `
		SELECT id, notebook_id, user_id, file_name, storage_url, file_type, content_type, status, unit_count, summary, created_at, updated_at
		FROM documents
		WHERE notebook_id = $1
		ORDER BY created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, notebookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.NotebookID, &d.UserID, &d.FileName, &d.StorageURL, &d.FileType, &d.ContentType,
			&d.Status, &d.UnitCount, &d.Summary, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) ListDocumentStatuses(ctx context.Context, notebookID string) ([]string, error) {
	const q = `SELECT status FROM documents WHERE notebook_id = $1`
	rows, err := c.db.QueryContext(ctx, q, notebookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateDocumentStatus(ctx context.Context, id string, status string) error {
	const q = `
		UPDATE documents
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) UpdateDocumentIngestResult(ctx context.Context, id string, status string, unitCount int) error {
	const q = `
		UPDATE documents
		SET status = $2, unit_count = $3, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status, unitCount)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) UpdateDocumentSummary(ctx context.Context, id string, summary string) error {
	const q = `
		UPDATE documents
		SET summary = $2, updated_at = now()
		WHERE id = $1
	`
	_, err := c.db.ExecContext(ctx, q, id, summary)
	return err
}

func (c *DatabaseClient) DeleteDocument(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// Passages

// InsertPassages inserts one batch in a single transaction; the batch is
// either fully persisted or not at all.
func (c *DatabaseClient) InsertPassages(ctx context.Context, passages []models.Passage) error {
	if len(passages) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO passages
			(id, notebook_id, user_id, document_id, position, content, embedding, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range passages {
		p := &passages[i]
		vec := pgvector.NewVector(p.Embedding)
		meta, err := json.Marshal(p.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal passage metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.NotebookID, p.UserID, p.DocumentID, p.Position, p.Content, vec, meta,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) DeletePassagesByDocument(ctx context.Context, documentID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM passages WHERE document_id = $1`, documentID)
	return err
}

func (c *DatabaseClient) DeletePassagesByNotebook(ctx context.Context, notebookID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM passages WHERE notebook_id = $1`, notebookID)
	return err
}

func (c *DatabaseClient) ListPassagesByNotebook(ctx context.Context, notebookID, userID string) ([]models.Passage, error) {
	const q = `
		SELECT p.id, p.notebook_id, p.user_id, p.document_id, p.position, p.content, p.metadata, p.created_at
		FROM passages p
		JOIN notebooks n ON n.id = p.notebook_id
		WHERE p.notebook_id = $1
		  AND (n.user_id = $2 OR EXISTS (
		        SELECT 1 FROM notebook_members m
		        WHERE m.notebook_id = p.notebook_id AND m.user_id = $2))
		ORDER BY p.document_id ASC, p.position ASC
	`
	rows, err := c.db.QueryContext(ctx, q, notebookID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Passage
	for rows.Next() {
		var (
			p    models.Passage
			meta []byte
		)
		if err := rows.Scan(
			&p.ID, &p.NotebookID, &p.UserID, &p.DocumentID, &p.Position, &p.Content, &meta, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &p.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal passage metadata: %w", err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SearchPassages runs the nearest-neighbor query. Cosine similarity is
// derived from pgvector's cosine distance operator as 1 - (a <=> b); the
// floor and the membership check live in the same statement.
func (c *DatabaseClient) SearchPassages(ctx context.Context, search core.PassageSearch) ([]models.RetrievedSource, error) {
	const ownerQ = `
		SELECT p.id, p.content, COALESCE(p.metadata->>'file_name', ''),
		       1 - (p.embedding <=> $2) AS similarity
		FROM passages p
		WHERE p.notebook_id = $1
		  AND p.user_id = $3
		  AND 1 - (p.embedding <=> $2) >= $4
		ORDER BY p.embedding <=> $2
		LIMIT $5
	`
	const sharedQ = `
		SELECT p.id, p.content, COALESCE(p.metadata->>'file_name', ''),
		       1 - (p.embedding <=> $2) AS similarity
		FROM passages p
		JOIN notebooks n ON n.id = p.notebook_id
		WHERE p.notebook_id = $1
		  AND (n.user_id = $3 OR EXISTS (
		        SELECT 1 FROM notebook_members m
		        WHERE m.notebook_id = p.notebook_id AND m.user_id = $3))
		  AND 1 - (p.embedding <=> $2) >= $4
		ORDER BY p.embedding <=> $2
		LIMIT $5
	`
	q := ownerQ
	if search.SharedAccess {
		q = sharedQ
	}

	vec := pgvector.NewVector(search.Vector)
	rows, err := c.db.QueryContext(ctx, q,
		search.NotebookID, vec, search.CallerID, search.MinSimilarity, search.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RetrievedSource
	for rows.Next() {
		var s models.RetrievedSource
		if err := rows.Scan(&s.ID, &s.Content, &s.FileName, &s.Similarity); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
