package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

// ChunkRepository reads ingested regulation chunks by their stable URI.
// Writing is the ingestion pipeline's job; this service never mutates a
// chunk.
type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
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

func (r *ChunkRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chunks (
	uri TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	article_uri TEXT,
	clause_uri TEXT,
	document_code TEXT NOT NULL,
	version_date TEXT NOT NULL,
	effective_from TEXT,
	effective_until TEXT,
	content_type TEXT NOT NULL DEFAULT 'text',
	article_number INTEGER NOT NULL,
	clause_number INTEGER,
	program TEXT,
	cohort TEXT,
	source_file TEXT,
	page INTEGER,
	content_hash TEXT,
	overrides JSONB NOT NULL DEFAULT '[]'::jsonb,
	cites JSONB NOT NULL DEFAULT '[]'::jsonb,
	has_exception_for JSONB NOT NULL DEFAULT '[]'::jsonb
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_code, version_date);
CREATE INDEX IF NOT EXISTS idx_chunks_article ON chunks(document_code, article_number);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const chunkColumns = `
uri, text, article_uri, clause_uri, document_code, version_date,
effective_from, effective_until, content_type, article_number, clause_number,
program, cohort, source_file, page, content_hash, overrides, cites, has_exception_for`

func (r *ChunkRepository) Lookup(ctx context.Context, uri string) (*domain.Chunk, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE uri = $1`, uri)
	chunk, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrChunkNotFound, "lookup chunk", fmt.Errorf("uri %s", uri))
		}
		return nil, fmt.Errorf("scan chunk: %w", err)
	}
	return chunk, nil
}

// ListByArticle returns every stored version of one article, newest
// enactment first. The version history view uses it.
func (r *ChunkRepository) ListByArticle(ctx context.Context, documentCode string, article int) ([]domain.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+chunkColumns+`
FROM chunks
WHERE document_code = $1 AND article_number = $2
ORDER BY version_date DESC, clause_number ASC NULLS FIRST
`, documentCode, article)
	if err != nil {
		return nil, fmt.Errorf("query article versions: %w", err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, *chunk)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var articleURI, clauseURI, effectiveFrom, effectiveUntil sql.NullString
	var program, cohort, sourceFile, contentHash sql.NullString
	var clauseNumber, page sql.NullInt64
	var contentType string
	var overridesRaw, citesRaw, exceptionsRaw []byte

	err := row.Scan(
		&chunk.URI, &chunk.Text, &articleURI, &clauseURI, &chunk.DocumentCode, &chunk.VersionDate,
		&effectiveFrom, &effectiveUntil, &contentType, &chunk.ArticleNumber, &clauseNumber,
		&program, &cohort, &sourceFile, &page, &contentHash,
		&overridesRaw, &citesRaw, &exceptionsRaw,
	)
	if err != nil {
		return nil, err
	}

	chunk.ArticleURI = articleURI.String
	chunk.ClauseURI = clauseURI.String
	chunk.EffectiveFrom = effectiveFrom.String
	chunk.EffectiveUntil = effectiveUntil.String
	chunk.ContentType = domain.ContentType(contentType)
	chunk.ClauseNumber = int(clauseNumber.Int64)
	chunk.Program = program.String
	chunk.Cohort = cohort.String
	chunk.SourceFile = sourceFile.String
	chunk.Page = int(page.Int64)
	chunk.ContentHash = contentHash.String

	for _, col := range []struct {
		raw []byte
		dst *[]string
	}{
		{overridesRaw, &chunk.Overrides},
		{citesRaw, &chunk.Cites},
		{exceptionsRaw, &chunk.HasExceptionFor},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("unmarshal relation list: %w", err)
		}
	}

	return &chunk, nil
}
