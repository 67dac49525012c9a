package postgres

import (
	"context"
	"database/sql"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

var chunkTestColumns = []string{
	"uri", "text", "article_uri", "clause_uri", "document_code", "version_date",
	"effective_from", "effective_until", "content_type", "article_number", "clause_number",
	"program", "cohort", "source_file", "page", "content_hash", "overrides", "cites", "has_exception_for",
}

func newMockRepository(t *testing.T) (*ChunkRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewChunkRepository(db), mock
}

func TestLookupScansFullChunk(t *testing.T) {
	repo, mock := newMockRepository(t)

	uri := "학칙:2024-03-01:art15:cl2"
	rows := sqlmock.NewRows(chunkTestColumns).AddRow(
		uri, "휴학은 통산 2년을 초과할 수 없다", "https://kg.khu.ac.kr/reg/학칙-2024-03-01#art15",
		"https://kg.khu.ac.kr/reg/학칙-2024-03-01#art15-cl2", "학칙", "2024-03-01",
		"2024-03-01", nil, "text", 15, 2,
		"UG", "Cohort_2024", "haksik_2024.pdf", 12, "sha256:abcd",
		[]byte(`["학칙:2019-03-01:art15:cl2"]`), []byte(`["학칙:2024-03-01:art20"]`), []byte(`[]`),
	)
	mock.ExpectQuery(`FROM chunks WHERE uri = \$1`).WithArgs(uri).WillReturnRows(rows)

	chunk, err := repo.Lookup(context.Background(), uri)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunk.URI != uri || chunk.ArticleNumber != 15 || chunk.ClauseNumber != 2 {
		t.Fatalf("identity fields mismatch: %+v", chunk)
	}
	if chunk.EffectiveFrom != "2024-03-01" || chunk.EffectiveUntil != "" {
		t.Fatalf("effective window mismatch: %q %q", chunk.EffectiveFrom, chunk.EffectiveUntil)
	}
	if chunk.Program != "UG" || chunk.Cohort != "Cohort_2024" || chunk.Page != 12 {
		t.Fatalf("metadata mismatch: %+v", chunk)
	}
	if !reflect.DeepEqual(chunk.Overrides, []string{"학칙:2019-03-01:art15:cl2"}) {
		t.Fatalf("overrides mismatch: %v", chunk.Overrides)
	}
	if !reflect.DeepEqual(chunk.Cites, []string{"학칙:2024-03-01:art20"}) {
		t.Fatalf("cites mismatch: %v", chunk.Cites)
	}
	if len(chunk.HasExceptionFor) != 0 {
		t.Fatalf("expected empty exception list, got %v", chunk.HasExceptionFor)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLookupUnknownURI(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`FROM chunks WHERE uri = \$1`).
		WithArgs("학칙:2024-03-01:art99").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Lookup(context.Background(), "학칙:2024-03-01:art99")
	if !domain.IsKind(err, domain.ErrChunkNotFound) {
		t.Fatalf("expected chunk not found, got %v", err)
	}
}

func TestListByArticleOrdersNewestFirst(t *testing.T) {
	repo, mock := newMockRepository(t)

	rows := sqlmock.NewRows(chunkTestColumns).
		AddRow("학칙:2024-03-01:art15", "개정 조문", nil, nil, "학칙", "2024-03-01",
			nil, nil, "text", 15, nil, nil, nil, nil, nil, nil,
			[]byte(`[]`), []byte(`[]`), []byte(`[]`)).
		AddRow("학칙:2019-03-01:art15", "구 조문", nil, nil, "학칙", "2019-03-01",
			nil, nil, "text", 15, nil, nil, nil, nil, nil, nil,
			[]byte(`[]`), []byte(`[]`), []byte(`[]`))
	mock.ExpectQuery(`WHERE document_code = \$1 AND article_number = \$2`).
		WithArgs("학칙", 15).
		WillReturnRows(rows)

	chunks, err := repo.ListByArticle(context.Background(), "학칙", 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(chunks))
	}
	if chunks[0].VersionDate != "2024-03-01" || chunks[1].VersionDate != "2019-03-01" {
		t.Fatalf("expected newest first, got %q then %q", chunks[0].VersionDate, chunks[1].VersionDate)
	}
	if chunks[1].ClauseNumber != 0 || chunks[1].Page != 0 {
		t.Fatalf("null columns must scan to zero values: %+v", chunks[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(int64(2026082301)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS chunks`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
