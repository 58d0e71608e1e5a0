package files

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var columns = []string{"id", "short_id", "filename", "size", "chunk_size", "chunk_count",
	"owner_id", "private", "persistent", "tags", "status", "created_at"}

func TestCreatePending_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+files\b.*'pending'`).
		WithArgs("id1", "abc", "cat.png", 261120, "u1", true, false, `["api upload"]`, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	f := &models.FileObject{
		ID: "id1", ShortID: "abc", Filename: "cat.png", ChunkSize: 261120,
		OwnerID: "u1", Private: true, Tags: []string{"api upload"}, CreatedAt: now,
	}
	if err := repo.CreatePending(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Status != models.StatusPending {
		t.Fatalf("status = %q, want pending", f.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePending_NilTagsEncodedAsEmptyArray(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+files\b`).
		WithArgs("id1", "abc", "a", 10, "u1", false, false, `[]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	f := &models.FileObject{ID: "id1", ShortID: "abc", Filename: "a", ChunkSize: 10, OwnerID: "u1"}
	if err := repo.CreatePending(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreatePending_ShortIDConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+files\b`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "files_short_id_key"})

	err := repo.CreatePending(context.Background(), &models.FileObject{ID: "id1", ShortID: "dup"})
	if !errors.Is(err, common.ErrShortIDConflict) {
		t.Fatalf("want ErrShortIDConflict, got %v", err)
	}
}

func TestCreatePending_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+files\b`).
		WillReturnError(errors.New("db down"))

	err := repo.CreatePending(context.Background(), &models.FileObject{ID: "id1", ShortID: "x"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestMarkComplete(t *testing.T) {
	q := `(?s)^UPDATE\s+files\s+SET\s+size=\$2,\s*chunk_count=\$3,\s*status='complete'\s+WHERE\s+id=\$1\s+AND\s+status='pending'$`

	t.Run("ok", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).WithArgs("id1", int64(300), 2).WillReturnResult(sqlmock.NewResult(0, 1))
		if err := repo.MarkComplete(context.Background(), "id1", 300, 2); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("not pending", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).WithArgs("id1", int64(300), 2).WillReturnResult(sqlmock.NewResult(0, 0))
		err := repo.MarkComplete(context.Background(), "id1", 300, 2)
		if err == nil || !regexp.MustCompile(`wrong rows affected count: 0`).MatchString(err.Error()) {
			t.Fatalf("expected rows count error, got %v", err)
		}
	})

	t.Run("rows affected error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))
		err := repo.MarkComplete(context.Background(), "id1", 300, 2)
		if err == nil || !regexp.MustCompile(`rows affected error: .*rows-err`).MatchString(err.Error()) {
			t.Fatalf("expected rows affected error, got %v", err)
		}
	})
}

func TestGetByShortID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(columns).
		AddRow("id1", "abc", "cat.png", int64(300), 261120, 1, "u1", false, true, []byte(`["a","b"]`), "complete", now)
	mock.ExpectQuery(`(?s)^SELECT\s+.*FROM\s+files\s+WHERE\s+short_id=\$1\s+AND\s+status='complete'$`).
		WithArgs("abc").WillReturnRows(rows)

	got, err := repo.GetByShortID(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &models.FileObject{
		ID: "id1", ShortID: "abc", Filename: "cat.png", Size: 300, ChunkSize: 261120, ChunkCount: 1,
		OwnerID: "u1", Persistent: true, Tags: []string{"a", "b"}, Status: models.StatusComplete, CreatedAt: now,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestGetByShortID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+files\s+WHERE\s+short_id=\$1`).
		WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByShortID(context.Background(), "nope")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestGetByShortIDForOwner_ScopesQuery(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE\s+short_id=\$1\s+AND\s+owner_id=\$2\s+AND\s+status='complete'`).
		WithArgs("abc", "u2").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByShortIDForOwner(context.Background(), "abc", "u2")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestListByOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(columns).
		AddRow("id1", "a", "a.txt", int64(1), 10, 1, "u1", false, false, []byte(`[]`), "complete", t1).
		AddRow("id2", "b", "b.txt", int64(0), 10, 0, "u1", true, false, nil, "complete", t1.Add(time.Minute))
	mock.ExpectQuery(`(?s)WHERE\s+owner_id=\$1\s+AND\s+status='complete'\s+ORDER\s+BY\s+created_at$`).
		WithArgs("u1").WillReturnRows(rows)

	got, err := repo.ListByOwner(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ShortID != "a" || got[1].ShortID != "b" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got[1].Tags != nil || !got[1].Private {
		t.Fatalf("second row decoded wrong: %+v", got[1])
	}
}

func TestListByOwner_RowError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).
		AddRow("id1", "a", "a.txt", int64(1), 10, 1, "u1", false, false, []byte(`[]`), "complete", time.Now()).
		RowError(0, errors.New("row broken"))
	mock.ExpectQuery(`FROM\s+files`).WithArgs("u1").WillReturnRows(rows)

	if _, err := repo.ListByOwner(context.Background(), "u1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestListByOwner_BadTags(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).
		AddRow("id1", "a", "a.txt", int64(1), 10, 1, "u1", false, false, []byte(`{`), "complete", time.Now())
	mock.ExpectQuery(`FROM\s+files`).WithArgs("u1").WillReturnRows(rows)

	_, err := repo.ListByOwner(context.Background(), "u1")
	if err == nil || !regexp.MustCompile(`decode tags`).MatchString(err.Error()) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestMarkDeletingAndDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^UPDATE\s+files\s+SET\s+status='deleting'\s+WHERE\s+id=\$1$`).
		WithArgs("id1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE\s+FROM\s+files\s+WHERE\s+id=\$1$`).
		WithArgs("id1").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkDeleting(context.Background(), "id1"); err != nil {
		t.Fatalf("MarkDeleting: %v", err)
	}
	if err := repo.Delete(context.Background(), "id1"); err != nil {
		t.Fatalf("Delete of missing row must succeed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelete_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+files`).WillReturnError(errors.New("boom"))
	err := repo.Delete(context.Background(), "id1")
	if err == nil || !regexp.MustCompile(`failed to delete file: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestSelectExpiredAndStale(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	before := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)status='complete'\s+AND\s+persistent=FALSE\s+AND\s+created_at<\$1.*LIMIT\s+\$2$`).
		WithArgs(before, 50).WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectQuery(`(?s)status='deleting'\s+OR\s+\(status='pending'\s+AND\s+created_at<\$1\).*LIMIT\s+\$2$`).
		WithArgs(before, 50).WillReturnRows(sqlmock.NewRows(columns).
		AddRow("id9", "z", "z.bin", int64(0), 10, 0, "u1", false, false, []byte(`[]`), "deleting", before))

	expired, err := repo.SelectExpired(context.Background(), before, 50)
	if err != nil || len(expired) != 0 {
		t.Fatalf("SelectExpired = %v, %v", expired, err)
	}
	stale, err := repo.SelectStale(context.Background(), before, 50)
	if err != nil || len(stale) != 1 || stale[0].Status != models.StatusDeleting {
		t.Fatalf("SelectStale = %v, %v", stale, err)
	}
}
