package chunks

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestInsert(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+file_chunks\b.*ON\s+CONFLICT\s*\(object_id,\s*seq\)`).
		WithArgs("obj", 2, []byte("data"), []byte("sum")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), &models.Chunk{ObjectID: "obj", Seq: 2, Data: []byte("data"), Checksum: []byte("sum")})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_Error(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`INSERT\s+INTO\s+file_chunks`).WillReturnError(errors.New("disk full"))

	err := repo.Insert(context.Background(), &models.Chunk{ObjectID: "obj"})
	assert.ErrorContains(t, err, "failed to insert chunk: disk full")
}

func TestGet(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`^SELECT\s+data,\s*checksum\s+FROM\s+file_chunks\s+WHERE\s+object_id=\$1\s+AND\s+seq=\$2$`).
		WithArgs("obj", 0).
		WillReturnRows(sqlmock.NewRows([]string{"data", "checksum"}).AddRow([]byte("hello"), []byte("sum")))

	c, err := repo.Get(context.Background(), "obj", 0)
	require.NoError(t, err)
	assert.Equal(t, &models.Chunk{ObjectID: "obj", Seq: 0, Data: []byte("hello"), Checksum: []byte("sum")}, c)
}

func TestGet_Missing(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`FROM\s+file_chunks`).WithArgs("obj", 7).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "obj", 7)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDeleteAll(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`^DELETE\s+FROM\s+file_chunks\s+WHERE\s+object_id=\$1$`).
		WithArgs("obj").WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.DeleteAll(context.Background(), "obj"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
