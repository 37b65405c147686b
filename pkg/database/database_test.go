package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"migrations/002_polls.sql":  {Data: []byte("CREATE TABLE polls (id BIGSERIAL)")},
		"migrations/001_schema.sql": {Data: []byte("CREATE TABLE users (id BIGSERIAL)")},
		"migrations/README.md":      {Data: []byte("ignored")},
	}
}

func TestMigrateAppliesOnlyNewFiles(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT name FROM schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("001_schema.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE polls").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("002_polls.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	applied, err := migrate(context.Background(), mock, testMigrations())
	require.NoError(t, err)
	assert.Equal(t, []string{"002_polls.sql"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateStopsOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT name FROM schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE users").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	applied, err := migrate(context.Background(), mock, testMigrations())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_schema.sql")
	assert.Empty(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	names, err := migrationNames(migrationsFS)
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_schema.sql", names[0])
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = WithTx(context.Background(), mock, func(tx pgx.Tx) error { panic("boom") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestViolationHelpers(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "votes_poll_user_key"}
	assert.True(t, IsUniqueViolation(unique, ""))
	assert.True(t, IsUniqueViolation(unique, "votes_poll_user_key"))
	assert.False(t, IsUniqueViolation(unique, "users_email_key"))
	assert.False(t, IsForeignKeyViolation(unique, ""))

	fk := &pgconn.PgError{Code: "23503"}
	assert.True(t, IsForeignKeyViolation(wrapped(fk), ""))
	assert.False(t, IsUniqueViolation(errors.New("plain"), ""))
}

func wrapped(err error) error { return errors.Join(errors.New("insert vote"), err) }
