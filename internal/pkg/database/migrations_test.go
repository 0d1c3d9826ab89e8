package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigration(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestRunMigrations_AppliesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "000002_add_index.up.sql", "CREATE INDEX idx ON reviews (rating);")
	writeMigration(t, dir, "000001_create_reviews.up.sql", "CREATE TABLE reviews (id TEXT);")
	writeMigration(t, dir, "000001_create_reviews.down.sql", "DROP TABLE reviews;")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE reviews").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("CREATE INDEX idx").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	applied, err := RunMigrations(sqlx.NewDb(db, "sqlmock"), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_reviews.up.sql", "000002_add_index.up.sql"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_StopsOnFailure(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "000001_create_reviews.up.sql", "CREATE TABLE reviews (id TEXT);")
	writeMigration(t, dir, "000002_broken.up.sql", "CREATE NONSENSE;")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE reviews").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("CREATE NONSENSE").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	applied, err := RunMigrations(sqlx.NewDb(db, "sqlmock"), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000002_broken.up.sql")
	assert.Equal(t, []string{"000001_create_reviews.up.sql"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_EmptyDir(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = RunMigrations(sqlx.NewDb(db, "sqlmock"), t.TempDir())
	assert.Error(t, err)
}
