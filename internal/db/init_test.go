package db_test

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/FitKeeper/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitPostgres_UnreachableDatabase(t *testing.T) {
	for _, dsn := range []string{"", "host=127.0.0.1 port=1 dbname=fit sslmode=disable connect_timeout=1"} {
		conn, err := db.InitPostgres(dsn)
		assert.Nil(t, conn)
		assert.ErrorContains(t, err, "ping postgres", "dsn %q", dsn)
	}
}

func TestApplySchema(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectExec(`(?s)CREATE TABLE IF NOT EXISTS users.*CREATE TABLE IF NOT EXISTS sessions.*CREATE TABLE IF NOT EXISTS user_records`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, db.ApplySchema(sqlDB))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplySchema_Error(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("permission denied"))

	err = db.ApplySchema(sqlDB)
	assert.ErrorContains(t, err, "create schema: permission denied")
}
