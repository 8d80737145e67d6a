package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/store"
)

// These exercise failure paths that are awkward to trigger against a real
// SQLite file (a locked database, a dropped connection mid-query) by
// mocking the driver instead.

func TestPut_DatabaseErrorWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := store.NewWithDB(db)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO receipts").WillReturnError(errors.New("database is locked"))

	err = s.Put(context.Background(), contracts.Receipt{BundleSha256: "abc"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "abc")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_DatabaseErrorWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := store.NewWithDB(db)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT receipt_json").WillReturnError(errors.New("connection reset"))

	_, err = s.Get(context.Background(), "abc")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_ErrorPropagatedFromNewWithDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("disk I/O error"))

	_, err = store.NewWithDB(db)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "migrate")
}
