package storage

import (
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/gemstats/download-counter/config"
	"github.com/gemstats/download-counter/storage/data"
)

func sampleDownloads(t *testing.T) []*data.VersionDownload {
	t.Helper()
	first, err := data.NewVersionDownload("rails", "rails-4.0.0", 3)
	assert.Nil(t, err)
	second, err := data.NewVersionDownload("rake", "rake-13.0.1", 1)
	assert.Nil(t, err)
	return []*data.VersionDownload{first, second}
}

func TestDownloadCountDBRepositoryBulkIncrement(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		t.Parallel()
		db, mock, _ := sqlmock.New()
		defer db.Close()
		repo := &DownloadCountDBRepository{db: db, mergeSuffix: mysqlMergeSuffix}
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO versionDownloadCount").
			WithArgs("rails", "rails-4.0.0", int64(3), "rake", "rake-13.0.1", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()
		assert.Nil(t, repo.BulkIncrement(sampleDownloads(t)))
		assert.Nil(t, mock.ExpectationsWereMet())
	})
	t.Run("EmptyBatch", func(t *testing.T) {
		t.Parallel()
		db, _, _ := sqlmock.New()
		defer db.Close()
		repo := &DownloadCountDBRepository{db: db, mergeSuffix: sqliteMergeSuffix}
		assert.Equal(t, ErrNoDownloadsToMerge, repo.BulkIncrement(nil))
	})
	t.Run("InvalidEntry", func(t *testing.T) {
		t.Parallel()
		db, _, _ := sqlmock.New()
		defer db.Close()
		repo := &DownloadCountDBRepository{db: db, mergeSuffix: sqliteMergeSuffix}
		err := repo.BulkIncrement([]*data.VersionDownload{{GemName: "", FullName: "rails-4.0.0", Count: 1}})
		assert.Equal(t, ErrInvalidStateToSave, err)
	})
	t.Run("ExecError", func(t *testing.T) {
		t.Parallel()
		db, mock, _ := sqlmock.New()
		defer db.Close()
		repo := &DownloadCountDBRepository{db: db, mergeSuffix: mysqlMergeSuffix}
		execErr := errors.New("deadlock found")
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO versionDownloadCount").WillReturnError(execErr)
		mock.ExpectRollback()
		assert.Equal(t, execErr, repo.BulkIncrement(sampleDownloads(t)))
		assert.Nil(t, mock.ExpectationsWereMet())
	})
}

type dialectOnlyDBConfig struct {
	config.RelationalDatabaseConfig
	dialect config.DBDialect
}

func (conf *dialectOnlyDBConfig) GetDBDialect() config.DBDialect {
	return conf.dialect
}

func TestNewDownloadCountRepositoryDialects(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()
	mysqlRepo := NewDownloadCountRepository(db, &dialectOnlyDBConfig{dialect: config.MySQLDialect})
	assert.Equal(t, mysqlMergeSuffix, mysqlRepo.(*DownloadCountDBRepository).mergeSuffix)
	sqliteRepo := NewDownloadCountRepository(db, &dialectOnlyDBConfig{dialect: config.SQLite3Dialect})
	assert.Equal(t, sqliteMergeSuffix, sqliteRepo.(*DownloadCountDBRepository).mergeSuffix)
}
