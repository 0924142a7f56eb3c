package storage

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/gemstats/download-counter/config"
)

type rdbmsTestConfig struct {
	dialect       config.DBDialect
	connectionURL string
}

func (conf *rdbmsTestConfig) GetDBDialect() config.DBDialect {
	return conf.dialect
}

func (conf *rdbmsTestConfig) GetDBConnectionURL() string {
	return conf.connectionURL
}

func (conf *rdbmsTestConfig) GetDBConnectionMaxIdleTime() time.Duration {
	return time.Minute
}

func (conf *rdbmsTestConfig) GetDBConnectionMaxLifetime() time.Duration {
	return time.Minute
}

func (conf *rdbmsTestConfig) GetMaxIdleDBConnections() uint16 {
	return 2
}

func (conf *rdbmsTestConfig) GetMaxOpenDBConnections() uint16 {
	return 5
}

type cacheTTLConfig struct {
	config.CounterConfig
	ttl time.Duration
}

func (conf *cacheTTLConfig) GetNameCacheTTL() time.Duration {
	return conf.ttl
}

func TestCreateDBConnectionPool(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		oldGetDB := getDB
		mockDB, _, _ := sqlmock.New()
		defer mockDB.Close()
		getDB = func(dialect, connectionURL string) (*sql.DB, error) {
			assert.Equal(t, "sqlite3", dialect)
			assert.Equal(t, ":memory:", connectionURL)
			return mockDB, nil
		}
		defer func() { getDB = oldGetDB }()
		poolDB, err := createDBConnectionPool(&rdbmsTestConfig{dialect: config.SQLite3Dialect, connectionURL: ":memory:"})
		assert.Nil(t, err)
		assert.Same(t, mockDB, poolDB)
	})
	t.Run("OpenError", func(t *testing.T) {
		oldGetDB := getDB
		openErr := errors.New("driver not loaded")
		getDB = func(dialect, connectionURL string) (*sql.DB, error) {
			return nil, openErr
		}
		defer func() { getDB = oldGetDB }()
		_, err := createDBConnectionPool(&rdbmsTestConfig{dialect: config.MySQLDialect})
		assert.Equal(t, openErr, err)
	})
}

func TestRunMigration(t *testing.T) {
	t.Run("DisabledIsNoop", func(t *testing.T) {
		mockDB, _, _ := sqlmock.New()
		defer mockDB.Close()
		assert.Nil(t, runMigration(mockDB, &rdbmsTestConfig{dialect: config.SQLite3Dialect}, &MigrationConfig{}))
	})
	t.Run("BadSourceErrs", func(t *testing.T) {
		mockDB, mock, _ := sqlmock.New()
		defer mockDB.Close()
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"version"}))
		err := runMigration(mockDB, &rdbmsTestConfig{dialect: config.SQLite3Dialect}, &MigrationConfig{MigrationEnabled: true, MigrationSource: "file:///no/such/migration/dir"})
		assert.NotNil(t, err)
	})
}

func TestTransactionalOperations(t *testing.T) {
	t.Run("Commit", func(t *testing.T) {
		mockDB, mock, _ := sqlmock.New()
		defer mockDB.Close()
		mock.ExpectBegin()
		mock.ExpectCommit()
		assert.Nil(t, transactionalOperations(mockDB, func(tx *sql.Tx) error { return nil }))
		assert.Nil(t, mock.ExpectationsWereMet())
	})
	t.Run("RollbackOnError", func(t *testing.T) {
		mockDB, mock, _ := sqlmock.New()
		defer mockDB.Close()
		opErr := errors.New("op failed")
		mock.ExpectBegin()
		mock.ExpectRollback()
		assert.Equal(t, opErr, transactionalOperations(mockDB, func(tx *sql.Tx) error { return opErr }))
		assert.Nil(t, mock.ExpectationsWereMet())
	})
	t.Run("RollbackOnPanic", func(t *testing.T) {
		mockDB, mock, _ := sqlmock.New()
		defer mockDB.Close()
		mock.ExpectBegin()
		mock.ExpectRollback()
		assert.NotPanics(t, func() {
			transactionalOperations(mockDB, func(tx *sql.Tx) error { panic("in tx") })
		})
		assert.Nil(t, mock.ExpectationsWereMet())
	})
}

func TestQuerySingleRow(t *testing.T) {
	mockDB, mock, _ := sqlmock.New()
	defer mockDB.Close()
	mock.ExpectQuery("SELECT gemName").WithArgs("rails-4.0.0").WillReturnRows(sqlmock.NewRows([]string{"gemName"}).AddRow("rails"))
	var gemName string
	err := querySingleRow(mockDB, "SELECT gemName FROM version WHERE fullName = ?", args2SliceFnWrapper("rails-4.0.0"), args2SliceFnWrapper(&gemName))
	assert.Nil(t, err)
	assert.Equal(t, "rails", gemName)
}

func TestGetCacheTTL(t *testing.T) {
	assert.Equal(t, 30*time.Minute, GetCacheTTL(&cacheTTLConfig{ttl: 30 * time.Minute}))
	assert.Equal(t, 4*time.Hour, GetDefaultCacheTTLDuration())
}

func TestPanicIfNoDBConnectionPool(t *testing.T) {
	assert.Panics(t, func() { panicIfNoDBConnectionPool(nil) })
	mockDB, _, _ := sqlmock.New()
	defer mockDB.Close()
	assert.NotPanics(t, func() { panicIfNoDBConnectionPool(mockDB) })
}
