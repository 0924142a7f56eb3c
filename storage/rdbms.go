package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migrate_mysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migrate_sqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/google/wire"

	"github.com/gemstats/download-counter/config"

	// MySQL DB Driver
	_ "github.com/go-sql-driver/mysql"
	// SQLite3 DB Driver
	_ "github.com/mattn/go-sqlite3"
	// File as a source for migration
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrationConfig represents the DB migration config
type MigrationConfig struct {
	MigrationEnabled bool
	MigrationSource  string
}

var (
	// ErrDBConnectionNeverInitialized is returned when NewDataAccessor failed to connect to DB the first time it was called; in all subsequent calls the accessor will remain nil
	ErrDBConnectionNeverInitialized = errors.New("DB Connection never initialized")
	// ErrVersionNotFound is returned when the name index has no row for a version full name
	ErrVersionNotFound = errors.New("no gem known for version full name")
	// ErrNoDownloadsToMerge is returned when BulkIncrement is called with an empty batch
	ErrNoDownloadsToMerge = errors.New("no download entries to merge")
	// ErrInvalidStateToSave is returned when a data is not in a state we can send it to the repo as
	ErrInvalidStateToSave = errors.New("data model in invalid state to be stored")

	db                      *sql.DB
	dataAccessorInitializer sync.Once

	// RDBMSStorageInternalInjector injector for data storage related implementation
	RDBMSStorageInternalInjector = wire.NewSet(GetConnectionPool, GetCacheTTL, NewVersionRepository, NewCachedVersionRepository, NewDownloadCountRepository, wire.Struct(new(RelationalDBDataAccessor), "db", "versionRepository", "downloadCountRepository"), wire.Bind(new(DataAccessor), new(*RelationalDBDataAccessor)))
)

// RelationalDBDataAccessor represents the DataAccessor implementation for RDBMS
type RelationalDBDataAccessor struct {
	versionRepository       VersionRepository
	downloadCountRepository DownloadCountRepository
	db                      *sql.DB
}

// GetVersionRepository returns the VersionRepository to be used for name index lookups
func (rdbmsDataAccessor *RelationalDBDataAccessor) GetVersionRepository() VersionRepository {
	return rdbmsDataAccessor.versionRepository
}

// GetDownloadCountRepository returns the DownloadCountRepository to be used for counter merges
func (rdbmsDataAccessor *RelationalDBDataAccessor) GetDownloadCountRepository() DownloadCountRepository {
	return rdbmsDataAccessor.downloadCountRepository
}

// Close closes the connection to DB
func (rdbmsDataAccessor *RelationalDBDataAccessor) Close() {
	db.Close()
}

func panicIfNoDBConnectionPool(db *sql.DB) {
	if db == nil {
		panic(ErrDBConnectionNeverInitialized)
	}
}

// GetConnectionPool Gets the DB Connection Pool for the App
func GetConnectionPool(dbConfig config.RelationalDatabaseConfig, migrationConf *MigrationConfig) (*sql.DB, error) {
	return getConnectionPoolImpl(dbConfig, migrationConf)
}

var (
	getConnectionPoolImpl = func(dbConfig config.RelationalDatabaseConfig, migrationConf *MigrationConfig) (*sql.DB, error) {
		var err error = nil
		dataAccessorInitializer.Do(func() {
			db, err = createDBConnectionPool(dbConfig)
			if err == nil {
				err = runMigration(db, dbConfig, migrationConf)
			}
		})
		if db == nil && err == nil {
			err = ErrDBConnectionNeverInitialized
		}
		return db, err
	}

	createDBConnectionPool = func(dbConfig config.RelationalDatabaseConfig) (*sql.DB, error) {
		db, err := getDB(string(dbConfig.GetDBDialect()), dbConfig.GetDBConnectionURL())
		if err == nil {
			db.SetConnMaxLifetime(dbConfig.GetDBConnectionMaxLifetime())
			db.SetMaxIdleConns(int(dbConfig.GetMaxIdleDBConnections()))
			db.SetMaxOpenConns(int(dbConfig.GetMaxOpenDBConnections()))
			db.SetConnMaxIdleTime(dbConfig.GetDBConnectionMaxIdleTime())
		}
		return db, err
	}

	getDB = func(dialect, connectionURL string) (*sql.DB, error) {
		return sql.Open(dialect, connectionURL)
	}

	runMigration = func(db *sql.DB, dbConfig config.RelationalDatabaseConfig, migrationConf *MigrationConfig) error {
		if migrationConf.MigrationEnabled {
			dbDriver, err := getMigrationDriver(db, dbConfig)
			if err != nil {
				return err
			}
			dialect := string(dbConfig.GetDBDialect())
			sourceDriver, err := NewDialectSource(migrationConf.MigrationSource, dialect)
			if err != nil {
				return err
			}
			migration, err := getMigration(sourceDriver, dialect, dbDriver)
			if err != nil {
				return err
			}
			err = migration.Up()
			if err != nil && err != migrate.ErrNoChange {
				return err
			}
		}
		return nil
	}

	getMigration = func(sourceDriver *DialectSource, dialect string, dbDriver database.Driver) (*migrate.Migrate, error) {
		return migrate.NewWithInstance("dialect", sourceDriver, dialect, dbDriver)
	}

	getMigrationDriver = func(db *sql.DB, dbConfig config.RelationalDatabaseConfig) (database.Driver, error) {
		switch dbConfig.GetDBDialect() {
		case config.MySQLDialect:
			return migrate_mysql.WithInstance(db, &migrate_mysql.Config{})
		default:
			return migrate_sqlite3.WithInstance(db, &migrate_sqlite3.Config{})
		}
	}

	rollback = func(tx *sql.Tx) {
		txErr := tx.Rollback()
		if txErr != nil {
			log.Error().Err(txErr).Msg("tx rollback error")
		}
	}

	transactionalOperations = func(db *sql.DB, txOps func(tx *sql.Tx) error) (err error) {
		var tx *sql.Tx
		tx, err = db.Begin()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Msg(fmt.Sprint("recovered from in-tx panic", r))
				rollback(tx)
			}
		}()
		if err == nil {
			err = txOps(tx)
			if err == nil {
				txErr := tx.Commit()
				if txErr != nil {
					log.Error().Err(txErr).Msg("tx commit error")
					err = txErr
				}
			} else {
				rollback(tx)
			}
		}
		return err
	}

	querySingleRow = func(db *sql.DB, query string, queryArgs func() []interface{}, scanArgs func() []interface{}) error {
		row := db.QueryRow(query, queryArgs()...)
		return row.Scan(scanArgs()...)
	}

	args2SliceFnWrapper = func(args ...interface{}) func() []interface{} {
		return func() []interface{} { return args }
	}
)

// GetDefaultCacheTTLDuration provides the fallback TTL for the name resolution cache
func GetDefaultCacheTTLDuration() time.Duration {
	return 4 * time.Hour
}

// GetCacheTTL provides the configured TTL for the name resolution cache
func GetCacheTTL(counterConfig config.CounterConfig) time.Duration {
	return counterConfig.GetNameCacheTTL()
}
