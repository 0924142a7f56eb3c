package storage

import (
	"database/sql"
	"strings"

	"github.com/gemstats/download-counter/config"
	"github.com/gemstats/download-counter/storage/data"
)

const (
	bulkIncrementBaseStatement = "INSERT INTO versionDownloadCount (gemName, fullName, count) VALUES "
	mysqlMergeSuffix           = " ON DUPLICATE KEY UPDATE count = count + VALUES(count)"
	sqliteMergeSuffix          = " ON CONFLICT(fullName) DO UPDATE SET count = count + excluded.count"
)

// DownloadCountDBRepository is the counter store implementation for RDBMS
type DownloadCountDBRepository struct {
	db          *sql.DB
	mergeSuffix string
}

// BulkIncrement merges the batch into the persisted counters in one
// statement within one transaction; counts are added, never overwritten
func (repo *DownloadCountDBRepository) BulkIncrement(downloads []*data.VersionDownload) error {
	if len(downloads) == 0 {
		return ErrNoDownloadsToMerge
	}
	var builder strings.Builder
	builder.WriteString(bulkIncrementBaseStatement)
	args := make([]interface{}, 0, len(downloads)*3)
	for index, download := range downloads {
		if !download.IsInValidState() {
			return ErrInvalidStateToSave
		}
		if index > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString("(?, ?, ?)")
		args = append(args, download.GemName, download.FullName, download.Count)
	}
	builder.WriteString(repo.mergeSuffix)
	return transactionalOperations(repo.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(builder.String(), args...)
		return err
	})
}

// NewDownloadCountRepository returns a new download count repository for the dialect in use
func NewDownloadCountRepository(db *sql.DB, dbConfig config.RelationalDatabaseConfig) DownloadCountRepository {
	panicIfNoDBConnectionPool(db)
	mergeSuffix := sqliteMergeSuffix
	if dbConfig.GetDBDialect() == config.MySQLDialect {
		mergeSuffix = mysqlMergeSuffix
	}
	return &DownloadCountDBRepository{db: db, mergeSuffix: mergeSuffix}
}
