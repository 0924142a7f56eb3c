//go:build wireinject
// +build wireinject

package storage

import (
	"github.com/google/wire"

	"github.com/gemstats/download-counter/config"
)

// GetNewDataAccessor provides the facade for accessing the version index and download counter repositories
func GetNewDataAccessor(dbConfig config.RelationalDatabaseConfig, migrationConf *MigrationConfig, counterConfig config.CounterConfig) (DataAccessor, error) {
	wire.Build(RDBMSStorageInternalInjector)

	return nil, nil
}
