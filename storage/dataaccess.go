package storage

import (
	"github.com/gemstats/download-counter/storage/data"
)

// DataAccessor is the facade to all the data repository
type DataAccessor interface {
	GetVersionRepository() VersionRepository
	GetDownloadCountRepository() DownloadCountRepository
	Close()
}

// VersionRepository is the name index lookup; it resolves the gem a
// version full name (for example "rails-4.0.0") belongs to.
type VersionRepository interface {
	ResolveGemName(versionFullName string) (string, error)
}

// DownloadCountRepository allows additive merges into the persistent
// per version download counters
type DownloadCountRepository interface {
	BulkIncrement(downloads []*data.VersionDownload) error
}
