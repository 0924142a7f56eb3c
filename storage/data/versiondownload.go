package data

import (
	"errors"
)

var (
	// ErrInsufficientInformationForDownload is returned when a bulk update entry is missing its gem or version coordinates
	ErrInsufficientInformationForDownload = errors.New("gem name and version full name required for a download entry")
	// ErrNegativeDownloadCount is returned when a bulk update entry carries a negative count
	ErrNegativeDownloadCount = errors.New("download count may not be negative")
)

// VersionDownload is the unit handed to the counter store's bulk merge;
// Count is added to, never overwrites, the persisted counter.
type VersionDownload struct {
	GemName  string
	FullName string
	Count    int64
}

// IsInValidState returns whether the entry can be sent to the repository
func (download *VersionDownload) IsInValidState() bool {
	return len(download.GemName) > 0 && len(download.FullName) > 0 && download.Count >= 0
}

// NewVersionDownload creates a bulk merge entry for the version identified by fullName
func NewVersionDownload(gemName, fullName string, count int64) (*VersionDownload, error) {
	if len(gemName) == 0 || len(fullName) == 0 {
		return nil, ErrInsufficientInformationForDownload
	}
	if count < 0 {
		return nil, ErrNegativeDownloadCount
	}
	return &VersionDownload{GemName: gemName, FullName: fullName, Count: count}, nil
}
