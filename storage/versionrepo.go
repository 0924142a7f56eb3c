package storage

import (
	"database/sql"
	"time"
)

// VersionDBRepository is the name index repository implementation for RDBMS
type VersionDBRepository struct {
	db *sql.DB
}

// ResolveGemName retrieves the gem name owning the version with matching
// full name; ErrVersionNotFound when the index has no such version
func (repo *VersionDBRepository) ResolveGemName(versionFullName string) (string, error) {
	var gemName string
	err := querySingleRow(repo.db, "SELECT gemName FROM version WHERE fullName = ?", args2SliceFnWrapper(versionFullName),
		args2SliceFnWrapper(&gemName))
	if err == sql.ErrNoRows {
		return "", ErrVersionNotFound
	}
	return gemName, err
}

// NewVersionRepository returns a new version repository
func NewVersionRepository(db *sql.DB) *VersionDBRepository {
	panicIfNoDBConnectionPool(db)
	return &VersionDBRepository{db: db}
}

// CachedVersionRepository is a decorator for VersionRepository that caches
// resolved gem names; version to gem ownership never changes once released
// so a long TTL is safe.
type CachedVersionRepository struct {
	delegate VersionRepository
	cache    *MemoryCache[string, string]
}

// NewCachedVersionRepository creates a caching decorator around the delegate repository
func NewCachedVersionRepository(delegate *VersionDBRepository, ttl time.Duration) VersionRepository {
	if ttl == 0 {
		ttl = GetDefaultCacheTTLDuration()
	}
	return &CachedVersionRepository{
		delegate: delegate,
		cache:    NewMemoryCache[string, string](ttl),
	}
}

// ResolveGemName resolves the gem name, first checking the cache. Only
// successful lookups are cached; absence is re-checked every time since the
// version may simply not have been indexed yet.
func (repo *CachedVersionRepository) ResolveGemName(versionFullName string) (string, error) {
	if gemName, ok := repo.cache.Get(versionFullName); ok {
		return gemName, nil
	}
	gemName, err := repo.delegate.ResolveGemName(versionFullName)
	if err != nil {
		return gemName, err
	}
	repo.cache.Set(versionFullName, gemName)
	return gemName, nil
}

// Close closes the underlying cache
func (repo *CachedVersionRepository) Close() {
	repo.cache.Close()
}
