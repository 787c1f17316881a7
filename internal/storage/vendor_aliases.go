package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/model"
)

// GetVendorAlias retrieves the alias for a normalized vendor key. Hits are
// served from an in-memory cache for up to aliasCacheTTL; the matcher looks
// up aliases once per candidate transaction, so this lookup is hot.
func (s *SQLiteStorage) GetVendorAlias(ctx context.Context, pattern string) (*model.VendorAlias, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(pattern, "pattern"); err != nil {
		return nil, err
	}

	if alias := s.getCachedAlias(pattern); alias != nil {
		return alias, nil
	}

	var alias model.VendorAlias
	err := s.db.QueryRowContext(ctx, `
		SELECT pattern, canonical_name, category
		FROM vendor_aliases
		WHERE pattern = ?
	`, pattern).Scan(
		&alias.Pattern,
		&alias.CanonicalName,
		&alias.Category,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: vendor alias %q", common.ErrNotFound, pattern)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor alias: %w", err)
	}

	s.cacheAlias(&alias)
	return &alias, nil
}

// SaveVendorAlias inserts or updates an alias and refreshes the cache entry.
func (s *SQLiteStorage) SaveVendorAlias(ctx context.Context, alias *model.VendorAlias) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if alias == nil {
		return fmt.Errorf("%w: alias", ErrNilParameter)
	}
	if err := validateString(alias.Pattern, "pattern"); err != nil {
		return err
	}
	if err := validateString(alias.CanonicalName, "canonicalName"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vendor_aliases (pattern, canonical_name, category)
		VALUES (?, ?, ?)
		ON CONFLICT(pattern) DO UPDATE SET
			canonical_name = excluded.canonical_name,
			category = excluded.category
	`, alias.Pattern, alias.CanonicalName, alias.Category)
	if err != nil {
		return fmt.Errorf("failed to save vendor alias: %w", mapConstraintError(err))
	}

	s.cacheAlias(alias)
	return nil
}

func (s *SQLiteStorage) getCachedAlias(pattern string) *model.VendorAlias {
	s.cacheMutex.RLock()
	defer s.cacheMutex.RUnlock()

	if time.Now().After(s.cacheExpiry) {
		return nil
	}
	return s.aliasCache[pattern]
}

func (s *SQLiteStorage) cacheAlias(alias *model.VendorAlias) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	// A stale cache is flushed wholesale rather than per entry.
	if time.Now().After(s.cacheExpiry) {
		s.aliasCache = make(map[string]*model.VendorAlias)
		s.cacheExpiry = time.Now().Add(aliasCacheTTL)
	}
	s.aliasCache[alias.Pattern] = alias
}
