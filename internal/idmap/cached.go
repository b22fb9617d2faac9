package idmap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-geneset/internal/gmt"
)

// Cache persists resolved identifiers per target space.
type Cache interface {
	LookupMappings(ctx context.Context, target string, symbols []string) (map[string]string, error)
	WriteMappings(ctx context.Context, target string, mapped map[string]string) error
}

// CachedMapper answers from a Cache and forwards only the misses to the
// wrapped Mapper. Newly resolved identifiers are written back; unresolved
// ones are not cached.
type CachedMapper struct {
	next   Mapper
	cache  Cache
	logger *zap.Logger
}

// NewCachedMapper wraps next with cache.
func NewCachedMapper(next Mapper, cache Cache) *CachedMapper {
	return &CachedMapper{next: next, cache: cache, logger: zap.NewNop()}
}

// SetLogger sets the logger for cache statistics.
func (m *CachedMapper) SetLogger(l *zap.Logger) {
	m.logger = l
}

// Map implements Mapper.
func (m *CachedMapper) Map(ctx context.Context, symbols []string, target gmt.IDSpace) (*Result, error) {
	queries := Unique(symbols)
	hits, err := m.cache.LookupMappings(ctx, target.String(), queries)
	if err != nil {
		return nil, fmt.Errorf("lookup cached mappings: %w", err)
	}

	res := NewResult()
	var misses []string
	for _, q := range queries {
		if id, ok := hits[q]; ok {
			res.Mapped[q] = id
		} else {
			misses = append(misses, q)
		}
	}
	m.logger.Debug("id mapping cache",
		zap.String("target", target.String()),
		zap.Int("hits", len(res.Mapped)),
		zap.Int("misses", len(misses)))

	if len(misses) == 0 {
		return res, nil
	}

	fresh, err := m.next.Map(ctx, misses, target)
	if err != nil {
		return nil, err
	}
	if len(fresh.Mapped) > 0 {
		if err := m.cache.WriteMappings(ctx, target.String(), fresh.Mapped); err != nil {
			return nil, fmt.Errorf("write cached mappings: %w", err)
		}
	}
	res.Merge(fresh)
	return res, nil
}
