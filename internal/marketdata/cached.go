package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"meanrev-go/internal/config"
	"meanrev-go/internal/frame"
)

// CachedProvider serves frames from a Cache, falling back to the wrapped provider on a miss.
// Cache errors never fail a request.
type CachedProvider struct {
	inner Provider
	cache Cache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedProvider decorates inner with cache.
func NewCachedProvider(inner Provider, cache Cache, ttl time.Duration, log zerolog.Logger) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache, ttl: ttl, log: log}
}

// CacheKey identifies one provider request.
func CacheKey(stock string, start, end time.Time, sectorTicker string) string {
	return strings.Join([]string{
		"bars",
		strings.ToUpper(stock),
		strings.ToUpper(sectorTicker),
		dateKey(start),
		dateKey(end),
	}, ":")
}

func dateKey(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func (p *CachedProvider) Get(ctx context.Context, stock string, start, end time.Time, sectorTicker string) (*frame.Frame, error) {
	key := CacheKey(stock, start, end, sectorTicker)
	bars, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		if f, ferr := frame.FromBars(bars); ferr == nil && f.Len() > 0 {
			return f, nil
		}
		p.log.Warn().Str("stock", stock).Msg("discarding unusable cached bars")
	case !errors.Is(err, ErrCacheMiss):
		p.log.Warn().Err(err).Str("stock", stock).Msg("cache read failed")
	}

	f, err := p.inner.Get(ctx, stock, start, end, sectorTicker)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, key, f.Bars(0, f.Len()-1), p.ttl); err != nil {
		p.log.Warn().Err(err).Str("stock", stock).Msg("cache write failed")
	}
	return f, nil
}

// NewProvider assembles the CSV provider with the configured cache in front of it.
// The returned close function releases the cache.
func NewProvider(ctx context.Context, cfg config.Data, log zerolog.Logger) (Provider, func() error, error) {
	csv := NewCSVProvider(cfg.Dir, log)
	if !cfg.Cache.Enabled {
		return csv, func() error { return nil }, nil
	}
	cache, err := NewCache(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, fmt.Errorf("market data cache: %w", err)
	}
	return NewCachedProvider(csv, cache, cfg.Cache.TTL, log), cache.Close, nil
}
