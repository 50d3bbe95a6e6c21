package hints

import (
	"context"
	"strconv"
	"time"

	"github.com/Yiling-J/theine-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/dbcdk/rawrepo-record-service/internal/build"
)

var hintsCacheCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: build.ProjectName,
	Name:      "hints_cache_total",
	Help:      "The total number of relation hints lookups, by cache result.",
}, []string{"result"})

const (
	DefaultCacheSize = 1000
	DefaultCacheTTL  = 10 * time.Minute
)

// CachedProvider keeps hints from another provider for a fixed TTL. Concurrent misses
// for the same agency share one upstream call.
type CachedProvider struct {
	inner Provider
	cache *theine.Cache[int, AgencyHints]
	ttl   time.Duration
	group singleflight.Group
}

var _ Provider = (*CachedProvider)(nil)

func NewCachedProvider(inner Provider, maxSize int64, ttl time.Duration) (*CachedProvider, error) {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	cache, err := theine.NewBuilder[int, AgencyHints](maxSize).Build()
	if err != nil {
		return nil, err
	}

	return &CachedProvider{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}, nil
}

func (p *CachedProvider) Get(ctx context.Context, agencyID int) (AgencyHints, error) {
	if h, ok := p.cache.Get(agencyID); ok {
		hintsCacheCounter.WithLabelValues("hit").Inc()
		return h.clone(), nil
	}
	hintsCacheCounter.WithLabelValues("miss").Inc()

	v, err, _ := p.group.Do(strconv.Itoa(agencyID), func() (interface{}, error) {
		h, err := p.inner.Get(ctx, agencyID)
		if err != nil {
			return AgencyHints{}, err
		}
		p.cache.SetWithTTL(agencyID, h, 1, p.ttl)
		return h, nil
	})
	if err != nil {
		return AgencyHints{}, err
	}

	return v.(AgencyHints).clone(), nil
}

// Close stops the cache maintenance goroutines.
func (p *CachedProvider) Close() {
	p.cache.Close()
}
