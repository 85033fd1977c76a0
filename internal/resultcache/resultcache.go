// Package resultcache keeps recent lookups around so repeated questions about the
// same document within a short window do not log into the portal again.
package resultcache

import (
	"context"
	"strings"
	"time"

	"medauth-backend/internal/components/assert"
	"medauth-backend/internal/components/telemetry"
	"medauth-backend/internal/scrapers/portal"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	report_cache_hit  = "result-cache.hit"
	report_cache_miss = "result-cache.miss"
)

const (
	DefaultSize = 2048
	DefaultTTL  = 10 * time.Minute
)

// Cache is a portal.Finder that answers from memory when it can. Only successful
// lookups are cached, errors always reach the wrapped finder again.
type Cache struct {
	inner portal.Finder
	cache *expirable.LRU[string, portal.Result]
	tel   telemetry.API
}

func New(inner portal.Finder, size int, ttl time.Duration, tel telemetry.API) Cache {
	assert.NotNil(inner, "finder")
	assert.NotNil(tel, "telemetry")

	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return Cache{
		inner: inner,
		cache: expirable.NewLRU[string, portal.Result](size, nil, ttl),
		tel:   telemetry.NewScopedAPI("result_cache", tel),
	}
}

func key(docType portal.DocumentType, docNumber string) string {
	return string(docType) + ":" + strings.TrimSpace(docNumber)
}

func (c Cache) FindUser(ctx context.Context, docType portal.DocumentType, docNumber string) (portal.Result, error) {
	k := key(docType, docNumber)
	cached, hit := c.cache.Get(k)
	if hit {
		c.tel.ReportDebug(report_cache_hit, k)
		return cached, nil
	}
	c.tel.ReportDebug(report_cache_miss, k)

	result, err := c.inner.FindUser(ctx, docType, docNumber)
	if err != nil {
		return portal.Result{}, err
	}
	c.cache.Add(k, result)
	return result, nil
}

// Invalidate drops the cached lookup of a document, if any.
func (c Cache) Invalidate(docType portal.DocumentType, docNumber string) {
	c.cache.Remove(key(docType, docNumber))
}

func (c Cache) Len() int {
	return c.cache.Len()
}
