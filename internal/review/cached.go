package review

import (
	"context"

	"go.uber.org/zap"

	"github.com/dshills/specreview/internal/cache"
	"github.com/dshills/specreview/internal/issue"
)

// CachedOracle serves repeated analyze requests from the file cache. Verify
// requests always reach the wrapped oracle.
type CachedOracle struct {
	inner Oracle
	cache *cache.Cache
	log   *zap.Logger
}

type cachedVerifier struct {
	*CachedOracle
	verifier Verifier
}

func (c *cachedVerifier) Verify(ctx context.Context, req VerifyRequest) ([]issue.Verdict, error) {
	return c.verifier.Verify(ctx, req)
}

// NewCachedOracle wraps inner with c. The result implements Verifier only
// when inner does.
func NewCachedOracle(inner Oracle, c *cache.Cache, log *zap.Logger) Oracle {
	if log == nil {
		log = zap.NewNop()
	}
	co := &CachedOracle{inner: inner, cache: c, log: log}
	if v, ok := inner.(Verifier); ok {
		return &cachedVerifier{CachedOracle: co, verifier: v}
	}
	return co
}

// CacheKey is the cache key of an analyze request: file, patch and the ids
// of the rules it was judged against.
func CacheKey(req Request) string {
	parts := append([]string{ActionAnalyze, req.File, req.Patch}, req.RuleIDs()...)
	return cache.BuildKey(parts...)
}

// Analyze returns cached findings when present, otherwise asks the wrapped
// oracle and stores its answer.
func (c *CachedOracle) Analyze(ctx context.Context, req Request) ([]issue.RawFinding, error) {
	key := CacheKey(req)
	var findings []issue.RawFinding
	if c.cache.GetJSON(key, &findings) {
		c.log.Debug("oracle cache hit", zap.String("file", req.File))
		return findings, nil
	}
	findings, err := c.inner.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.cache.PutJSON(key, findings); err != nil {
		c.log.Warn("caching oracle response failed", zap.String("file", req.File), zap.Error(err))
	}
	return findings, nil
}

// Check delegates to the wrapped oracle when it supports checking.
func (c *CachedOracle) Check(ctx context.Context) error {
	if ch, ok := c.inner.(Checker); ok {
		return ch.Check(ctx)
	}
	return nil
}
