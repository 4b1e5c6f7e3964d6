// Package prcache caches fetched pull requests and maintains the set
// of repositories worth querying. The two caches invalidate together:
// a cleared PR cache with a stale active-repo set would silently
// under-fetch.
package prcache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"taskdeck/internal/model"
)

// DefaultTTL bounds how long fetched PRs are served without a refresh.
const DefaultTTL = 5 * time.Minute

// Source is the slice of the PR API the cache needs.
type Source interface {
	ListPullRequests(ctx context.Context, repo string) ([]model.PullRequest, error)
	ListRepositories(ctx context.Context, limit int) ([]string, error)
	RateLimited(ctx context.Context) bool
}

// Cache is a time-boxed in-memory PR cache. The mutex doubles as the
// in-flight guard: overlapping refreshes serialize, and the second
// caller finds a fresh cache instead of fetching again.
type Cache struct {
	source Source
	repos  *ActiveSet
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	entries   []model.PullRequest
	fetchedAt time.Time
	filter    string
	limited   bool
}

// New creates a Cache over source using repos for repository scoping.
func New(source Source, repos *ActiveSet, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		source: source,
		repos:  repos,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logger,
	}
}

// SetClock overrides the time source (tests).
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
	c.repos.now = now
}

// Get returns PRs, optionally filtered to a single "owner/repo". Within
// the TTL the cache is served as-is; when a refresh is due but the API
// is rate-limited, the stale cache is served instead — unless it is
// empty, in which case the fetch is attempted anyway as a best effort.
func (c *Cache) Get(ctx context.Context, repoFilter string) ([]model.PullRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.refreshDue(repoFilter) {
		return c.filtered(repoFilter), nil
	}

	if c.source.RateLimited(ctx) {
		c.limited = true
		if len(c.entries) > 0 {
			c.logger.Info("rate limited, serving cached pull requests", "age", c.now().Sub(c.fetchedAt))
			return c.filtered(repoFilter), nil
		}
		// empty cache: try anyway, failing is no worse than nothing
	} else {
		c.limited = false
	}

	if err := c.refresh(ctx, repoFilter); err != nil {
		return nil, err
	}
	return c.filtered(repoFilter), nil
}

func (c *Cache) refreshDue(repoFilter string) bool {
	if len(c.entries) == 0 {
		return true
	}
	if c.now().Sub(c.fetchedAt) > c.ttl {
		return true
	}
	if repoFilter != "" && !c.contains(repoFilter) {
		return true
	}
	return false
}

func (c *Cache) contains(repo string) bool {
	if strings.EqualFold(c.filter, repo) {
		return true
	}
	for i := range c.entries {
		if strings.EqualFold(c.entries[i].Repo, repo) {
			return true
		}
	}
	return false
}

func (c *Cache) refresh(ctx context.Context, repoFilter string) error {
	var repos []string
	if repoFilter != "" {
		repos = []string{repoFilter}
	} else {
		repos = c.repos.Active(ctx)
	}

	type result struct {
		prs []model.PullRequest
		idx int
	}
	results := make([]result, 0, len(repos))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for i, repo := range repos {
		wg.Add(1)
		go func(idx int, repo string) {
			defer wg.Done()
			prs, err := c.source.ListPullRequests(ctx, repo)
			if err != nil {
				// one failing repository must not sink the rest
				c.logger.Warn("pull request fetch failed", "repo", repo, "error", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			mu.Lock()
			results = append(results, result{prs, idx})
			mu.Unlock()
		}(i, repo)
	}
	wg.Wait()

	// every repo failing is an outage, not a partial result
	if len(repos) > 0 && len(results) == 0 && firstErr != nil {
		return fmt.Errorf("refreshing pull requests: %w", firstErr)
	}

	// reassemble in repo order so the cache is deterministic
	merged := make([]model.PullRequest, 0)
	for i := range repos {
		for _, r := range results {
			if r.idx == i {
				merged = append(merged, r.prs...)
			}
		}
	}

	c.entries = merged
	c.fetchedAt = c.now()
	c.filter = repoFilter
	return nil
}

func (c *Cache) filtered(repoFilter string) []model.PullRequest {
	if repoFilter == "" {
		out := make([]model.PullRequest, len(c.entries))
		copy(out, c.entries)
		return out
	}
	var out []model.PullRequest
	for i := range c.entries {
		if strings.EqualFold(c.entries[i].Repo, repoFilter) {
			out = append(out, c.entries[i])
		}
	}
	return out
}

// Limited reports the last observed rate-limit state.
func (c *Cache) Limited() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limited
}

// Invalidate clears the PR cache and the active-repository cache. They
// are never cleared independently.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = nil
	c.fetchedAt = time.Time{}
	c.filter = ""
	c.mu.Unlock()
	c.repos.Invalidate()
}
