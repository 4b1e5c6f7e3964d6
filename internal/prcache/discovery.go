package prcache

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DiscoveryTTL bounds how long a probed active-repository set is reused.
const DiscoveryTTL = 30 * time.Minute

// ActiveSet maintains the repositories worth querying for PRs. With a
// static whitelist configured, that list is authoritative. Otherwise
// the most recently pushed repositories are probed and any repository
// with at least one key-linked PR is kept. Once discovered, a
// repository is retained for the TTL window even if a re-probe does not
// re-confirm it, to avoid flapping.
type ActiveSet struct {
	source     Source
	static     []string
	probeLimit int
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger

	mu           sync.Mutex
	repos        map[string]bool
	discoveredAt time.Time
}

// NewActiveSet creates an ActiveSet. static may be empty, enabling
// heuristic probing of up to probeLimit repositories.
func NewActiveSet(source Source, static []string, probeLimit int, logger *slog.Logger) *ActiveSet {
	if logger == nil {
		logger = slog.Default()
	}
	if probeLimit <= 0 {
		probeLimit = 15
	}
	return &ActiveSet{
		source:     source,
		static:     static,
		probeLimit: probeLimit,
		ttl:        DiscoveryTTL,
		now:        time.Now,
		logger:     logger,
		repos:      map[string]bool{},
	}
}

// Active returns the current active repositories, probing if the cached
// set has expired.
func (a *ActiveSet) Active(ctx context.Context) []string {
	if len(a.static) > 0 {
		out := make([]string, len(a.static))
		copy(out, a.static)
		return out
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.repos) > 0 && a.now().Sub(a.discoveredAt) <= a.ttl {
		return a.sorted()
	}
	a.probe(ctx)
	return a.sorted()
}

func (a *ActiveSet) probe(ctx context.Context) {
	candidates, err := a.source.ListRepositories(ctx, a.probeLimit)
	if err != nil {
		a.logger.Warn("repository listing failed, keeping previous active set", "error", err)
		return
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, repo := range candidates {
		wg.Add(1)
		go func(repo string) {
			defer wg.Done()
			prs, err := a.source.ListPullRequests(ctx, repo)
			if err != nil {
				a.logger.Warn("probe failed", "repo", repo, "error", err)
				return
			}
			for i := range prs {
				if prs[i].TicketKey != "" {
					mu.Lock()
					a.repos[repo] = true // additions only: previously active repos stay
					mu.Unlock()
					return
				}
			}
		}(repo)
	}
	wg.Wait()

	a.discoveredAt = a.now()
	a.logger.Info("active repositories discovered", "count", len(a.repos))
}

func (a *ActiveSet) sorted() []string {
	out := make([]string, 0, len(a.repos))
	for repo := range a.repos {
		out = append(out, repo)
	}
	sort.Strings(out)
	return out
}

// Invalidate clears the discovered set. Called only via Cache.Invalidate.
func (a *ActiveSet) Invalidate() {
	a.mu.Lock()
	a.repos = map[string]bool{}
	a.discoveredAt = time.Time{}
	a.mu.Unlock()
}
