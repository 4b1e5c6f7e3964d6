// Package dashboard assembles the unified work view: tickets, pull
// requests, local branches, and the overlay, fetched concurrently and
// reconciled into an ordered task forest.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"taskdeck/internal/model"
	"taskdeck/internal/overlay"
	"taskdeck/internal/prcache"
	"taskdeck/internal/reconcile"
)

// TicketSource fetches the user's open tickets.
type TicketSource interface {
	Search(ctx context.Context) ([]model.Ticket, error)
}

// ReviewSource fetches PRs awaiting the user's review.
type ReviewSource interface {
	SearchReviewRequests(ctx context.Context) ([]model.PullRequest, error)
}

// BranchScanner lists local branches across the configured roots.
type BranchScanner interface {
	Scan(ctx context.Context) []model.LocalBranch
}

// Snapshot is one assembled view of the dashboard.
type Snapshot struct {
	Tasks       []model.Task        `json:"tasks"`
	ReviewInbox []model.PullRequest `json:"review_inbox"`
	RateLimited bool                `json:"rate_limited"`
	FetchedAt   time.Time           `json:"fetched_at"`
}

// Service fetches from every source and reconciles the results. It is
// safe for concurrent use.
type Service struct {
	tickets TicketSource
	prs     *prcache.Cache
	reviews ReviewSource
	scanner BranchScanner
	store   *overlay.Store
	ranks   reconcile.Ranks
	logger  *slog.Logger

	mu           sync.Mutex
	lastBranches []model.LocalBranch
	last         Snapshot
	haveLast     bool
}

// New wires a Service. reviews may be nil when the PR host is not
// configured.
func New(
	tickets TicketSource,
	prs *prcache.Cache,
	reviews ReviewSource,
	scanner BranchScanner,
	store *overlay.Store,
	ranks reconcile.Ranks,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		tickets: tickets,
		prs:     prs,
		reviews: reviews,
		scanner: scanner,
		store:   store,
		ranks:   ranks,
		logger:  logger,
	}
}

// Snapshot fetches all sources concurrently and returns the reconciled
// view. Individual source failures degrade to empty slices so one
// broken integration never blanks the dashboard.
func (s *Service) Snapshot(ctx context.Context) Snapshot {
	var (
		wg       sync.WaitGroup
		tickets  []model.Ticket
		prs      []model.PullRequest
		branches []model.LocalBranch
		inbox    []model.PullRequest
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		tickets, err = s.tickets.Search(ctx)
		if err != nil {
			s.logger.Warn("ticket fetch failed", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		prs, err = s.prs.Get(ctx, "")
		if err != nil {
			s.logger.Warn("pull request fetch failed", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		branches = s.scanner.Scan(ctx)
	}()

	if s.reviews != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			inbox, err = s.reviews.SearchReviewRequests(ctx)
			if err != nil {
				s.logger.Warn("review inbox fetch failed", "error", err)
			}
		}()
	}

	wg.Wait()

	s.mu.Lock()
	if len(branches) == 0 {
		// a failed or empty scan keeps the last known branch state
		branches = s.lastBranches
	} else {
		s.lastBranches = branches
	}
	s.mu.Unlock()

	s.rememberPRBranches(prs, branches)

	taskMeta, err := s.store.AllTaskMeta()
	if err != nil {
		s.logger.Warn("overlay read failed", "error", err)
	}
	prMeta, err := s.store.AllPRMeta()
	if err != nil {
		s.logger.Warn("overlay read failed", "error", err)
	}

	tasks := reconcile.Reconcile(tickets, prs, branches, taskMeta, prMeta)
	reconcile.Sort(tasks, s.ranks)

	snap := Snapshot{
		Tasks:       tasks,
		ReviewInbox: inbox,
		RateLimited: s.prs.Limited(),
		FetchedAt:   time.Now(),
	}
	s.mu.Lock()
	s.last = snap
	s.haveLast = true
	s.mu.Unlock()
	return snap
}

// Refresh drops the PR and active-repository caches and rebuilds the
// snapshot.
func (s *Service) Refresh(ctx context.Context) Snapshot {
	s.prs.Invalidate()
	return s.Snapshot(ctx)
}

// Last returns the most recent snapshot, if any.
func (s *Service) Last() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.haveLast
}

// Store exposes the overlay for mutation handlers.
func (s *Service) Store() *overlay.Store { return s.store }

// Run rebuilds the snapshot on a fixed cadence until ctx is cancelled,
// invoking onUpdate with each result. The cache's own TTL still governs
// whether the PR host is actually hit.
func (s *Service) Run(ctx context.Context, interval time.Duration, onUpdate func(Snapshot)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.Snapshot(ctx)
			if onUpdate != nil {
				onUpdate(snap)
			}
		}
	}
}

// rememberPRBranches persists the local branch currently backing each
// PR, so PR rows keep ahead/behind context after the branch is gone.
func (s *Service) rememberPRBranches(prs []model.PullRequest, branches []model.LocalBranch) {
	for _, pr := range prs {
		for i := range branches {
			if branches[i].Name != pr.Branch || !reconcile.RepoIdentitiesMatch(pr.Repo, branches[i]) {
				continue
			}
			branch := branches[i]
			if err := s.store.UpdatePRMeta(pr.ID, func(m *model.PRMetadata) {
				m.CachedBranch = &branch
			}); err != nil {
				s.logger.Warn("caching pr branch failed", "pr", pr.ID, "error", err)
			}
			break
		}
	}
}
