package dashboard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"taskdeck/internal/config"
	"taskdeck/internal/model"
	"taskdeck/internal/overlay"
	"taskdeck/internal/prcache"
	"taskdeck/internal/reconcile"
)

type fakeTickets struct {
	tickets []model.Ticket
	err     error
}

func (f *fakeTickets) Search(context.Context) ([]model.Ticket, error) {
	return f.tickets, f.err
}

type fakePRSource struct {
	prs     []model.PullRequest
	inbox   []model.PullRequest
	limited bool
}

func (f *fakePRSource) ListPullRequests(context.Context, string) ([]model.PullRequest, error) {
	return f.prs, nil
}

func (f *fakePRSource) ListRepositories(context.Context, int) ([]string, error) {
	return []string{"org/repo"}, nil
}

func (f *fakePRSource) RateLimited(context.Context) bool { return f.limited }

func (f *fakePRSource) SearchReviewRequests(context.Context) ([]model.PullRequest, error) {
	return f.inbox, nil
}

type fakeScanner struct {
	branches []model.LocalBranch
}

func (f *fakeScanner) Scan(context.Context) []model.LocalBranch { return f.branches }

func testService(t *testing.T, tickets *fakeTickets, src *fakePRSource, scanner *fakeScanner) *Service {
	t.Helper()
	store, err := overlay.Open(filepath.Join(t.TempDir(), "overlay.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	repos := prcache.NewActiveSet(src, []string{"org/repo"}, 0, nil)
	cache := prcache.New(src, repos, nil)
	ranks := reconcile.RanksFrom(config.Default().Ranks)
	return New(tickets, cache, src, scanner, store, ranks, nil)
}

func TestSnapshotAssemblesAllSources(t *testing.T) {
	tickets := &fakeTickets{tickets: []model.Ticket{
		{ID: "1", Key: "ABC-1", Status: "In Progress"},
	}}
	src := &fakePRSource{
		prs: []model.PullRequest{{
			ID: 10, Number: 10, Repo: "org/repo", Branch: "feature/ABC-1_fix",
			TicketKey: "ABC-1", State: "open",
		}},
		inbox: []model.PullRequest{{ID: 20, Number: 20, Repo: "org/other", State: "open"}},
	}
	scanner := &fakeScanner{branches: []model.LocalBranch{
		{Name: "feature/ABC-1_spike", Repo: "repo", RemoteURL: "git@github.com:org/repo.git"},
	}}

	s := testService(t, tickets, src, scanner)
	snap := s.Snapshot(context.Background())

	if len(snap.Tasks) != 1 {
		t.Fatalf("tasks: %+v", snap.Tasks)
	}
	task := snap.Tasks[0]
	if len(task.PullRequests) != 1 || len(task.LocalBranches) != 1 {
		t.Errorf("attachments: %+v", task)
	}
	if len(snap.ReviewInbox) != 1 || snap.ReviewInbox[0].ID != 20 {
		t.Errorf("review inbox: %+v", snap.ReviewInbox)
	}
	if snap.RateLimited {
		t.Error("rate limited flag should be clear")
	}
	if snap.FetchedAt.IsZero() {
		t.Error("fetched-at not stamped")
	}
}

func TestSnapshotTicketFailureDegrades(t *testing.T) {
	tickets := &fakeTickets{err: errors.New("jira down")}
	src := &fakePRSource{}
	s := testService(t, tickets, src, &fakeScanner{})

	snap := s.Snapshot(context.Background())
	if len(snap.Tasks) != 0 {
		t.Errorf("expected empty task list, got %+v", snap.Tasks)
	}
}

func TestSnapshotKeepsLastBranchesOnEmptyScan(t *testing.T) {
	tickets := &fakeTickets{tickets: []model.Ticket{{ID: "1", Key: "ABC-1", Status: "Open"}}}
	src := &fakePRSource{}
	scanner := &fakeScanner{branches: []model.LocalBranch{
		{Name: "feature/ABC-1_fix", Repo: "repo"},
	}}

	s := testService(t, tickets, src, scanner)
	first := s.Snapshot(context.Background())
	if len(first.Tasks[0].LocalBranches) != 1 {
		t.Fatalf("first snapshot branches: %+v", first.Tasks[0])
	}

	scanner.branches = nil
	second := s.Snapshot(context.Background())
	if len(second.Tasks[0].LocalBranches) != 1 {
		t.Errorf("empty scan must keep last known branches: %+v", second.Tasks[0])
	}
}

func TestSnapshotRemembersPRBranch(t *testing.T) {
	tickets := &fakeTickets{tickets: []model.Ticket{{ID: "1", Key: "ABC-1", Status: "Open"}}}
	src := &fakePRSource{prs: []model.PullRequest{{
		ID: 10, Number: 10, Repo: "org/repo", Branch: "feature/ABC-1_fix",
		TicketKey: "ABC-1", State: "open",
	}}}
	scanner := &fakeScanner{branches: []model.LocalBranch{
		{Name: "feature/ABC-1_fix", Repo: "repo", RemoteURL: "git@github.com:org/repo.git", Ahead: 2},
	}}

	s := testService(t, tickets, src, scanner)
	s.Snapshot(context.Background())

	m := s.Store().PRMeta(10)
	if m.CachedBranch == nil || m.CachedBranch.Ahead != 2 {
		t.Errorf("cached branch: %+v", m.CachedBranch)
	}
}

func TestSnapshotSurfacesCachedBranchAfterDeletion(t *testing.T) {
	tickets := &fakeTickets{tickets: []model.Ticket{{ID: "1", Key: "ABC-1", Status: "Open"}}}
	src := &fakePRSource{prs: []model.PullRequest{{
		ID: 10, Number: 10, Repo: "org/repo", Branch: "feature/ABC-1_fix",
		TicketKey: "ABC-1", State: "open",
	}}}
	scanner := &fakeScanner{branches: []model.LocalBranch{
		{Name: "feature/ABC-1_fix", Repo: "repo", RemoteURL: "git@github.com:org/repo.git", Ahead: 2},
		// second branch keeps the next scan non-empty once the first is gone
		{Name: "feature/XYZ-9_other", Repo: "repo", RemoteURL: "git@github.com:org/repo.git"},
	}}

	s := testService(t, tickets, src, scanner)
	s.Snapshot(context.Background())

	scanner.branches = scanner.branches[1:]
	snap := s.Snapshot(context.Background())

	pr := snap.Tasks[0].PullRequests[0]
	if pr.LocalStatus == nil || pr.LocalStatus.Ahead != 2 {
		t.Errorf("deleted branch must still surface via the persisted copy: %+v", pr.LocalStatus)
	}
}

func TestRememberPRBranchesChecksRepoIdentity(t *testing.T) {
	tickets := &fakeTickets{tickets: []model.Ticket{{ID: "1", Key: "ABC-1", Status: "Open"}}}
	src := &fakePRSource{prs: []model.PullRequest{{
		ID: 10, Number: 10, Repo: "org/repo", Branch: "feature/ABC-1_fix",
		TicketKey: "ABC-1", State: "open",
	}}}
	// same branch name, unrelated clone
	scanner := &fakeScanner{branches: []model.LocalBranch{
		{Name: "feature/ABC-1_fix", Repo: "elsewhere", RemoteURL: "git@github.com:other/fork.git"},
	}}

	s := testService(t, tickets, src, scanner)
	s.Snapshot(context.Background())

	if m := s.Store().PRMeta(10); m.CachedBranch != nil {
		t.Errorf("branch from an unrelated clone must not be memoized: %+v", m.CachedBranch)
	}
}

func TestLast(t *testing.T) {
	s := testService(t, &fakeTickets{}, &fakePRSource{}, &fakeScanner{})
	if _, ok := s.Last(); ok {
		t.Error("no snapshot yet")
	}
	s.Snapshot(context.Background())
	if _, ok := s.Last(); !ok {
		t.Error("snapshot not recorded")
	}
}
