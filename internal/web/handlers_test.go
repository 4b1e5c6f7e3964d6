package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"taskdeck/internal/config"
	"taskdeck/internal/dashboard"
	"taskdeck/internal/model"
	"taskdeck/internal/overlay"
	"taskdeck/internal/prcache"
	"taskdeck/internal/reconcile"
)

type fakeSource struct {
	tickets []model.Ticket
	prs     []model.PullRequest
	inbox   []model.PullRequest
}

func (f *fakeSource) Search(context.Context) ([]model.Ticket, error) { return f.tickets, nil }

func (f *fakeSource) ListPullRequests(context.Context, string) ([]model.PullRequest, error) {
	return f.prs, nil
}

func (f *fakeSource) ListRepositories(context.Context, int) ([]string, error) {
	return []string{"org/repo"}, nil
}

func (f *fakeSource) RateLimited(context.Context) bool { return false }

func (f *fakeSource) SearchReviewRequests(context.Context) ([]model.PullRequest, error) {
	return f.inbox, nil
}

func (f *fakeSource) Scan(context.Context) []model.LocalBranch { return nil }

func testServer(t *testing.T, src *fakeSource) *Server {
	t.Helper()
	store, err := overlay.Open(filepath.Join(t.TempDir(), "overlay.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	repos := prcache.NewActiveSet(src, []string{"org/repo"}, 0, nil)
	cache := prcache.New(src, repos, nil)
	ranks := reconcile.RanksFrom(config.Default().Ranks)
	service := dashboard.New(src, cache, src, src, store, ranks, nil)
	return NewServer(service, nil)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestGetTasks(t *testing.T) {
	src := &fakeSource{
		tickets: []model.Ticket{{ID: "1", Key: "ABC-1", Status: "In Progress"}},
		prs: []model.PullRequest{{
			ID: 10, Number: 10, Repo: "org/repo", Branch: "feature/ABC-1_x",
			TicketKey: "ABC-1", State: "open",
		}},
	}
	s := testServer(t, src)

	w := do(t, s, http.MethodGet, "/api/tasks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	var snap dashboard.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Tasks) != 1 || len(snap.Tasks[0].PullRequests) != 1 {
		t.Errorf("snapshot: %+v", snap)
	}
}

func TestReviewInboxServesWarmSnapshot(t *testing.T) {
	src := &fakeSource{inbox: []model.PullRequest{{
		ID: 7, Number: 42, Title: "Please review", Repo: "org/other", State: "open",
	}}}
	s := testServer(t, src)

	inboxNumbers := func() []int {
		w := do(t, s, http.MethodGet, "/api/review-inbox", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("review-inbox: %d %s", w.Code, w.Body.String())
		}
		var out struct {
			ReviewInbox []model.PullRequest `json:"review_inbox"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatal(err)
		}
		nums := make([]int, 0, len(out.ReviewInbox))
		for _, pr := range out.ReviewInbox {
			nums = append(nums, pr.Number)
		}
		return nums
	}

	// cold start: no snapshot yet, so the handler fetches one
	if nums := inboxNumbers(); len(nums) != 1 || nums[0] != 42 {
		t.Fatalf("cold inbox: %v", nums)
	}

	// the warm snapshot is served until the next poll or refresh
	src.inbox = nil
	if nums := inboxNumbers(); len(nums) != 1 || nums[0] != 42 {
		t.Errorf("warm inbox must come from the last snapshot, got %v", nums)
	}

	if w := do(t, s, http.MethodPost, "/api/refresh", nil); w.Code != http.StatusOK {
		t.Fatalf("refresh: %d", w.Code)
	}
	if nums := inboxNumbers(); len(nums) != 0 {
		t.Errorf("refresh must rebuild the snapshot, got %v", nums)
	}
}

func TestSetParentConflictOnCycle(t *testing.T) {
	s := testServer(t, &fakeSource{})

	if w := do(t, s, http.MethodPut, "/api/tasks/b/parent", map[string]any{"parent_id": "a"}); w.Code != http.StatusNoContent {
		t.Fatalf("set parent: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, s, http.MethodPut, "/api/tasks/a/parent", map[string]any{"parent_id": "b"}); w.Code != http.StatusConflict {
		t.Errorf("cycle must return 409, got %d", w.Code)
	}
}

func TestRemoveParent(t *testing.T) {
	s := testServer(t, &fakeSource{})
	do(t, s, http.MethodPut, "/api/tasks/b/parent", map[string]any{"parent_id": "a"})

	if w := do(t, s, http.MethodDelete, "/api/tasks/b/parent", nil); w.Code != http.StatusNoContent {
		t.Fatalf("remove parent: %d", w.Code)
	}
	if m := s.service.Store().TaskMeta("b"); m.ParentTicketID != "" {
		t.Errorf("parent not cleared: %q", m.ParentTicketID)
	}
}

func TestHideUnhideTask(t *testing.T) {
	s := testServer(t, &fakeSource{})

	if w := do(t, s, http.MethodPost, "/api/tasks/t1/hide", map[string]any{"until_updated": true}); w.Code != http.StatusNoContent {
		t.Fatalf("hide: %d %s", w.Code, w.Body.String())
	}
	if m := s.service.Store().TaskMeta("t1"); m.HiddenStatus != model.StatusHiddenUntilUpdated {
		t.Errorf("status: %q", m.HiddenStatus)
	}

	if w := do(t, s, http.MethodPost, "/api/tasks/t1/unhide", nil); w.Code != http.StatusNoContent {
		t.Fatalf("unhide: %d", w.Code)
	}
	if m := s.service.Store().TaskMeta("t1"); m.HiddenStatus != model.StatusVisible {
		t.Errorf("status after unhide: %q", m.HiddenStatus)
	}
}

func TestNotes(t *testing.T) {
	s := testServer(t, &fakeSource{})
	if w := do(t, s, http.MethodPut, "/api/tasks/t1/notes", map[string]any{"notes": "ping infra first"}); w.Code != http.StatusNoContent {
		t.Fatalf("notes: %d", w.Code)
	}
	if m := s.service.Store().TaskMeta("t1"); m.Notes != "ping infra first" {
		t.Errorf("notes: %q", m.Notes)
	}
}

func TestSectionsPartialUpdate(t *testing.T) {
	s := testServer(t, &fakeSource{})
	closed := false
	if w := do(t, s, http.MethodPut, "/api/tasks/t1/sections", map[string]any{"prs_open": closed}); w.Code != http.StatusNoContent {
		t.Fatalf("sections: %d", w.Code)
	}
	m := s.service.Store().TaskMeta("t1")
	if m.PRsOpen {
		t.Error("prs section not closed")
	}
	if !m.ChildrenOpen || !m.BranchesOpen {
		t.Errorf("untouched sections must stay open: %+v", m)
	}
}

func TestHidePR(t *testing.T) {
	s := testServer(t, &fakeSource{})
	if w := do(t, s, http.MethodPost, "/api/prs/42/hide", nil); w.Code != http.StatusNoContent {
		t.Fatalf("hide pr: %d", w.Code)
	}
	if m := s.service.Store().PRMeta(42); !m.Hidden {
		t.Error("pr not hidden")
	}

	if w := do(t, s, http.MethodPost, "/api/prs/notanumber/hide", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad id must 400, got %d", w.Code)
	}
}

func TestBranchOpValidation(t *testing.T) {
	s := testServer(t, &fakeSource{})
	if w := do(t, s, http.MethodPost, "/api/branches/push", map[string]any{"branch": "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing repo_path must 400, got %d", w.Code)
	}
}
