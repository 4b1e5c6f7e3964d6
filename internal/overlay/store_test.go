package overlay

import (
	"path/filepath"
	"testing"
	"time"

	"taskdeck/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "overlay.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTaskMetaDefaults(t *testing.T) {
	s := testStore(t)

	m := s.TaskMeta("never-seen")
	if m.HiddenStatus != model.StatusVisible {
		t.Errorf("default hidden status: %q", m.HiddenStatus)
	}
	if !m.ChildrenOpen || !m.PRsOpen || !m.BranchesOpen {
		t.Errorf("sections must default to expanded: %+v", m)
	}
	if m.ParentTicketID != "" || m.Notes != "" {
		t.Errorf("unexpected defaults: %+v", m)
	}
}

func TestUpdateTaskMetaMergePreservesFields(t *testing.T) {
	s := testStore(t)

	if err := s.UpdateTaskMeta("t1", func(m *model.TaskMetadata) {
		m.Notes = "remember the edge case"
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateTaskMeta("t1", func(m *model.TaskMetadata) {
		m.ChildrenOpen = false
	}); err != nil {
		t.Fatal(err)
	}

	m := s.TaskMeta("t1")
	if m.Notes != "remember the edge case" {
		t.Errorf("notes lost by later partial update: %q", m.Notes)
	}
	if m.ChildrenOpen {
		t.Error("section flag not persisted")
	}
}

func TestHideUnhide(t *testing.T) {
	s := testStore(t)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	if err := s.Hide("t1", model.StatusHiddenUntilUpdated, now); err != nil {
		t.Fatal(err)
	}
	m := s.TaskMeta("t1")
	if m.HiddenStatus != model.StatusHiddenUntilUpdated {
		t.Errorf("status: %q", m.HiddenStatus)
	}
	if m.HiddenSince == nil || !m.HiddenSince.Equal(now) {
		t.Errorf("hidden since: %v", m.HiddenSince)
	}

	if err := s.Hide("t1", model.StatusHidden, now); err != nil {
		t.Fatal(err)
	}
	if m := s.TaskMeta("t1"); m.HiddenSince != nil {
		t.Error("plain hidden must clear the hidden-since timestamp")
	}

	if err := s.Unhide("t1"); err != nil {
		t.Fatal(err)
	}
	if m := s.TaskMeta("t1"); m.HiddenStatus != model.StatusVisible {
		t.Errorf("unhide: %q", m.HiddenStatus)
	}
}

func TestMalformedHiddenStatusFallsBack(t *testing.T) {
	s := testStore(t)
	if _, err := s.db.Exec(
		`INSERT INTO task_meta (ticket_id, hidden_status) VALUES ('t1', 'banana')`); err != nil {
		t.Fatal(err)
	}
	if m := s.TaskMeta("t1"); m.HiddenStatus != model.StatusVisible {
		t.Errorf("unknown status must degrade to visible, got %q", m.HiddenStatus)
	}
}

func TestSetParentRejectsCycles(t *testing.T) {
	s := testStore(t)

	// a <- b <- c
	if err := s.SetParent("b", "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetParent("c", "b"); err != nil {
		t.Fatal(err)
	}

	if err := s.SetParent("a", "a"); err != ErrWouldCycle {
		t.Errorf("self-parent: got %v", err)
	}
	if err := s.SetParent("a", "c"); err != ErrWouldCycle {
		t.Errorf("closing the loop a->c->b->a: got %v", err)
	}
	if m := s.TaskMeta("a"); m.ParentTicketID != "" {
		t.Errorf("rejected assignment must not change state: %q", m.ParentTicketID)
	}

	// moving c under a directly is fine
	if err := s.SetParent("c", "a"); err != nil {
		t.Errorf("legal reassignment rejected: %v", err)
	}
}

func TestSetParentChainTerminates(t *testing.T) {
	s := testStore(t)
	// build a deep chain, then verify a legal assignment still works
	prev := ""
	for _, id := range []string{"t1", "t2", "t3", "t4", "t5"} {
		if prev != "" {
			if err := s.SetParent(id, prev); err != nil {
				t.Fatal(err)
			}
		}
		prev = id
	}
	if err := s.SetParent("t1", "t5"); err != ErrWouldCycle {
		t.Errorf("deep cycle must be caught, got %v", err)
	}
}

func TestRemoveParent(t *testing.T) {
	s := testStore(t)
	if err := s.SetParent("b", "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveParent("b"); err != nil {
		t.Fatal(err)
	}
	if m := s.TaskMeta("b"); m.ParentTicketID != "" {
		t.Errorf("parent not cleared: %q", m.ParentTicketID)
	}
}

func TestPRMetaRoundTrip(t *testing.T) {
	s := testStore(t)

	branch := &model.LocalBranch{Name: "feature/ABC-1_x", Repo: "repo", Ahead: 1}
	if err := s.UpdatePRMeta(7, func(m *model.PRMetadata) {
		m.Hidden = true
		m.CachedBranch = branch
	}); err != nil {
		t.Fatal(err)
	}

	m := s.PRMeta(7)
	if !m.Hidden {
		t.Error("hidden flag lost")
	}
	if m.CachedBranch == nil || m.CachedBranch.Name != "feature/ABC-1_x" || m.CachedBranch.Ahead != 1 {
		t.Errorf("cached branch: %+v", m.CachedBranch)
	}
}

func TestPRMetaMalformedCacheTreatedAsAbsent(t *testing.T) {
	s := testStore(t)
	if _, err := s.db.Exec(
		`INSERT INTO pr_meta (pr_id, hidden, cached_branch) VALUES (9, 0, '{not json')`); err != nil {
		t.Fatal(err)
	}
	if m := s.PRMeta(9); m.CachedBranch != nil {
		t.Errorf("malformed cache blob must be nil, got %+v", m.CachedBranch)
	}
}

func TestAllTaskMeta(t *testing.T) {
	s := testStore(t)
	s.UpdateTaskMeta("a", func(m *model.TaskMetadata) { m.Notes = "x" })
	s.UpdateTaskMeta("b", func(m *model.TaskMetadata) { m.Notes = "y" })

	all, err := s.AllTaskMeta()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all["a"].Notes != "x" || all["b"].Notes != "y" {
		t.Errorf("all metadata: %+v", all)
	}
}
