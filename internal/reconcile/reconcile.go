// Package reconcile merges tickets, pull requests, and local branches
// into the unified per-task view, and orders it. The merge is pure:
// for a fixed input triple the output is identical regardless of fetch
// order.
package reconcile

import (
	"strings"

	"taskdeck/internal/gitscan"
	"taskdeck/internal/model"
	"taskdeck/internal/overlay"
)

// Reconcile builds the task forest. PRs attach to tickets by extracted
// key (case-insensitive); local branches attach by key containment,
// except branches already represented by an attached PR. Parent links
// come from the overlay; a parent outside the fetched ticket set leaves
// the child at the root.
func Reconcile(
	tickets []model.Ticket,
	prs []model.PullRequest,
	branches []model.LocalBranch,
	taskMeta map[string]model.TaskMetadata,
	prMeta map[int64]model.PRMetadata,
) []model.Task {
	present := make(map[string]bool, len(tickets))
	for _, t := range tickets {
		present[t.ID] = true
	}

	byParent := map[string][]model.Ticket{}
	var roots []model.Ticket
	for _, t := range tickets {
		parent := metaFor(taskMeta, t.ID).ParentTicketID
		if parent != "" && parent != t.ID && present[parent] {
			byParent[parent] = append(byParent[parent], t)
		} else {
			roots = append(roots, t)
		}
	}

	b := builder{
		prs:      prs,
		branches: branches,
		taskMeta: taskMeta,
		prMeta:   prMeta,
		byParent: byParent,
		seen:     map[string]bool{},
	}

	tasks := make([]model.Task, 0, len(roots))
	for _, t := range roots {
		b.seen[t.ID] = true
		tasks = append(tasks, b.build(t))
	}
	return tasks
}

type builder struct {
	prs      []model.PullRequest
	branches []model.LocalBranch
	taskMeta map[string]model.TaskMetadata
	prMeta   map[int64]model.PRMetadata
	byParent map[string][]model.Ticket
	seen     map[string]bool
}

func (b *builder) build(t model.Ticket) model.Task {
	meta := metaFor(b.taskMeta, t.ID)
	task := model.Task{
		Ticket:  t,
		Meta:    meta,
		Visible: overlay.Visible(t, meta),
	}

	for _, pr := range b.prs {
		if pr.TicketKey == "" || !strings.EqualFold(pr.TicketKey, t.Key) {
			continue
		}
		if pm, ok := b.prMeta[pr.ID]; ok {
			pr.Hidden = pm.Hidden
			pr.LocalStatus = pm.CachedBranch
		}
		// a branch present in the scan overrides the persisted copy
		for i := range b.branches {
			if b.branches[i].Name == pr.Branch && RepoIdentitiesMatch(pr.Repo, b.branches[i]) {
				live := b.branches[i]
				pr.LocalStatus = &live
				break
			}
		}
		task.PullRequests = append(task.PullRequests, pr)
	}

	for _, branch := range b.branches {
		if !containsFold(branch.Name, t.Key) {
			continue
		}
		if matchedToPR(branch, task.PullRequests) {
			continue
		}
		task.LocalBranches = append(task.LocalBranches, branch)
	}

	for _, child := range b.byParent[t.ID] {
		if b.seen[child.ID] {
			continue // corrupt parent data must not recurse forever
		}
		b.seen[child.ID] = true
		task.Children = append(task.Children, b.build(child))
	}
	return task
}

// matchedToPR reports whether a local branch is already represented by
// one of the task's PRs. Such branches attach to the PR only, never as
// free-standing entries.
func matchedToPR(branch model.LocalBranch, prs []model.PullRequest) bool {
	for i := range prs {
		if prs[i].Branch == branch.Name && RepoIdentitiesMatch(prs[i].Repo, branch) {
			return true
		}
	}
	return false
}

// RepoIdentitiesMatch accepts direct name equality, last-path-segment
// equality, or the branch's remote-origin "owner/repo" equaling the
// PR's repository.
func RepoIdentitiesMatch(prRepo string, branch model.LocalBranch) bool {
	if strings.EqualFold(prRepo, branch.Repo) {
		return true
	}
	if i := strings.LastIndex(prRepo, "/"); i >= 0 && strings.EqualFold(prRepo[i+1:], branch.Repo) {
		return true
	}
	if origin := gitscan.OwnerRepo(branch.RemoteURL); origin != "" && strings.EqualFold(origin, prRepo) {
		return true
	}
	return false
}

func metaFor(m map[string]model.TaskMetadata, ticketID string) model.TaskMetadata {
	if meta, ok := m[ticketID]; ok {
		return meta
	}
	return model.DefaultTaskMetadata(ticketID)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
