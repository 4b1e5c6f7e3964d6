package model

import "time"

// HiddenStatus is the stored show/hide state of a task.
type HiddenStatus string

const (
	StatusVisible            HiddenStatus = "visible"
	StatusHidden             HiddenStatus = "hidden"
	StatusHiddenUntilUpdated HiddenStatus = "hidden-until-updated"
)

// TaskMetadata is the durable overlay for one ticket. Tickets are
// re-fetched on every cycle; this is the only task state that survives
// between sessions.
type TaskMetadata struct {
	TicketID       string
	ParentTicketID string // empty = root; the parent relation must stay acyclic
	Notes          string
	HiddenStatus   HiddenStatus
	HiddenSince    *time.Time // set only when entering hidden-until-updated
	ChildrenOpen   bool
	PRsOpen        bool
	BranchesOpen   bool
}

// DefaultTaskMetadata returns the metadata used for tickets the user has
// never interacted with. Section flags default to expanded.
func DefaultTaskMetadata(ticketID string) TaskMetadata {
	return TaskMetadata{
		TicketID:     ticketID,
		HiddenStatus: StatusVisible,
		ChildrenOpen: true,
		PRsOpen:      true,
		BranchesOpen: true,
	}
}

// PRMetadata is the durable overlay for one pull request.
type PRMetadata struct {
	PRID   int64
	Hidden bool
	// CachedBranch is the last local git status fetched for this PR's
	// branch, kept so renders don't re-query git every pass.
	CachedBranch *LocalBranch
}
