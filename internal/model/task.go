package model

import "time"

// Ticket is one work item from the ticketing system, normalized from
// whatever JSON shape the backend returns.
type Ticket struct {
	ID          string
	Key         string // human-readable identifier, e.g. "ABC-123"; the join key to PRs and branches (case-insensitive)
	Title       string
	Status      string // open set: "In Progress", "QA", ... — upstream may introduce new values
	IssueType   string
	InSprint    bool
	Assignee    string
	Priority    string
	Description string
	URL         string
	UpdatedAt   *time.Time // nil if the backend did not report a last-update time
}

// ReviewState is the reduced review outcome of a pull request.
type ReviewState string

const (
	ReviewNone             ReviewState = "no-reviews"
	ReviewPending          ReviewState = "pending"
	ReviewApproved         ReviewState = "approved"
	ReviewChangesRequested ReviewState = "changes-requested"
)

// PullRequest holds pull request metadata fetched from the hosting platform.
type PullRequest struct {
	ID        int64
	Number    int
	Title     string
	State     string // "open", "merged", "closed"
	Draft     bool
	Branch    string // source branch name
	Repo      string // "owner/repo"
	Author    string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time

	// TicketKey is derived from the branch name; empty means the PR is
	// unlinked and will not attach to any task.
	TicketKey string

	ReviewState        ReviewState
	RequestedReviewers []string
	ApprovedReviewers  []string
	RequiredApprovals  int

	// Hidden mirrors the persisted PR overlay; presentation-only.
	Hidden bool

	// LocalStatus is the local git state of the PR's source branch:
	// live data when the branch is present in the latest scan, else the
	// last persisted copy, nil when neither exists.
	LocalStatus *LocalBranch
}

// LocalBranch is one branch present in a local clone.
type LocalBranch struct {
	Name        string
	Repo        string // local directory name of the clone
	Path        string // absolute path of the clone; empty for cached copies
	RemoteURL   string // origin URL, empty if no remote configured
	HasUpstream bool
	Ahead       int
	Behind      int
	LastSubject string // subject line of the tip commit
}

// Task is the reconciled per-ticket view: the ticket, its linked PRs,
// the local branches not already represented by a PR, child tasks from
// the overlay's parent links, and the overlay metadata itself.
type Task struct {
	Ticket

	PullRequests  []PullRequest
	LocalBranches []LocalBranch
	Children      []Task

	Meta TaskMetadata

	// Visible is the effective visibility: Meta.HiddenStatus with the
	// hidden-until-updated expiry applied. Sorting and rendering use
	// this, never the stored status.
	Visible bool
}
