package github

import (
	"context"
	"fmt"
	"sort"
	"time"

	"taskdeck/internal/model"
)

type ghUser struct {
	Login string `json:"login"`
}

type ghReview struct {
	State       string    `json:"state"` // "APPROVED", "CHANGES_REQUESTED", "COMMENTED", "DISMISSED"
	User        ghUser    `json:"user"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (c *Client) listReviews(ctx context.Context, repo string, number int) ([]ghReview, error) {
	var reviews []ghReview
	path := fmt.Sprintf("/repos/%s/pulls/%d/reviews?per_page=100", repo, number)
	if err := c.get(ctx, path, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// applyReviews reduces a review history to the PR's review state. The
// latest non-comment review per reviewer counts; a change request from
// one reviewer outranks approvals from others, and approval requires at
// least `required` distinct approvers.
func applyReviews(pr *model.PullRequest, reviews []ghReview, required int) {
	// reviews arrive oldest first, so later entries overwrite
	latest := map[string]string{}
	for _, r := range reviews {
		switch r.State {
		case "APPROVED", "CHANGES_REQUESTED":
			latest[r.User.Login] = r.State
		case "DISMISSED":
			delete(latest, r.User.Login)
		}
	}

	var approved []string
	changesRequested := false
	for user, state := range latest {
		switch state {
		case "APPROVED":
			approved = append(approved, user)
		case "CHANGES_REQUESTED":
			changesRequested = true
		}
	}
	sort.Strings(approved)
	pr.ApprovedReviewers = approved

	switch {
	case changesRequested:
		pr.ReviewState = model.ReviewChangesRequested
	case len(approved) >= required:
		pr.ReviewState = model.ReviewApproved
	case len(latest) > 0 || len(pr.RequestedReviewers) > 0:
		pr.ReviewState = model.ReviewPending
	default:
		pr.ReviewState = model.ReviewNone
	}
}
