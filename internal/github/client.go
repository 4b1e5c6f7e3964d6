// Package github fetches pull requests, reviews, and rate-limit status
// from the hosting platform's REST API and normalizes them into the
// internal model.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskdeck/internal/branchkey"
	"taskdeck/internal/config"
	"taskdeck/internal/model"
)

const defaultBaseURL = "https://api.github.com"

// Client talks to the GitHub REST API.
type Client struct {
	baseURL  string
	token    string
	user     string
	required map[string]int
	extract  branchkey.Extractor
	http     *http.Client
	logger   *slog.Logger
}

// New creates a Client from config. The extractor links PR branches to
// ticket keys at fetch time.
func New(cfg config.GitHubConfig, extract branchkey.Extractor, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	required := cfg.RequiredApprovals
	if required == nil {
		required = map[string]int{}
	}
	return &Client{
		baseURL:  defaultBaseURL,
		token:    cfg.Token,
		user:     cfg.User,
		required: required,
		extract:  extract,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// SetBaseURL overrides the API endpoint (tests, GitHub Enterprise).
func (c *Client) SetBaseURL(u string) { c.baseURL = strings.TrimRight(u, "/") }

// Configured reports whether a token is present.
func (c *Client) Configured() bool { return c.token != "" }

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

// ghPR mirrors the fields we care about from the pulls endpoint.
type ghPR struct {
	ID     int64  `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"` // "open", "closed"
	Draft  bool   `json:"draft"`

	MergedAt  *time.Time `json:"merged_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	HTMLURL   string     `json:"html_url"`
	User      ghUser     `json:"user"`
	Head      struct {
		Ref  string `json:"ref"`
		Repo struct {
			FullName string `json:"full_name"`
		} `json:"repo"`
	} `json:"head"`
	Base struct {
		Repo struct {
			FullName string `json:"full_name"`
		} `json:"repo"`
	} `json:"base"`
	RequestedReviewers []ghUser `json:"requested_reviewers"`
}

// pullsPageSize is the per_page value for the pulls endpoint; a short
// page marks the end of the listing.
const pullsPageSize = 50

// ListPullRequests returns all PRs of one repository, with review state
// resolved for the open ones.
func (c *Client) ListPullRequests(ctx context.Context, repo string) ([]model.PullRequest, error) {
	var raw []ghPR
	for page := 1; ; page++ {
		var batch []ghPR
		path := fmt.Sprintf("/repos/%s/pulls?state=all&per_page=%d&page=%d", repo, pullsPageSize, page)
		if err := c.get(ctx, path, &batch); err != nil {
			return nil, err
		}
		raw = append(raw, batch...)
		if len(batch) < pullsPageSize {
			break
		}
	}

	prs := make([]model.PullRequest, 0, len(raw))
	for i := range raw {
		pr := c.normalize(&raw[i], repo)
		if pr.State == "open" {
			reviews, err := c.listReviews(ctx, repo, pr.Number)
			if err != nil {
				// review fetch failure degrades to pending, not a lost PR
				c.logger.Warn("review fetch failed", "repo", repo, "pr", pr.Number, "error", err)
			}
			applyReviews(&pr, reviews, c.requiredFor(repo))
		}
		prs = append(prs, pr)
	}
	return prs, nil
}

func (c *Client) normalize(raw *ghPR, repo string) model.PullRequest {
	state := raw.State
	if raw.MergedAt != nil {
		state = "merged"
	}
	fullName := raw.Base.Repo.FullName
	if fullName == "" {
		fullName = repo
	}

	requested := make([]string, 0, len(raw.RequestedReviewers))
	for _, r := range raw.RequestedReviewers {
		requested = append(requested, r.Login)
	}

	return model.PullRequest{
		ID:                 raw.ID,
		Number:             raw.Number,
		Title:              raw.Title,
		State:              state,
		Draft:              raw.Draft,
		Branch:             raw.Head.Ref,
		Repo:               fullName,
		Author:             raw.User.Login,
		URL:                raw.HTMLURL,
		CreatedAt:          raw.CreatedAt,
		UpdatedAt:          raw.UpdatedAt,
		TicketKey:          c.extract.Extract(raw.Head.Ref),
		ReviewState:        model.ReviewNone,
		RequestedReviewers: requested,
		RequiredApprovals:  c.requiredFor(fullName),
	}
}

func (c *Client) requiredFor(repo string) int {
	if n, ok := c.required[repo]; ok && n > 0 {
		return n
	}
	return 1
}

// RateLimited reports whether the API is currently exhausted. Errors
// fail open: an unreachable rate-limit endpoint does not block fetches.
func (c *Client) RateLimited(ctx context.Context) bool {
	var out struct {
		Resources struct {
			Core struct {
				Remaining int   `json:"remaining"`
				Limit     int   `json:"limit"`
				Reset     int64 `json:"reset"`
			} `json:"core"`
		} `json:"resources"`
	}
	if err := c.get(ctx, "/rate_limit", &out); err != nil {
		return false
	}
	return out.Resources.Core.Remaining == 0
}

// ListRepositories returns up to limit of the user's repositories, most
// recently pushed first. Used by active-repository discovery.
func (c *Client) ListRepositories(ctx context.Context, limit int) ([]string, error) {
	var raw []struct {
		FullName string `json:"full_name"`
	}
	path := fmt.Sprintf("/user/repos?sort=pushed&per_page=%d", limit)
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(raw))
	for _, r := range raw {
		names = append(names, r.FullName)
	}
	return names, nil
}

// SearchReviewRequests returns open PRs where the operator is a
// requested reviewer (the review inbox).
func (c *Client) SearchReviewRequests(ctx context.Context) ([]model.PullRequest, error) {
	if !c.Configured() {
		return nil, nil
	}
	user := c.user
	if user == "" {
		user = "@me"
	}
	q := url.QueryEscape(fmt.Sprintf("is:open is:pr review-requested:%s archived:false", user))

	var out struct {
		Items []struct {
			ID            int64     `json:"id"`
			Number        int       `json:"number"`
			Title         string    `json:"title"`
			HTMLURL       string    `json:"html_url"`
			UpdatedAt     time.Time `json:"updated_at"`
			CreatedAt     time.Time `json:"created_at"`
			RepositoryURL string    `json:"repository_url"`
			Draft         bool      `json:"draft"`
			User          ghUser    `json:"user"`
		} `json:"items"`
	}
	if err := c.get(ctx, "/search/issues?q="+q, &out); err != nil {
		return nil, err
	}

	prs := make([]model.PullRequest, 0, len(out.Items))
	for _, it := range out.Items {
		prs = append(prs, model.PullRequest{
			ID:          it.ID,
			Number:      it.Number,
			Title:       it.Title,
			State:       "open",
			Draft:       it.Draft,
			Repo:        repoFromAPIURL(it.RepositoryURL),
			Author:      it.User.Login,
			URL:         it.HTMLURL,
			CreatedAt:   it.CreatedAt,
			UpdatedAt:   it.UpdatedAt,
			ReviewState: model.ReviewPending,
		})
	}
	return prs, nil
}

// repoFromAPIURL turns ".../repos/owner/repo" into "owner/repo".
func repoFromAPIURL(u string) string {
	if i := strings.Index(u, "/repos/"); i >= 0 {
		return u[i+len("/repos/"):]
	}
	return ""
}
