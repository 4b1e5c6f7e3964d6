package gitscan

import (
	"context"
	"os/exec"
	"strings"
)

// OwnerRepo extracts "owner/repo" from a remote URL, handling both SSH
// ("git@host:owner/repo.git") and HTTPS ("https://host/owner/repo.git")
// forms. Returns "" when the URL has no recognizable owner/repo tail.
func OwnerRepo(remoteURL string) string {
	u := strings.TrimSpace(remoteURL)
	if u == "" {
		return ""
	}
	u = strings.TrimSuffix(u, ".git")

	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	if i := strings.Index(u, "@"); i >= 0 {
		u = u[i+1:]
	}
	// "host:owner/repo" or "host/owner/repo"
	u = strings.ReplaceAll(u, ":", "/")

	parts := strings.Split(u, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}

// DefaultBranch returns the repository's default remote branch (e.g.
// "main", "master"). Falls back to "main" if it cannot be determined.
func DefaultBranch(ctx context.Context, path string) string {
	out, err := exec.CommandContext(ctx,
		"git", "-C", path,
		"symbolic-ref", "--short", "refs/remotes/origin/HEAD",
	).Output()
	if err == nil {
		// output is "origin/main" — strip the remote prefix
		ref := strings.TrimSpace(string(out))
		if _, after, ok := strings.Cut(ref, "/"); ok {
			return after
		}
	}
	return "main"
}

// CurrentBranch returns the checked-out branch, or "" when detached or
// on error.
func CurrentBranch(ctx context.Context, path string) string {
	out, err := exec.CommandContext(ctx,
		"git", "-C", path, "branch", "--show-current",
	).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
