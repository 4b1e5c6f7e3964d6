// Package gitscan inspects local clones for branch state: ahead/behind
// counts, upstream presence, tip subjects, and remote identity. All
// facts come from shelling out to git; one for-each-ref invocation per
// repository covers every branch.
package gitscan

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"taskdeck/internal/model"
)

// refFormat packs everything we need into one for-each-ref pass,
// tab-separated: name, upstream ref, track info, tip subject.
const refFormat = "%(refname:short)\t%(upstream:short)\t%(upstream:track)\t%(subject)"

// Scanner lists branch status across the configured roots.
type Scanner struct {
	roots  []string
	logger *slog.Logger
}

// NewScanner creates a Scanner. Each root is either a repository or a
// directory whose immediate children are repositories.
func NewScanner(roots []string, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{roots: roots, logger: logger}
}

// Scan returns the branch status of every discovered repository.
// Repositories are scanned concurrently; a failing repository is logged
// and skipped.
func (s *Scanner) Scan(ctx context.Context) []model.LocalBranch {
	repos := s.repoPaths()

	var wg sync.WaitGroup
	results := make([][]model.LocalBranch, len(repos))
	for i, path := range repos {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			branches, err := scanRepo(ctx, path)
			if err != nil {
				s.logger.Warn("repository scan failed", "path", path, "error", err)
				return
			}
			results[i] = branches
		}(i, path)
	}
	wg.Wait()

	var out []model.LocalBranch
	for _, branches := range results {
		out = append(out, branches...)
	}
	return out
}

// repoPaths expands the roots into concrete repository paths.
func (s *Scanner) repoPaths() []string {
	var paths []string
	for _, root := range s.roots {
		if isRepo(root) {
			paths = append(paths, root)
			continue
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			s.logger.Warn("scan root unreadable", "root", root, "error", err)
			continue
		}
		for _, e := range entries {
			child := filepath.Join(root, e.Name())
			if e.IsDir() && isRepo(child) {
				paths = append(paths, child)
			}
		}
	}
	return paths
}

func isRepo(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

func scanRepo(ctx context.Context, path string) ([]model.LocalBranch, error) {
	out, err := exec.CommandContext(ctx,
		"git", "-C", path,
		"for-each-ref", "refs/heads", "--format", refFormat,
	).Output()
	if err != nil {
		return nil, err
	}

	remote := RemoteOriginURL(ctx, path)
	return parseRefs(string(out), path, remote), nil
}

// parseRefs parses for-each-ref output in refFormat.
func parseRefs(raw, path, remoteURL string) []model.LocalBranch {
	repoName := filepath.Base(path)
	var branches []model.LocalBranch
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 4)
		if len(parts) < 4 {
			continue
		}
		ahead, behind := parseTrack(parts[2])
		branches = append(branches, model.LocalBranch{
			Name:        parts[0],
			Repo:        repoName,
			Path:        path,
			RemoteURL:   remoteURL,
			HasUpstream: parts[1] != "" && !strings.Contains(parts[2], "gone"),
			Ahead:       ahead,
			Behind:      behind,
			LastSubject: parts[3],
		})
	}
	return branches
}

// parseTrack parses "[ahead 2, behind 1]" style track info.
func parseTrack(track string) (ahead, behind int) {
	track = strings.Trim(track, "[]")
	for _, part := range strings.Split(track, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) != 2 {
			continue
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		switch fields[0] {
		case "ahead":
			ahead = n
		case "behind":
			behind = n
		}
	}
	return ahead, behind
}

// RemoteOriginURL returns the origin URL of the repository at path, or
// "" if no remote exists.
func RemoteOriginURL(ctx context.Context, path string) string {
	out, err := exec.CommandContext(ctx,
		"git", "-C", path, "remote", "get-url", "origin",
	).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
