package gitscan

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

func run(ctx context.Context, path string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", path}, args...)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(out)))
	}
	return nil
}

// Push pushes branch to origin, setting the upstream if absent.
func Push(ctx context.Context, path, branch string) error {
	return run(ctx, path, "push", "-u", "origin", branch)
}

// Pull brings branch up to date with its upstream. The checked-out
// branch is fast-forwarded in place; any other branch is updated via
// fetch without touching the working tree.
func Pull(ctx context.Context, path, branch string) error {
	if CurrentBranch(ctx, path) == branch {
		return run(ctx, path, "pull", "--ff-only")
	}
	return run(ctx, path, "fetch", "origin", branch+":"+branch)
}

// DeleteBranch removes a local branch. Deleting the checked-out branch
// first switches to the default branch, creating it from the remote if
// it does not exist locally. A branch that is already gone counts as
// deleted — the desired end state is reached either way.
func DeleteBranch(ctx context.Context, path, branch string) error {
	if !branchExists(ctx, path, branch) {
		return nil
	}

	if CurrentBranch(ctx, path) == branch {
		def := DefaultBranch(ctx, path)
		if err := run(ctx, path, "checkout", def); err != nil {
			if err := run(ctx, path, "checkout", "-b", def, "origin/"+def); err != nil {
				return fmt.Errorf("switch off %s: %w", branch, err)
			}
		}
	}

	return run(ctx, path, "branch", "-D", branch)
}

func branchExists(ctx context.Context, path, branch string) bool {
	err := exec.CommandContext(ctx,
		"git", "-C", path, "show-ref", "--verify", "--quiet", "refs/heads/"+branch,
	).Run()
	return err == nil
}
