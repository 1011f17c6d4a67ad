package repo

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Git runs porcelain commands against one local working copy.
type Git struct {
	dir string
}

func NewGit(dir string) *Git {
	return &Git{dir: dir}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w: %s", args[0], err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// Clone clones a remote repository into dest. The clone is shallow; the
// pipeline only ever needs the tip of the default branch.
func Clone(ctx context.Context, url, dest string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", url, dest)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git clone failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// CheckoutNewBranch creates and switches to a branch.
func (g *Git) CheckoutNewBranch(ctx context.Context, name string) error {
	_, err := g.run(ctx, "checkout", "-b", name)
	return err
}

// StageAll stages every working-tree change.
func (g *Git) StageAll(ctx context.Context) error {
	_, err := g.run(ctx, "add", "-A")
	return err
}

// IsDirty reports whether the working tree has uncommitted changes.
func (g *Git) IsDirty(ctx context.Context) (bool, error) {
	output, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(output) != "", nil
}

// Commit commits staged changes with the given message.
func (g *Git) Commit(ctx context.Context, message string) error {
	_, err := g.run(ctx, "commit", "-m", message)
	return err
}

// Push force-pushes a branch, overwriting the remote branch if it exists.
func (g *Git) Push(ctx context.Context, branch string) error {
	_, err := g.run(ctx, "push", "-f", "origin", branch)
	return err
}
