package repo

import (
	"context"
	"fmt"
	"os"

	"github.com/patchpilot/codepatch/internal/analyzer"
	"github.com/patchpilot/codepatch/internal/editor"
	"github.com/patchpilot/codepatch/internal/executor"
	"github.com/patchpilot/codepatch/internal/github"
	"github.com/patchpilot/codepatch/internal/publish"
	"github.com/patchpilot/codepatch/internal/types"
	"github.com/patchpilot/codepatch/internal/utils"
)

const previewCap = 5

// Hosting is the subset of the platform API the manager needs.
type Hosting interface {
	GetRepository(ctx context.Context, owner, repo string) (*github.RepoInfo, error)
	Permissions(ctx context.Context, owner, repo string) (map[string]bool, error)
	CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) (*types.Publication, error)
}

// Planner produces edit plans and per-file content. The AI editor satisfies
// this.
type Planner interface {
	executor.Generator
	GeneratePlan(repoCtx *types.RepositoryContext, request string) (*types.EditPlan, error)
}

// Manager sequences the whole pipeline: characterize, plan, execute,
// publish. One Manager serves many concurrent requests; the context cache
// is the only shared mutable state.
type Manager struct {
	hosting   Hosting
	planner   Planner
	validator *editor.PlanValidator
	cache     *Cache
}

func NewManager(hosting Hosting, planner Planner, validator *editor.PlanValidator, cacheSize int) *Manager {
	return &Manager{
		hosting:   hosting,
		planner:   planner,
		validator: validator,
		cache:     NewCache(cacheSize),
	}
}

// Analyze characterizes the repository at url, cloning it into a temporary
// working copy on first sight. Repeated calls for the same url return the
// cached context without re-cloning.
func (m *Manager) Analyze(ctx context.Context, url string) (*types.RepositoryContext, error) {
	owner, name, err := github.ParseRepoURL(url)
	if err != nil {
		return nil, err
	}

	return m.cache.GetOrBuild(url, func() (*types.RepositoryContext, error) {
		info, err := m.hosting.GetRepository(ctx, owner, name)
		if err != nil {
			return nil, err
		}

		tempDir, err := os.MkdirTemp("", "codepatch-*")
		if err != nil {
			return nil, &types.FileOperationError{Path: "tempdir", Err: err}
		}

		cloneURL := info.CloneURL
		if cloneURL == "" {
			cloneURL = url
		}

		if err := Clone(ctx, cloneURL, tempDir); err != nil {
			_ = os.RemoveAll(tempDir)
			return nil, err
		}

		return BuildContext(url, owner, name, info.Description, info.DefaultBranch, tempDir, tempDir)
	})
}

// Plan asks the planner for an edit plan and runs the policy validator over
// it. Validator findings come back as warnings on the plan result; they
// never block.
func (m *Manager) Plan(repoCtx *types.RepositoryContext, request string) (*types.EditPlan, []string, error) {
	if request == "" {
		return nil, nil, &types.InputError{Field: "request", Reason: "must not be empty"}
	}

	plan, err := m.planner.GeneratePlan(repoCtx, request)
	if err != nil {
		return nil, nil, err
	}

	validation := m.validator.Validate(plan)
	return plan, validation.Warnings, nil
}

// Execute applies the plan against the repository's working copy.
func (m *Manager) Execute(repoCtx *types.RepositoryContext, plan *types.EditPlan, request string) *types.EditResult {
	x := executor.New(repoCtx.LocalPath, m.planner)
	result := x.Execute(plan, utils.NewRequestID())
	return result
}

// Preview renders unified diffs for the first few modify instructions
// without touching the working copy.
func (m *Manager) Preview(repoCtx *types.RepositoryContext, plan *types.EditPlan) ([]types.PreviewChange, error) {
	var previews []types.PreviewChange

	for _, instr := range plan.Instructions {
		if instr.ChangeType != types.ChangeModify {
			continue
		}
		if len(previews) >= previewCap {
			break
		}

		raw, err := os.ReadFile(repoCtx.LocalPath + "/" + instr.FilePath)
		if err != nil {
			continue
		}

		original := string(raw)
		lang := analyzer.DetectLanguage(instr.FilePath, original)

		proposed, err := m.planner.EditFile(instr.FilePath, original, lang, instr.Description, instr.Context)
		if err != nil {
			continue
		}

		diff, err := analyzer.UnifiedDiff(original, proposed, instr.FilePath)
		if err != nil {
			continue
		}

		additions, deletions := 0, 0
		if diff != "" {
			additions, deletions, err = publish.DiffStat(diff)
			if err != nil {
				additions, deletions = 0, 0
			}
		}

		previews = append(previews, types.PreviewChange{
			FilePath:  instr.FilePath,
			Language:  string(lang),
			Diff:      diff,
			Additions: additions,
			Deletions: deletions,
		})
	}

	return previews, nil
}

// Publish stages, commits and pushes the applied changes on the named
// branch and opens a pull request with the given title and body. Each stage
// failure is wrapped in a PublicationError naming the stage, so "edits
// applied, publication failed" stays distinguishable from an edit failure.
func (m *Manager) Publish(ctx context.Context, repoCtx *types.RepositoryContext, result *types.EditResult, branch, title, body string) (*types.Publication, error) {
	if !result.Success {
		return nil, &types.PublicationError{Stage: "precheck", Err: fmt.Errorf("cannot publish a failed edit result")}
	}
	if branch == "" {
		return nil, &types.PublicationError{Stage: "precheck", Err: fmt.Errorf("branch name must not be empty")}
	}

	perms, err := m.hosting.Permissions(ctx, repoCtx.Owner, repoCtx.Name)
	if err != nil {
		return nil, &types.PublicationError{Stage: "precheck", Err: err}
	}
	if !perms["push"] {
		return nil, &types.PublicationError{Stage: "precheck", Err: fmt.Errorf("token lacks push access to %s/%s", repoCtx.Owner, repoCtx.Name)}
	}

	git := NewGit(repoCtx.LocalPath)

	if err := git.CheckoutNewBranch(ctx, branch); err != nil {
		return nil, &types.PublicationError{Stage: "branch", Err: err}
	}

	if err := git.StageAll(ctx); err != nil {
		return nil, &types.PublicationError{Stage: "stage", Err: err}
	}

	dirty, err := git.IsDirty(ctx)
	if err != nil {
		return nil, &types.PublicationError{Stage: "status", Err: err}
	}
	if !dirty {
		return nil, &types.PublicationError{Stage: "status", Err: fmt.Errorf("working tree has no changes to publish")}
	}

	if err := git.Commit(ctx, publish.CommitMessage(title, result)); err != nil {
		return nil, &types.PublicationError{Stage: "commit", Err: err}
	}

	if err := git.Push(ctx, branch); err != nil {
		return nil, &types.PublicationError{Stage: "push", Err: err}
	}

	pub, err := m.hosting.CreatePullRequest(ctx, repoCtx.Owner, repoCtx.Name,
		title, body, branch, repoCtx.DefaultBranch)
	if err != nil {
		return nil, &types.PublicationError{Stage: "pull_request", Err: err}
	}

	result.BranchName = branch
	result.PRURL = pub.URL

	return pub, nil
}

// Cleanup releases the working copy for url and drops the cached context.
func (m *Manager) Cleanup(url string) {
	m.cache.Remove(url)
}

// Close releases every cached working copy.
func (m *Manager) Close() {
	m.cache.Clear()
}
