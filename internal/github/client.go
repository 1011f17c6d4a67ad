package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/patchpilot/codepatch/internal/types"
)

// Client wraps the hosting API for the operations the pipeline needs.
// Every call waits on a shared limiter so a burst of requests cannot trip
// the platform's secondary rate limits.
type Client struct {
	client  *github.Client
	limiter *rate.Limiter
}

// New creates an authenticated client. An empty token yields an
// unauthenticated client restricted to public repositories.
func New(token string) *Client {
	gh := github.NewClient(nil)
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		gh = github.NewClient(oauth2.NewClient(context.Background(), ts))
	}

	return &Client{
		client:  gh,
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// NewWithBaseURL points the client at a different API host, used by tests
// and enterprise installs.
func NewWithBaseURL(token, baseURL string) (*Client, error) {
	c := New(token)
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	c.client.BaseURL = parsed
	return c, nil
}

// ParseRepoURL parses a repository URL into owner and name. HTTPS and SSH
// forms are accepted.
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	repoURL = strings.TrimSpace(repoURL)
	repoURL = strings.TrimSuffix(repoURL, ".git")

	if repoURL == "" {
		return "", "", &types.InputError{Field: "repo_url", Reason: "must not be empty"}
	}

	// SSH form: git@github.com:owner/repo
	if strings.HasPrefix(repoURL, "git@github.com:") {
		parts := strings.Split(strings.TrimPrefix(repoURL, "git@github.com:"), "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", &types.InputError{Field: "repo_url", Reason: "invalid SSH repository URL format"}
		}
		return parts[0], parts[1], nil
	}

	u, err := url.Parse(repoURL)
	if err != nil || u.Host == "" {
		return "", "", &types.InputError{Field: "repo_url", Reason: "invalid URL"}
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &types.InputError{Field: "repo_url", Reason: "expected https://github.com/owner/repo"}
	}

	return parts[0], parts[1], nil
}

// RepoInfo is the repository metadata the characterizer needs.
type RepoInfo struct {
	Owner         string
	Name          string
	Description   string
	DefaultBranch string
	Private       bool
	CloneURL      string
}

func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*RepoInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	repository, _, err := c.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s/%s: %w", owner, repo, err)
	}

	return &RepoInfo{
		Owner:         owner,
		Name:          repo,
		Description:   repository.GetDescription(),
		DefaultBranch: repository.GetDefaultBranch(),
		Private:       repository.GetPrivate(),
		CloneURL:      repository.GetCloneURL(),
	}, nil
}

// GetTree fetches the full recursive file tree for a ref.
func (c *Client) GetTree(ctx context.Context, owner, repo, ref string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	tree, _, err := c.client.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree for %s/%s@%s: %w", owner, repo, ref, err)
	}

	var paths []string
	for _, entry := range tree.Entries {
		if entry.GetType() == "blob" {
			paths = append(paths, entry.GetPath())
		}
	}
	return paths, nil
}

// GetFileContent fetches and decodes one file at a ref.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	content, _, _, err := c.client.Repositories.GetContents(ctx, owner, repo, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", path, err)
	}
	if content == nil {
		return "", fmt.Errorf("%s is not a file", path)
	}

	decoded, err := content.GetContent()
	if err != nil {
		// Some blobs come back base64 without an encoding marker.
		if content.Content != nil {
			raw, decodeErr := base64.StdEncoding.DecodeString(*content.Content)
			if decodeErr == nil {
				return string(raw), nil
			}
		}
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return decoded, nil
}

// CreateOrUpdateFile writes one file on a branch. When sha is non-empty the
// update is conflict-aware: it fails if the file moved under us.
func (c *Client) CreateOrUpdateFile(ctx context.Context, owner, repo, path, branch, message, content, sha string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		Branch:  github.String(branch),
	}
	if sha != "" {
		opts.SHA = github.String(sha)
	}

	_, _, err := c.client.Repositories.CreateFile(ctx, owner, repo, path, opts)
	if err != nil {
		return fmt.Errorf("failed to write %s on %s: %w", path, branch, err)
	}
	return nil
}

// CreateBranch creates a branch from the source ref. When the source is not
// found it retries against "master" before giving up, and a branch that
// already exists is treated as success.
func (c *Client) CreateBranch(ctx context.Context, owner, repo, branch, sourceRef string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ref, resp, err := c.client.Git.GetRef(ctx, owner, repo, "refs/heads/"+sourceRef)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 && sourceRef != "master" {
			return c.CreateBranch(ctx, owner, repo, branch, "master")
		}
		return fmt.Errorf("failed to resolve source ref %s: %w", sourceRef, err)
	}

	newRef := &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: ref.Object.SHA},
	}

	_, resp, err = c.client.Git.CreateRef(ctx, owner, repo, newRef)
	if err != nil {
		if resp != nil && resp.StatusCode == 422 {
			// Reference already exists.
			return nil
		}
		return fmt.Errorf("failed to create branch %s: %w", branch, err)
	}
	return nil
}

// CreatePullRequest opens a PR and returns its URL and number.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) (*types.Publication, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	pr, _, err := c.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Body:  github.String(body),
		Head:  github.String(head),
		Base:  github.String(base),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create PR: %w", err)
	}

	return &types.Publication{
		URL:    pr.GetHTMLURL(),
		Number: pr.GetNumber(),
		Branch: head,
	}, nil
}

// GetBranch reports whether a branch exists and its head SHA.
func (c *Client) GetBranch(ctx context.Context, owner, repo, branch string) (string, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", false, err
	}

	ref, resp, err := c.client.Git.GetRef(ctx, owner, repo, "refs/heads/"+branch)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get branch %s: %w", branch, err)
	}
	return ref.Object.GetSHA(), true, nil
}

// ListBranches lists branch names, capped at one page of 100.
func (c *Client) ListBranches(ctx context.Context, owner, repo string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	branches, _, err := c.client.Repositories.ListBranches(ctx, owner, repo,
		&github.BranchListOptions{ListOptions: github.ListOptions{PerPage: 100}})
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	var names []string
	for _, b := range branches {
		names = append(names, b.GetName())
	}
	return names, nil
}

// Permissions reports what the authenticated token may do on the repository
// (admin/push/pull flags).
func (c *Client) Permissions(ctx context.Context, owner, repo string) (map[string]bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	repository, _, err := c.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s/%s: %w", owner, repo, err)
	}

	return repository.GetPermissions(), nil
}
