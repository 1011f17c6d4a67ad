package types

import "time"

// ChangeType is the kind of change an instruction requests.
type ChangeType string

const (
	ChangeModify ChangeType = "modify"
	ChangeCreate ChangeType = "create"
	ChangeDelete ChangeType = "delete"
	ChangeRename ChangeType = "rename"
)

// AppliedChange is the kind of change actually recorded on a FileChange.
type AppliedChange string

const (
	AppliedModified AppliedChange = "modified"
	AppliedCreated  AppliedChange = "created"
	AppliedDeleted  AppliedChange = "deleted"
)

// Effort is the planner's coarse time estimate for a plan.
type Effort string

const (
	EffortQuick   Effort = "quick"
	EffortMedium  Effort = "medium"
	EffortComplex Effort = "complex"
)

// EditInstruction is a single requested change to one file.
//
// Priority 1 is the most urgent; the executor runs instructions in
// ascending priority order, so lower numbers always run first.
type EditInstruction struct {
	FilePath    string         `json:"file_path"`
	ChangeType  ChangeType     `json:"change_type"`
	Description string         `json:"description"`
	Context     map[string]any `json:"context,omitempty"`
	Priority    int            `json:"priority"`
}

// EditPlan is an ordered set of instructions plus risk and effort metadata
// produced by the planner for a single request. Plans are never mutated
// after planning.
type EditPlan struct {
	Instructions []EditInstruction `json:"instructions"`
	Dependencies []string          `json:"dependencies"`
	Risks        []string          `json:"risks"`
	Effort       Effort            `json:"estimated_time"`
	Confidence   float64           `json:"confidence"`
}

// ValidationResult records the syntax validation outcome for generated content.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings"`
}

// Issue is a single problem found by the review pass.
type Issue struct {
	Severity    string `json:"severity"`
	FilePath    string `json:"file_path,omitempty"`
	StartLine   int    `json:"start_line,omitempty"`
	EndLine     int    `json:"end_line,omitempty"`
	Description string `json:"description"`
}

// ReviewResult is the outcome of reviewing one file's change.
type ReviewResult struct {
	Status  string  `json:"status"`
	Issues  []Issue `json:"issues"`
	Summary string  `json:"summary,omitempty"`
}

// FileChange records one successfully applied instruction.
type FileChange struct {
	FilePath        string           `json:"file_path"`
	OriginalContent string           `json:"original_content"`
	NewContent      string           `json:"new_content"`
	ChangeType      AppliedChange    `json:"change_type"`
	Language        string           `json:"language"`
	Validation      ValidationResult `json:"validation"`
	Review          *ReviewResult    `json:"review,omitempty"`
	Explanation     string           `json:"explanation,omitempty"`
}

// Summary aggregates the outcome of a whole edit batch.
type Summary struct {
	TotalInstructions int       `json:"total_instructions"`
	Successful        int       `json:"successful_changes"`
	Failed            int       `json:"failed_changes"`
	Warnings          int       `json:"warnings_count"`
	Modified          int       `json:"files_modified"`
	Created           int       `json:"files_created"`
	Deleted           int       `json:"files_deleted"`
	Timestamp         time.Time `json:"timestamp"`
}

// EditResult is the aggregated outcome of executing a plan. Success is true
// iff at least one change was produced and no errors were recorded.
type EditResult struct {
	Success    bool         `json:"success"`
	Changes    []FileChange `json:"changes"`
	Plan       *EditPlan    `json:"plan,omitempty"`
	Summary    Summary      `json:"summary"`
	Errors     []string     `json:"errors"`
	Warnings   []string     `json:"warnings"`
	BranchName string       `json:"branch_name,omitempty"`
	PRURL      string       `json:"pr_url,omitempty"`
	RequestID  string       `json:"request_id,omitempty"`
}

// FileInfo annotates one file in a repository tree.
type FileInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Language string `json:"language"`
}

// TreeNode is one directory in the characterized repository tree. Recursion
// stops past a depth limit, in which case Truncated is set.
type TreeNode struct {
	Name      string      `json:"name"`
	Dirs      []*TreeNode `json:"dirs,omitempty"`
	Files     []FileInfo  `json:"files,omitempty"`
	Truncated bool        `json:"truncated,omitempty"`
}

// RepositoryContext is the characterized snapshot of a repository. It is
// created once per distinct source URL, is immutable after creation, and is
// cached until explicit cleanup releases its local working copy.
type RepositoryContext struct {
	URL            string            `json:"repo_url"`
	Owner          string            `json:"owner"`
	Name           string            `json:"repo_name"`
	Description    string            `json:"description,omitempty"`
	DefaultBranch  string            `json:"default_branch"`
	LocalPath      string            `json:"-"`
	TempDir        string            `json:"-"`
	Tree           *TreeNode         `json:"structure,omitempty"`
	ImportantFiles []string          `json:"important_files"`
	KeyFiles       map[string]string `json:"key_files,omitempty"`
	Languages      []string          `json:"languages"`
	FileCount      int               `json:"file_count"`
}

// PreviewChange is a dry-run rendering of one modify instruction.
type PreviewChange struct {
	FilePath  string `json:"file_path"`
	Language  string `json:"language"`
	Diff      string `json:"diff"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// Publication identifies the pull request created for an edit result.
type Publication struct {
	URL    string `json:"url"`
	Number int    `json:"number"`
	Branch string `json:"branch"`
}
