package publish

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/patchpilot/codepatch/internal/types"
)

const (
	branchPrefix     = "ai-edit-"
	branchMaxLen     = 50
	branchTimeLayout = "20060102-150405"

	commitFileCap = 5
	prFileCap     = 10
	prTitleCap    = 50
)

var branchSanitizeRe = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)

// BranchName derives a branch name from the request text: the first few
// sanitized words under a fixed prefix, capped to the platform limit, with
// a timestamp suffix for uniqueness.
func BranchName(request string, now time.Time) string {
	cleaned := branchSanitizeRe.ReplaceAllString(request, "")
	cleaned = strings.ToLower(strings.TrimSpace(cleaned))

	words := strings.Fields(cleaned)
	if len(words) > 4 {
		words = words[:4]
	}

	name := branchPrefix + strings.Join(words, "-")
	if len(name) > branchMaxLen {
		name = name[:branchMaxLen]
	}
	name = strings.TrimRight(name, "-")

	return name + "-" + now.Format(branchTimeLayout)
}

var changeCodes = map[types.AppliedChange]string{
	types.AppliedModified: "M",
	types.AppliedCreated:  "A",
	types.AppliedDeleted:  "D",
}

// CommitMessage summarizes an edit result: the subject on the first line,
// counts by change kind, then up to the first few files with action codes.
func CommitMessage(subject string, result *types.EditResult) string {
	var b strings.Builder

	b.WriteString(truncate(subject, 72) + "\n\n")
	b.WriteString(fmt.Sprintf("%d modified, %d created, %d deleted\n",
		result.Summary.Modified, result.Summary.Created, result.Summary.Deleted))

	for i, change := range result.Changes {
		if i >= commitFileCap {
			b.WriteString(fmt.Sprintf("... and %d more files\n", len(result.Changes)-commitFileCap))
			break
		}
		b.WriteString(fmt.Sprintf("%s %s\n", changeCodes[change.ChangeType], change.FilePath))
	}

	return strings.TrimRight(b.String(), "\n")
}

// PRDetails is the synthesized title and body for a pull request.
type PRDetails struct {
	Title string
	Body  string
}

// NewPRDetails builds the pull-request title and body from the aggregated
// result: the request, change counts, a capped file list, and a severity
// tally across all review issues.
func NewPRDetails(request string, result *types.EditResult) PRDetails {
	title := "AI Edit: " + truncate(request, prTitleCap)

	var b strings.Builder
	b.WriteString("## Request\n\n")
	b.WriteString(request + "\n\n")

	b.WriteString("## Changes\n\n")
	b.WriteString(fmt.Sprintf("- Modified: %d\n", result.Summary.Modified))
	b.WriteString(fmt.Sprintf("- Created: %d\n", result.Summary.Created))
	b.WriteString(fmt.Sprintf("- Deleted: %d\n\n", result.Summary.Deleted))

	if len(result.Changes) > 0 {
		b.WriteString("## Files\n\n")
		for i, change := range result.Changes {
			if i >= prFileCap {
				b.WriteString(fmt.Sprintf("- ... and %d more\n", len(result.Changes)-prFileCap))
				break
			}
			b.WriteString(fmt.Sprintf("- `%s` (%s)\n", change.FilePath, change.ChangeType))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Review\n\n")
	b.WriteString(reviewTally(result) + "\n")

	return PRDetails{Title: title, Body: b.String()}
}

func reviewTally(result *types.EditResult) string {
	counts := map[string]int{}
	for _, change := range result.Changes {
		if change.Review == nil {
			continue
		}
		for _, issue := range change.Review.Issues {
			counts[strings.ToLower(issue.Severity)]++
		}
	}

	var parts []string
	for _, severity := range []string{"critical", "high", "medium"} {
		if n := counts[severity]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, severity))
		}
	}

	if len(parts) == 0 {
		return "Automated review found no major issues."
	}
	return "Automated review flagged: " + strings.Join(parts, ", ") + "."
}

// DiffStat counts added and deleted lines in one file's unified diff.
func DiffStat(unified string) (additions, deletions int, err error) {
	fd, err := diff.ParseFileDiff([]byte(unified))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse diff: %w", err)
	}

	stat := fd.Stat()
	return int(stat.Added + stat.Changed), int(stat.Deleted + stat.Changed), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}
