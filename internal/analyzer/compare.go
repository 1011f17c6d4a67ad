package analyzer

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const comparePreviewLines = 10

// FileDiff summarizes the difference between two versions of a file.
// Additions and deletions are the symmetric set difference of lines, not a
// positional diff: duplicated and reordered lines are not distinguished.
// Similarity is difflib's token-level sequence ratio in [0,1]; the ratio is
// computed from the total size of matching blocks, which makes it symmetric
// in argument order (asserted by tests).
type FileDiff struct {
	Changed      bool     `json:"changed"`
	Additions    int      `json:"additions"`
	Deletions    int      `json:"deletions"`
	Similarity   float64  `json:"similarity"`
	AddedLines   []string `json:"added_lines,omitempty"`
	RemovedLines []string `json:"removed_lines,omitempty"`
}

// CompareFiles compares two versions of a file's content. Identical inputs
// always yield Changed=false with Similarity 1.0.
func CompareFiles(oldContent, newContent string) FileDiff {
	if oldContent == newContent {
		return FileDiff{Changed: false, Similarity: 1.0}
	}

	oldSet := lineSet(oldContent)
	newSet := lineSet(newContent)

	var added, removed []string
	for line := range newSet {
		if !oldSet[line] {
			added = append(added, line)
		}
	}
	for line := range oldSet {
		if !newSet[line] {
			removed = append(removed, line)
		}
	}

	matcher := difflib.NewMatcher(strings.Fields(oldContent), strings.Fields(newContent))

	diff := FileDiff{
		Changed:    true,
		Additions:  len(added),
		Deletions:  len(removed),
		Similarity: matcher.Ratio(),
	}
	diff.AddedLines = capLines(added)
	diff.RemovedLines = capLines(removed)
	return diff
}

// UnifiedDiff renders a unified diff between two versions, used by the
// preview path and never by the executor itself.
func UnifiedDiff(oldContent, newContent, path string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: "original/" + path,
		ToFile:   "modified/" + path,
		Context:  3,
	})
}

// ContentHash fingerprints file content for change tracking.
func ContentHash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

func lineSet(content string) map[string]bool {
	set := make(map[string]bool)
	for _, line := range strings.Split(content, "\n") {
		set[line] = true
	}
	return set
}

func capLines(lines []string) []string {
	if len(lines) > comparePreviewLines {
		return lines[:comparePreviewLines]
	}
	return lines
}
