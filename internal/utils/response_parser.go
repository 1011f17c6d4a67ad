package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/patchpilot/codepatch/internal/types"
)

// FormatViolationError means the model's response could not be coerced into
// the expected structure by any repair strategy.
type FormatViolationError struct {
	Response string
	Reason   string
}

func (e *FormatViolationError) Error() string {
	return fmt.Sprintf("format violation: %s. Response: %s", e.Reason, e.Response)
}

func IsFormatViolation(err error) bool {
	_, ok := err.(*FormatViolationError)
	return ok
}

// ParsePlanResponse parses a planning response into an EditPlan. The plan
// must arrive as a JSON object; responses wrapped in prose or code fences
// are unwrapped before parsing. A plan without instructions is malformed.
func ParsePlanResponse(response string) (*types.EditPlan, error) {
	response = strings.TrimSpace(response)

	candidates := []string{response}
	if fenced := extractFromCodeBlock(response); fenced != "" {
		candidates = append(candidates, fenced)
	}
	if obj := extractBalanced(response, '{', '}'); obj != "" {
		candidates = append(candidates, obj)
	}

	for _, candidate := range candidates {
		var plan types.EditPlan
		if err := json.Unmarshal([]byte(candidate), &plan); err != nil {
			continue
		}
		if err := checkPlanShape(&plan); err != nil {
			return nil, err
		}
		applyPlanDefaults(&plan)
		return &plan, nil
	}

	return nil, &FormatViolationError{
		Response: truncateString(response, 500),
		Reason:   "could not parse response as a JSON edit plan",
	}
}

func checkPlanShape(plan *types.EditPlan) error {
	if len(plan.Instructions) == 0 {
		return &FormatViolationError{Reason: "plan contains no instructions"}
	}
	for i, instr := range plan.Instructions {
		if instr.FilePath == "" {
			return &FormatViolationError{Reason: fmt.Sprintf("instruction %d has no file path", i)}
		}
		switch instr.ChangeType {
		case types.ChangeModify, types.ChangeCreate, types.ChangeDelete, types.ChangeRename:
		case "":
			return &FormatViolationError{Reason: fmt.Sprintf("instruction %d has no change type", i)}
		default:
			return &FormatViolationError{Reason: fmt.Sprintf("instruction %d has unknown change type %q", i, instr.ChangeType)}
		}
	}
	return nil
}

func applyPlanDefaults(plan *types.EditPlan) {
	for i := range plan.Instructions {
		if plan.Instructions[i].Priority == 0 {
			plan.Instructions[i].Priority = 1
		}
	}
	if plan.Effort == "" {
		plan.Effort = types.EffortMedium
	}
	if plan.Confidence == 0 {
		plan.Confidence = 0.7
	}
}

// ParseIssuesFromResponse parses a review response into issues. An exact
// "APPROVED" reply means no issues; otherwise the response must contain a
// JSON array of issues, recovered through a ladder of repair strategies.
func ParseIssuesFromResponse(review string) ([]types.Issue, error) {
	review = strings.TrimSpace(review)

	if strings.EqualFold(review, "APPROVED") {
		return []types.Issue{}, nil
	}

	if issues, err := tryDirectJSONParse(review); err == nil {
		return issues, nil
	}

	if issues, err := tryExtractAndParseJSON(review); err == nil {
		return issues, nil
	}

	if issues, err := tryRepairIncompleteJSON(review); err == nil {
		return issues, nil
	}

	if issues, err := tryExtractIndividualIssues(review); err == nil && len(issues) > 0 {
		return issues, nil
	}

	return nil, &FormatViolationError{
		Response: truncateString(review, 500),
		Reason:   "could not parse response as APPROVED or a valid JSON issue array",
	}
}

func tryDirectJSONParse(response string) ([]types.Issue, error) {
	var issues []types.Issue
	err := json.Unmarshal([]byte(response), &issues)
	return issues, err
}

func tryExtractAndParseJSON(response string) ([]types.Issue, error) {
	jsonContent := extractFromCodeBlock(response)
	if jsonContent == "" {
		jsonContent = extractBalanced(response, '[', ']')
	}
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found")
	}

	var issues []types.Issue
	err := json.Unmarshal([]byte(jsonContent), &issues)
	return issues, err
}

func tryRepairIncompleteJSON(response string) ([]types.Issue, error) {
	lastBrace := strings.LastIndex(response, "}")
	if lastBrace == -1 {
		return nil, fmt.Errorf("no closing brace found")
	}

	truncated := strings.TrimSpace(response[:lastBrace+1])

	if strings.HasPrefix(truncated, "[") && !strings.HasSuffix(truncated, "]") {
		repaired := truncated + "\n]"

		var issues []types.Issue
		if err := json.Unmarshal([]byte(repaired), &issues); err == nil {
			return issues, nil
		}
	}

	return nil, fmt.Errorf("could not repair JSON")
}

var issueObjectRe = regexp.MustCompile(`\{[^{}]*"severity"[^{}]*"description"[^{}]*\}`)

// tryExtractIndividualIssues recovers issue objects even when the
// surrounding array structure is broken.
func tryExtractIndividualIssues(response string) ([]types.Issue, error) {
	matches := issueObjectRe.FindAllString(response, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no issue objects found")
	}

	var issues []types.Issue
	for _, match := range matches {
		var issue types.Issue
		if err := json.Unmarshal([]byte(match), &issue); err == nil {
			issues = append(issues, issue)
		}
	}

	if len(issues) == 0 {
		return nil, fmt.Errorf("no valid issues parsed")
	}

	return issues, nil
}

// StripCodeFences unwraps generated file content from a markdown code block
// when the model insists on adding one. Content without fences is returned
// untouched.
func StripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return content
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return content
	}

	// Drop the opening fence (with optional language tag) and any closing fence.
	lines = lines[1:]
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}

	return strings.Join(lines, "\n")
}

func extractFromCodeBlock(response string) string {
	start := strings.Index(response, "```")
	if start == -1 {
		return ""
	}
	rest := response[start+3:]
	if newline := strings.IndexByte(rest, '\n'); newline != -1 {
		rest = rest[newline+1:]
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// extractBalanced returns the first balanced open..close region, respecting
// JSON string quoting.
func extractBalanced(response string, open, close byte) string {
	start := strings.IndexByte(response, open)
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(response); i++ {
		char := response[i]

		if escaped {
			escaped = false
			continue
		}
		switch {
		case char == '\\' && inString:
			escaped = true
		case char == '"':
			inString = !inString
		case !inString && char == open:
			depth++
		case !inString && char == close:
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}

	return ""
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
