package editor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/patchpilot/codepatch/internal/analyzer"
	"github.com/patchpilot/codepatch/internal/llm"
	"github.com/patchpilot/codepatch/internal/prompts"
	"github.com/patchpilot/codepatch/internal/types"
	"github.com/patchpilot/codepatch/internal/utils"
)

const generateAttempts = 3

// generateBackoff is a var so tests can shorten the retry delay.
var generateBackoff = 2 * time.Second

// AIEditor drives the model through the plan, edit, review and explain
// stages of the pipeline.
type AIEditor struct {
	provider llm.Provider
}

func NewAIEditor(provider llm.Provider) *AIEditor {
	return &AIEditor{provider: provider}
}

// generate calls the model, retrying transient transport failures with
// backoff before giving up.
func (e *AIEditor) generate(prompt string) (string, error) {
	var response string
	err := utils.Retry(generateAttempts, generateBackoff, func() error {
		var genErr error
		response, genErr = e.provider.Generate(prompt)
		return genErr
	})
	return response, err
}

func (e *AIEditor) Model() string {
	return e.provider.GetModel()
}

// GeneratePlan asks the model for an edit plan covering the user request.
// A response that cannot be coerced into a valid plan is reported as a
// PlanGenerationError so callers can distinguish model failures from
// transport ones.
func (e *AIEditor) GeneratePlan(repoCtx *types.RepositoryContext, request string) (*types.EditPlan, error) {
	contextJSON, err := json.MarshalIndent(planContext(repoCtx), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize repository context: %w", err)
	}

	prompt, err := prompts.Build(prompts.TaskPlan, prompts.PlanPayload{
		Context: string(contextJSON),
		Request: request,
	})
	if err != nil {
		return nil, err
	}

	response, err := e.generate(prompt)
	if err != nil {
		return nil, fmt.Errorf("plan generation request failed: %w", err)
	}

	plan, err := utils.ParsePlanResponse(response)
	if err != nil {
		return nil, &types.PlanGenerationError{Err: err}
	}

	return plan, nil
}

// EditFile asks the model to apply one instruction to a file and returns
// the complete rewritten content.
func (e *AIEditor) EditFile(filePath, content string, lang analyzer.Language, instruction string, instrContext map[string]any) (string, error) {
	contextStr := ""
	if len(instrContext) > 0 {
		raw, err := json.MarshalIndent(instrContext, "", "  ")
		if err == nil {
			contextStr = string(raw)
		}
	}

	prompt, err := prompts.Build(prompts.TaskEdit, prompts.EditPayload{
		FilePath:    filePath,
		Language:    string(lang),
		Content:     utils.ScrubSecrets(content),
		Instruction: instruction,
		Context:     contextStr,
	})
	if err != nil {
		return "", err
	}

	response, err := e.generate(prompt)
	if err != nil {
		return "", fmt.Errorf("edit request for %s failed: %w", filePath, err)
	}

	edited := utils.StripCodeFences(response)
	if strings.TrimSpace(edited) == "" {
		return "", fmt.Errorf("model returned empty content for %s", filePath)
	}

	return edited, nil
}

// ReviewChanges reviews the difference between original and new content.
// Files the model left untouched are not sent to the model at all.
func (e *AIEditor) ReviewChanges(filePath, original, updated string, lang analyzer.Language) (*types.ReviewResult, error) {
	if original == updated {
		return &types.ReviewResult{
			Status:  "unchanged",
			Issues:  []types.Issue{},
			Summary: "No changes to review.",
		}, nil
	}

	diff, err := analyzer.UnifiedDiff(original, updated, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s: %w", filePath, err)
	}

	prompt, err := prompts.Build(prompts.TaskReview, prompts.ReviewPayload{
		FilePath: filePath,
		Language: string(lang),
		Diff:     diff,
	})
	if err != nil {
		return nil, err
	}

	response, err := e.generate(prompt)
	if err != nil {
		return nil, fmt.Errorf("review request for %s failed: %w", filePath, err)
	}

	issues, err := utils.ParseIssuesFromResponse(response)
	if err != nil {
		// A malformed review should not sink the edit; surface it as a
		// review that needs human eyes.
		return &types.ReviewResult{
			Status:  "unparseable",
			Issues:  []types.Issue{},
			Summary: fmt.Sprintf("Review response could not be parsed: %v", err),
		}, nil
	}

	status := "approved"
	if len(issues) > 0 {
		status = "issues_found"
	}

	return &types.ReviewResult{
		Status:  status,
		Issues:  issues,
		Summary: reviewSummary(issues),
	}, nil
}

// ExplainChanges produces a short reviewer-facing explanation of one change.
func (e *AIEditor) ExplainChanges(filePath, original, updated, instruction string) (string, error) {
	if original == updated {
		return "No changes were made to this file.", nil
	}

	diff, err := analyzer.UnifiedDiff(original, updated, filePath)
	if err != nil {
		return "", fmt.Errorf("failed to diff %s: %w", filePath, err)
	}

	prompt, err := prompts.Build(prompts.TaskExplain, prompts.ExplainPayload{
		FilePath:    filePath,
		Instruction: instruction,
		Diff:        diff,
	})
	if err != nil {
		return "", err
	}

	explanation, err := e.generate(prompt)
	if err != nil {
		return "", fmt.Errorf("explain request for %s failed: %w", filePath, err)
	}

	return strings.TrimSpace(explanation), nil
}

func reviewSummary(issues []types.Issue) string {
	if len(issues) == 0 {
		return "No issues found."
	}

	counts := map[string]int{}
	for _, issue := range issues {
		counts[strings.ToLower(issue.Severity)]++
	}

	var parts []string
	for _, severity := range []string{"critical", "high", "medium", "low"} {
		if n := counts[severity]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, severity))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d issues", len(issues)))
	}

	return "Found " + strings.Join(parts, ", ") + "."
}

// planContext trims the repository context to what the planner needs,
// keeping prompts within model limits.
func planContext(repoCtx *types.RepositoryContext) map[string]any {
	ctx := map[string]any{
		"url":            repoCtx.URL,
		"name":           repoCtx.Name,
		"description":    repoCtx.Description,
		"default_branch": repoCtx.DefaultBranch,
		"languages":      repoCtx.Languages,
		"file_count":     repoCtx.FileCount,
	}

	if len(repoCtx.ImportantFiles) > 0 {
		ctx["important_files"] = repoCtx.ImportantFiles
	}

	if len(repoCtx.KeyFiles) > 0 {
		keyFiles := map[string]string{}
		count := 0
		for path, content := range repoCtx.KeyFiles {
			if count >= 5 {
				break
			}
			keyFiles[path] = utils.ScrubSecrets(utils.TruncateText(content, 1000))
			count++
		}
		ctx["key_files"] = keyFiles
	}

	return ctx
}
