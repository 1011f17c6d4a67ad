package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/patchpilot/codepatch/internal/analyzer"
	"github.com/patchpilot/codepatch/internal/types"
)

// Generator produces, reviews and explains file content for one instruction.
// The AI editor satisfies this; tests substitute a deterministic fake.
type Generator interface {
	EditFile(filePath, content string, lang analyzer.Language, instruction string, context map[string]any) (string, error)
	ReviewChanges(filePath, original, updated string, lang analyzer.Language) (*types.ReviewResult, error)
	ExplainChanges(filePath, original, updated, instruction string) (string, error)
}

// Executor applies an edit plan against a local working copy. Instructions
// run strictly sequentially in ascending priority order; a failure in one
// instruction never aborts the rest of the batch.
type Executor struct {
	workdir string
	gen     Generator
}

func New(workdir string, gen Generator) *Executor {
	return &Executor{workdir: workdir, gen: gen}
}

// Execute runs every instruction in the plan and aggregates the outcome.
// Already-applied changes are never rolled back.
func (x *Executor) Execute(plan *types.EditPlan, requestID string) *types.EditResult {
	result := &types.EditResult{
		Changes:   []types.FileChange{},
		Plan:      plan,
		Errors:    []string{},
		Warnings:  []string{},
		RequestID: requestID,
	}

	instructions := make([]types.EditInstruction, len(plan.Instructions))
	copy(instructions, plan.Instructions)
	sort.SliceStable(instructions, func(i, j int) bool {
		return instructions[i].Priority < instructions[j].Priority
	})

	for _, instr := range instructions {
		switch instr.ChangeType {
		case types.ChangeModify:
			x.applyModify(instr, result)
		case types.ChangeCreate:
			x.applyCreate(instr, result)
		case types.ChangeDelete:
			x.applyDelete(instr, result)
		case types.ChangeRename:
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("rename is not supported, skipping %s", instr.FilePath))
		default:
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: unknown change type %q", instr.FilePath, instr.ChangeType))
		}
	}

	result.Summary = summarize(len(instructions), result)
	result.Success = len(result.Changes) > 0 && len(result.Errors) == 0

	return result
}

func (x *Executor) applyModify(instr types.EditInstruction, result *types.EditResult) {
	fullPath := filepath.Join(x.workdir, instr.FilePath)

	raw, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("cannot modify %s: file does not exist", instr.FilePath))
			return
		}
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s: %v", instr.FilePath, &types.FileOperationError{Path: instr.FilePath, Err: err}))
		return
	}

	original := string(raw)
	lang := analyzer.DetectLanguage(instr.FilePath, original)

	updated, err := x.gen.EditFile(instr.FilePath, original, lang, instr.Description, instr.Context)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: generation failed: %v", instr.FilePath, err))
		return
	}

	valid, validationErr := analyzer.ValidateSyntax(updated, lang)
	validation := types.ValidationResult{Valid: valid, Warnings: []string{}}
	if validationErr != "" {
		validation.Warnings = append(validation.Warnings, validationErr)
	}

	review, err := x.gen.ReviewChanges(instr.FilePath, original, updated, lang)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("review of %s failed: %v", instr.FilePath, err))
	}

	explanation, err := x.gen.ExplainChanges(instr.FilePath, original, updated, instr.Description)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("explanation of %s failed: %v", instr.FilePath, err))
	}

	if !validation.Valid {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s: generated content failed validation: %s", instr.FilePath, validationErr))
		return
	}

	if err := os.WriteFile(fullPath, []byte(updated), 0644); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s: %v", instr.FilePath, &types.FileOperationError{Path: instr.FilePath, Err: err}))
		return
	}

	result.Changes = append(result.Changes, types.FileChange{
		FilePath:        instr.FilePath,
		OriginalContent: original,
		NewContent:      updated,
		ChangeType:      types.AppliedModified,
		Language:        string(lang),
		Validation:      validation,
		Review:          review,
		Explanation:     explanation,
	})
}

func (x *Executor) applyCreate(instr types.EditInstruction, result *types.EditResult) {
	fullPath := filepath.Join(x.workdir, instr.FilePath)
	lang := analyzer.DetectLanguage(instr.FilePath, "")

	content, err := x.gen.EditFile(instr.FilePath, "", lang, instr.Description, instr.Context)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: generation failed: %v", instr.FilePath, err))
		return
	}

	// New files are persisted even when validation flags them; the outcome
	// is recorded on the change so reviewers can see it.
	valid, validationErr := analyzer.ValidateSyntax(content, lang)
	validation := types.ValidationResult{Valid: valid, Warnings: []string{}}
	if validationErr != "" {
		validation.Warnings = append(validation.Warnings, validationErr)
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("created %s with validation warning: %s", instr.FilePath, validationErr))
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s: %v", instr.FilePath, &types.FileOperationError{Path: instr.FilePath, Err: err}))
		return
	}

	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s: %v", instr.FilePath, &types.FileOperationError{Path: instr.FilePath, Err: err}))
		return
	}

	explanation, err := x.gen.ExplainChanges(instr.FilePath, "", content, instr.Description)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("explanation of %s failed: %v", instr.FilePath, err))
	}

	result.Changes = append(result.Changes, types.FileChange{
		FilePath:    instr.FilePath,
		NewContent:  content,
		ChangeType:  types.AppliedCreated,
		Language:    string(lang),
		Validation:  validation,
		Explanation: explanation,
	})
}

func (x *Executor) applyDelete(instr types.EditInstruction, result *types.EditResult) {
	fullPath := filepath.Join(x.workdir, instr.FilePath)

	raw, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("cannot delete %s: file does not exist", instr.FilePath))
			return
		}
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s: %v", instr.FilePath, &types.FileOperationError{Path: instr.FilePath, Err: err}))
		return
	}

	original := string(raw)
	lang := analyzer.DetectLanguage(instr.FilePath, original)

	if err := os.Remove(fullPath); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s: %v", instr.FilePath, &types.FileOperationError{Path: instr.FilePath, Err: err}))
		return
	}

	result.Changes = append(result.Changes, types.FileChange{
		FilePath:        instr.FilePath,
		OriginalContent: original,
		ChangeType:      types.AppliedDeleted,
		Language:        string(lang),
		Validation:      types.ValidationResult{Valid: true, Warnings: []string{}},
	})
}

func summarize(total int, result *types.EditResult) types.Summary {
	summary := types.Summary{
		TotalInstructions: total,
		Successful:        len(result.Changes),
		Failed:            len(result.Errors),
		Warnings:          len(result.Warnings),
		Timestamp:         time.Now().UTC(),
	}

	for _, change := range result.Changes {
		switch change.ChangeType {
		case types.AppliedModified:
			summary.Modified++
		case types.AppliedCreated:
			summary.Created++
		case types.AppliedDeleted:
			summary.Deleted++
		}
	}

	return summary
}
