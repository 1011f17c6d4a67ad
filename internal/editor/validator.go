package editor

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/patchpilot/codepatch/internal/types"
)

// PlanValidator runs a non-destructive policy pass over a generated plan.
// It produces warnings only; execution decides nothing based on them.
type PlanValidator struct {
	maxInstructions int
}

func NewPlanValidator(maxInstructions int) *PlanValidator {
	if maxInstructions <= 0 {
		maxInstructions = 20
	}
	return &PlanValidator{maxInstructions: maxInstructions}
}

// Path fragments that an edit plan has no business touching.
var riskyPathFragments = []string{
	".git/",
	"/etc/",
	"/bin/",
	"/usr/",
	"/var/",
	"/sys/",
	"/proc/",
}

var sourceExtensions = map[string]bool{
	".py":   true,
	".go":   true,
	".js":   true,
	".jsx":  true,
	".ts":   true,
	".tsx":  true,
	".java": true,
	".c":    true,
	".h":    true,
	".cpp":  true,
	".rs":   true,
	".rb":   true,
	".php":  true,
	".cs":   true,
}

// Validate inspects the plan and returns a result whose warnings flag
// large plans, risky paths and deletions of source files.
func (v *PlanValidator) Validate(plan *types.EditPlan) *types.ValidationResult {
	result := &types.ValidationResult{Valid: true, Warnings: []string{}}

	if len(plan.Instructions) > v.maxInstructions {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("large plan: %d instructions exceeds the configured limit of %d", len(plan.Instructions), v.maxInstructions))
	}

	for _, instr := range plan.Instructions {
		normalized := filepath.ToSlash(instr.FilePath)

		for _, fragment := range riskyPathFragments {
			if strings.Contains(normalized, fragment) || strings.HasPrefix(normalized, strings.TrimPrefix(fragment, "/")) {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("risky path: %s touches %s", instr.FilePath, fragment))
				break
			}
		}

		if instr.ChangeType == types.ChangeDelete && sourceExtensions[strings.ToLower(filepath.Ext(normalized))] {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("risky deletion: %s is a source file", instr.FilePath))
		}
	}

	return result
}
