package prompts

import (
	"fmt"
	"strings"
	"text/template"
)

// Task names one prompt template in the library.
type Task string

const (
	TaskPlan    Task = "plan"
	TaskEdit    Task = "edit"
	TaskReview  Task = "review"
	TaskExplain Task = "explain"
)

// PlanPayload feeds the planning template.
type PlanPayload struct {
	Context string
	Request string
}

// EditPayload feeds the per-file edit template.
type EditPayload struct {
	FilePath    string
	Language    string
	Content     string
	Instruction string
	Context     string
}

// ReviewPayload feeds the change-review template.
type ReviewPayload struct {
	FilePath string
	Language string
	Diff     string
}

// ExplainPayload feeds the change-explanation template.
type ExplainPayload struct {
	FilePath    string
	Instruction string
	Diff        string
}

var taskTemplates = map[Task]string{
	TaskPlan:    planTemplate,
	TaskEdit:    editTemplate,
	TaskReview:  reviewTemplate,
	TaskExplain: explainTemplate,
}

func ListTasks() []string {
	var names []string
	for name := range taskTemplates {
		names = append(names, string(name))
	}
	return names
}

func loadTemplates() (*template.Template, error) {
	tmpl := template.New("prompts")

	for name, text := range taskTemplates {
		_, err := tmpl.New(string(name)).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
	}

	return tmpl, nil
}

// Build renders the template for a task against its payload.
func Build(task Task, payload any) (string, error) {
	templates, err := loadTemplates()
	if err != nil {
		return "", fmt.Errorf("failed to load templates: %w", err)
	}

	var result strings.Builder
	err = templates.ExecuteTemplate(&result, string(task), payload)
	if err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", task, err)
	}

	return result.String(), nil
}

const planTemplate = `# Repository Context
{{.Context}}

# User Request
{{.Request}}

# Task
Create a detailed edit plan to fulfill the user request.

# Output Format
Return JSON with the following structure:
{
  "instructions": [
    {
      "file_path": "path/to/file.py",
      "change_type": "modify|create|delete|rename",
      "description": "Detailed description of what to change",
      "priority": 1,
      "context": {}
    }
  ],
  "dependencies": ["List of dependencies to consider"],
  "risks": ["List of potential risks"],
  "estimated_time": "quick|medium|complex",
  "confidence": 0.8
}

# Guidelines
1. Be specific about file paths and changes
2. Consider dependencies between files
3. Note potential breaking changes
4. Suggest testing if needed
5. Order changes by priority (1 = must do first, 5 = can do last)

Now, create the edit plan:
`

const editTemplate = `# File Information
- Path: {{.FilePath}}
- Language: {{.Language}}

# Current File Content
{{.Content}}

# Edit Instruction
{{.Instruction}}
{{if .Context}}
# Additional Context
{{.Context}}
{{end}}
# Task
Apply the edit instruction to the file and return the COMPLETE updated file content.

# Rules
1. Return ONLY the full file content, nothing else
2. Do not wrap the content in markdown code fences
3. Preserve the existing style, indentation, and conventions of the file
4. Make only the changes the instruction asks for
5. The result must be syntactically valid {{.Language}}

Now, return the updated file content:
`

const reviewTemplate = `You are an expert code reviewer analyzing a change for real issues.

# File
- Path: {{.FilePath}}
- Language: {{.Language}}

# Change (unified diff)
{{.Diff}}

# Analysis
Look ONLY at lines starting with + (additions) or - (deletions). Flag a problem
only when the change INTRODUCES it:
- critical: injection vulnerabilities, removed authentication, hardcoded secrets, data corruption, crash risk
- high: missing error handling, resource leaks, breaking API changes
- medium: performance regressions, misleading names, dead code
- low: readability problems impacting maintainability

# Response Format
FORMAT 1 - No issues found:
APPROVED

FORMAT 2 - Issues found:
[
  {
    "severity": "critical",
    "file_path": "{{.FilePath}}",
    "start_line": 18,
    "end_line": 19,
    "description": "Replaced parameterized SQL query with string formatting, creating SQL injection vulnerability"
  }
]

Respond with raw JSON array or "APPROVED" only. No explanatory text or markdown.
`

const explainTemplate = `# File
{{.FilePath}}

# Edit Instruction
{{.Instruction}}

# Change (unified diff)
{{.Diff}}

# Task
Explain in 2-4 plain sentences what was changed in this file and why. Write for
a reviewer reading the pull request. Do not restate the diff line by line.
`
