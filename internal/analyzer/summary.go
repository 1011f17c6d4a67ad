package analyzer

import "strings"

// FileSummary is the full characterization record for one file.
type FileSummary struct {
	Filename     string   `json:"filename"`
	Language     Language `json:"language"`
	SizeBytes    int      `json:"size_bytes"`
	SizeLines    int      `json:"size_lines"`
	SizeWords    int      `json:"size_words"`
	Report       *Report  `json:"analysis"`
	Dependencies []string `json:"dependencies"`
	Complexity   int      `json:"complexity"`
	Hash         string   `json:"hash"`
	SyntaxValid  bool     `json:"syntax_valid"`
	SyntaxError  string   `json:"syntax_error,omitempty"`
}

// Summarize characterizes a single file: structure, dependencies,
// complexity, hash, and syntax validity in one record.
func Summarize(filename, content string, lang Language) *FileSummary {
	report := Analyze(content, lang)
	valid, syntaxErr := ValidateSyntax(content, lang)

	return &FileSummary{
		Filename:     filename,
		Language:     lang,
		SizeBytes:    len(content),
		SizeLines:    len(strings.Split(content, "\n")),
		SizeWords:    len(strings.Fields(content)),
		Report:       report,
		Dependencies: report.Dependencies,
		Complexity:   Complexity(content, lang),
		Hash:         ContentHash(content),
		SyntaxValid:  valid,
		SyntaxError:  syntaxErr,
	}
}
