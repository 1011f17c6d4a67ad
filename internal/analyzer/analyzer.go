package analyzer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// SyntaxError locates a parse failure in a file.
type SyntaxError struct {
	Message string `json:"message"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Declaration is a named function, class, or type found in a file.
type Declaration struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

// Import is one imported or required module identifier.
type Import struct {
	Module string `json:"module"`
	Line   int    `json:"line"`
}

// Report is the structural analysis of one file.
type Report struct {
	Language     Language      `json:"language"`
	Valid        bool          `json:"valid"`
	SyntaxError  *SyntaxError  `json:"syntax_error,omitempty"`
	Imports      []Import      `json:"imports,omitempty"`
	Functions    []Declaration `json:"functions,omitempty"`
	Classes      []Declaration `json:"classes,omitempty"`
	Docstrings   []string      `json:"docstrings,omitempty"`
	Dependencies []string      `json:"dependencies,omitempty"`
	LineCount    int           `json:"line_count"`
	Size         int           `json:"size"`
}

const docstringPreviewLen = 100

// Analyze inspects content according to its language tag. Languages with a
// grammar get a full parse; loosely-structured languages get a best-effort
// regex extraction that never fails; everything else gets a generic report.
func Analyze(content string, lang Language) *Report {
	report := &Report{
		Language:  lang,
		Valid:     true,
		LineCount: len(strings.Split(content, "\n")),
		Size:      len(content),
	}

	switch lang {
	case LangGo, LangPython, LangJavaScript, LangTypeScript, LangJava, LangC:
		analyzeGrammar(content, grammarFor(lang), report)
	case LangJSON:
		analyzeJSON(content, report)
	case LangYAML:
		analyzeYAML(content, report)
	case LangCPP, LangCSharp, LangRust, LangRuby, LangPHP, LangShell:
		analyzeLoose(content, report)
	}

	return report
}

func analyzeGrammar(content string, g *grammar, report *Report) {
	src := []byte(content)

	tree, err := g.parse(src)
	if err != nil {
		report.Valid = false
		report.SyntaxError = &SyntaxError{Message: err.Error(), Line: 1, Column: 1}
		return
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		report.Valid = false
		if errNode := firstErrorNode(root); errNode != nil {
			pos := errNode.StartPosition()
			report.SyntaxError = &SyntaxError{
				Message: "invalid syntax",
				Line:    int(pos.Row) + 1,
				Column:  int(pos.Column) + 1,
			}
		}
	}

	q, err := newQuery(g)
	if err != nil {
		return
	}
	defer q.Close()

	seen := make(map[string]bool)

	forEachCapture(q, root, src, func(name string, text string, line int) {
		switch name {
		case "import":
			module := strings.Trim(text, `"'<>`+"`")
			report.Imports = append(report.Imports, Import{Module: module, Line: line})
			if !seen[module] {
				seen[module] = true
				report.Dependencies = append(report.Dependencies, module)
			}
		case "function":
			report.Functions = append(report.Functions, Declaration{Name: text, Line: line})
		case "class":
			report.Classes = append(report.Classes, Declaration{Name: text, Line: line})
		case "doc":
			doc := strings.Trim(text, `"'`)
			if len(doc) > docstringPreviewLen {
				doc = doc[:docstringPreviewLen]
			}
			report.Docstrings = append(report.Docstrings, doc)
		}
	})
}

func analyzeJSON(content string, report *Report) {
	var data any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		report.Valid = false
		report.SyntaxError = jsonSyntaxError(content, err)
	}
}

func analyzeYAML(content string, report *Report) {
	var data any
	if err := yaml.Unmarshal([]byte(content), &data); err != nil {
		report.Valid = false
		report.SyntaxError = yamlSyntaxError(err)
	}
}

var (
	looseImportRe   = regexp.MustCompile(`(?m)^\s*(?:import|require|include|use|using|source)\b[\s(]*['"<]?([\w./:-]+)`)
	looseFunctionRe = regexp.MustCompile(`(?m)\b(?:func|function|def|fn|sub)\s+(\w+)`)
	looseClassRe    = regexp.MustCompile(`(?m)\b(?:class|struct|interface|trait)\s+(\w+)`)
)

// analyzeLoose is the regex fallback for languages without a wired grammar.
// It tolerates arbitrary text and never reports invalid syntax.
func analyzeLoose(content string, report *Report) {
	seen := make(map[string]bool)
	for _, m := range looseImportRe.FindAllStringSubmatchIndex(content, -1) {
		module := content[m[2]:m[3]]
		report.Imports = append(report.Imports, Import{Module: module, Line: lineAt(content, m[0])})
		if !seen[module] {
			seen[module] = true
			report.Dependencies = append(report.Dependencies, module)
		}
	}
	for _, m := range looseFunctionRe.FindAllStringSubmatchIndex(content, -1) {
		report.Functions = append(report.Functions, Declaration{Name: content[m[2]:m[3]], Line: lineAt(content, m[0])})
	}
	for _, m := range looseClassRe.FindAllStringSubmatchIndex(content, -1) {
		report.Classes = append(report.Classes, Declaration{Name: content[m[2]:m[3]], Line: lineAt(content, m[0])})
	}
}

func lineAt(content string, offset int) int {
	return strings.Count(content[:offset], "\n") + 1
}

func jsonSyntaxError(content string, err error) *SyntaxError {
	if serr, ok := err.(*json.SyntaxError); ok {
		prefix := content
		if int(serr.Offset) <= len(content) {
			prefix = content[:serr.Offset]
		}
		line := strings.Count(prefix, "\n") + 1
		column := int(serr.Offset) - strings.LastIndexByte(prefix, '\n')
		return &SyntaxError{Message: serr.Error(), Line: line, Column: column}
	}
	return &SyntaxError{Message: err.Error(), Line: 1, Column: 1}
}

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

func yamlSyntaxError(err error) *SyntaxError {
	line := 1
	if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
		fmt.Sscanf(m[1], "%d", &line)
	}
	return &SyntaxError{Message: err.Error(), Line: line, Column: 1}
}

// ValidateSyntax reports whether content parses for the given language. For
// languages without a wired checker it reports valid with no message; that
// is a "cannot verify" pass, not a validity claim.
func ValidateSyntax(content string, lang Language) (bool, string) {
	switch lang {
	case LangGo, LangPython, LangJavaScript, LangTypeScript, LangJava, LangC:
		report := &Report{Valid: true}
		analyzeGrammarSyntaxOnly(content, grammarFor(lang), report)
		if !report.Valid && report.SyntaxError != nil {
			return false, report.SyntaxError.Error()
		}
		return report.Valid, ""
	case LangJSON:
		var data any
		if err := json.Unmarshal([]byte(content), &data); err != nil {
			return false, jsonSyntaxError(content, err).Error()
		}
		return true, ""
	case LangYAML:
		var data any
		if err := yaml.Unmarshal([]byte(content), &data); err != nil {
			return false, yamlSyntaxError(err).Error()
		}
		return true, ""
	default:
		return true, ""
	}
}

func analyzeGrammarSyntaxOnly(content string, g *grammar, report *Report) {
	src := []byte(content)

	tree, err := g.parse(src)
	if err != nil {
		report.Valid = false
		report.SyntaxError = &SyntaxError{Message: err.Error(), Line: 1, Column: 1}
		return
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return
	}

	report.Valid = false
	report.SyntaxError = &SyntaxError{Message: "invalid syntax", Line: 1, Column: 1}
	if errNode := firstErrorNode(root); errNode != nil {
		pos := errNode.StartPosition()
		report.SyntaxError.Line = int(pos.Row) + 1
		report.SyntaxError.Column = int(pos.Column) + 1
	}
}

var looseComplexityRe = regexp.MustCompile(`\b(?i:if|for|while|case|switch|def|func|function|fn|class|struct|try|catch|rescue|except)\b`)

// Complexity scores branching and definition constructs. Checkable languages
// are counted from a full parse with exception handling weighted double;
// everything else falls back to keyword counting and tolerates any text.
func Complexity(content string, lang Language) int {
	if g := grammarFor(lang); g != nil {
		tree, err := g.parse([]byte(content))
		if err != nil {
			return 0
		}
		defer tree.Close()
		return countKinds(tree.RootNode(), g.complexity)
	}

	return len(looseComplexityRe.FindAllString(content, -1))
}
