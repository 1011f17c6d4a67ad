package analyzer

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// grammar bundles everything the analyzer needs for one checkable language:
// the tree-sitter grammar, a structure query with @import/@function/@class/@doc
// captures, and the node kinds counted for complexity (weight 2 marks
// exception-handling constructs).
type grammar struct {
	language   *sitter.Language
	query      string
	complexity map[string]int
}

func grammarFor(lang Language) *grammar {
	switch lang {
	case LangGo:
		return goGrammar
	case LangPython:
		return pythonGrammar
	case LangJavaScript, LangTypeScript:
		return typescriptGrammar
	case LangJava:
		return javaGrammar
	case LangC:
		return cGrammar
	default:
		return nil
	}
}

var goGrammar = &grammar{
	language: sitter.NewLanguage(tree_sitter_go.Language()),
	query: `
	(import_spec path: (interpreted_string_literal) @import)
	(function_declaration name: (identifier) @function)
	(method_declaration name: (field_identifier) @function)
	(type_spec name: (type_identifier) @class)
	`,
	complexity: map[string]int{
		"if_statement":                1,
		"for_statement":               1,
		"expression_switch_statement": 1,
		"type_switch_statement":       1,
		"select_statement":            1,
		"function_declaration":        1,
		"method_declaration":          1,
		"type_declaration":            1,
	},
}

var pythonGrammar = &grammar{
	language: sitter.NewLanguage(tree_sitter_python.Language()),
	query: `
	(import_statement (dotted_name) @import)
	(import_from_statement module_name: (dotted_name) @import)
	(function_definition name: (identifier) @function)
	(class_definition name: (identifier) @class)
	(module . (expression_statement (string) @doc))
	(function_definition body: (block . (expression_statement (string) @doc)))
	(class_definition body: (block . (expression_statement (string) @doc)))
	`,
	complexity: map[string]int{
		"if_statement":        1,
		"for_statement":       1,
		"while_statement":     1,
		"function_definition": 1,
		"class_definition":    1,
		"try_statement":       2,
	},
}

var typescriptGrammar = &grammar{
	language: sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
	query: `
	(import_statement source: (string) @import)
	(function_declaration name: (identifier) @function)
	(method_definition name: (property_identifier) @function)
	(variable_declarator name: (identifier) @function value: (arrow_function))
	(class_declaration name: (type_identifier) @class)
	`,
	complexity: map[string]int{
		"if_statement":         1,
		"for_statement":        1,
		"for_in_statement":     1,
		"while_statement":      1,
		"switch_statement":     1,
		"function_declaration": 1,
		"method_definition":    1,
		"arrow_function":       1,
		"class_declaration":    1,
		"try_statement":        2,
	},
}

var javaGrammar = &grammar{
	language: sitter.NewLanguage(tree_sitter_java.Language()),
	query: `
	(import_declaration (scoped_identifier) @import)
	(method_declaration name: (identifier) @function)
	(class_declaration name: (identifier) @class)
	(interface_declaration name: (identifier) @class)
	`,
	complexity: map[string]int{
		"if_statement":                 1,
		"for_statement":                1,
		"enhanced_for_statement":       1,
		"while_statement":              1,
		"switch_expression":            1,
		"method_declaration":           1,
		"class_declaration":            1,
		"interface_declaration":        1,
		"try_statement":                2,
		"try_with_resources_statement": 2,
	},
}

var cGrammar = &grammar{
	language: sitter.NewLanguage(tree_sitter_c.Language()),
	query: `
	(preproc_include path: (_) @import)
	(function_definition declarator: (function_declarator declarator: (identifier) @function))
	(struct_specifier name: (type_identifier) @class)
	`,
	complexity: map[string]int{
		"if_statement":        1,
		"for_statement":       1,
		"while_statement":     1,
		"switch_statement":    1,
		"function_definition": 1,
		"struct_specifier":    1,
	},
}

func (g *grammar) parse(src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(g.language); err != nil {
		return nil, fmt.Errorf("failed to set language for parser: %w", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree")
	}
	return tree, nil
}

func newQuery(g *grammar) (*sitter.Query, error) {
	q, err := sitter.NewQuery(g.language, g.query)
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}
	return q, nil
}

// forEachCapture runs the grammar's structure query and hands every capture
// to fn with its resolved capture name, trimmed text, and 1-based line.
func forEachCapture(q *sitter.Query, root *sitter.Node, src []byte, fn func(name, text string, line int)) {
	qc := sitter.NewQueryCursor()
	defer qc.Close()

	names := q.CaptureNames()
	matches := qc.Matches(q, root, src)

	for {
		m := matches.Next()
		if m == nil {
			break
		}
		for _, c := range m.Captures {
			node := c.Node
			text := strings.TrimSpace(node.Utf8Text(src))
			if text == "" {
				continue
			}
			fn(names[c.Index], text, int(node.StartPosition().Row)+1)
		}
	}
}

// firstErrorNode locates the most specific error or missing node so syntax
// failures can carry a line and column.
func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return node
}

func countKinds(root *sitter.Node, weights map[string]int) int {
	total := 0

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if w, ok := weights[n.Kind()]; ok {
			total += w
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			if child := n.Child(i); child != nil {
				visit(child)
			}
		}
	}
	visit(root)

	return total
}
