package analyzer

import (
	"path/filepath"
	"strings"
)

// Language is the detected language tag for a file. The analyzer dispatches
// on this closed set; anything it cannot place gets LangUnknown.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangCSharp     Language = "csharp"
	LangRust       Language = "rust"
	LangRuby       Language = "ruby"
	LangPHP        Language = "php"
	LangShell      Language = "shell"
	LangPowershell Language = "powershell"
	LangSQL        Language = "sql"
	LangHTML       Language = "html"
	LangCSS        Language = "css"
	LangJSON       Language = "json"
	LangYAML       Language = "yaml"
	LangTOML       Language = "toml"
	LangXML        Language = "xml"
	LangMarkdown   Language = "markdown"
	LangText       Language = "text"
	LangDockerfile Language = "dockerfile"
	LangMakefile   Language = "makefile"
	LangGitignore  Language = "gitignore"
	LangEnv        Language = "env"
	LangUnknown    Language = "unknown"
)

var extensionLanguages = map[string]Language{
	".go":         LangGo,
	".py":         LangPython,
	".pyw":        LangPython,
	".js":         LangJavaScript,
	".jsx":        LangJavaScript,
	".mjs":        LangJavaScript,
	".ts":         LangTypeScript,
	".tsx":        LangTypeScript,
	".java":       LangJava,
	".c":          LangC,
	".h":          LangC,
	".cpp":        LangCPP,
	".cc":         LangCPP,
	".cxx":        LangCPP,
	".hpp":        LangCPP,
	".cs":         LangCSharp,
	".rs":         LangRust,
	".rb":         LangRuby,
	".php":        LangPHP,
	".sh":         LangShell,
	".bash":       LangShell,
	".zsh":        LangShell,
	".ps1":        LangPowershell,
	".sql":        LangSQL,
	".html":       LangHTML,
	".htm":        LangHTML,
	".css":        LangCSS,
	".scss":       LangCSS,
	".sass":       LangCSS,
	".less":       LangCSS,
	".json":       LangJSON,
	".yaml":       LangYAML,
	".yml":        LangYAML,
	".toml":       LangTOML,
	".xml":        LangXML,
	".md":         LangMarkdown,
	".txt":        LangText,
	".dockerfile": LangDockerfile,
	".gitignore":  LangGitignore,
	".env":        LangEnv,
}

// Checked in order so the most specific interpreter name wins.
var shebangLanguages = []struct {
	interpreter string
	lang        Language
}{
	{"python", LangPython},
	{"node", LangJavaScript},
	{"ruby", LangRuby},
	{"php", LangPHP},
	{"bash", LangShell},
	{"zsh", LangShell},
	{"sh", LangShell},
}

// DetectLanguage resolves a language tag for a file. Resolution order:
// extension table, shebang line (when content is supplied), filename
// heuristics, then LangUnknown. Identical inputs always yield the same tag.
func DetectLanguage(path, content string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extensionLanguages[ext]; ok {
		return lang
	}

	if content != "" {
		if lang, ok := shebangLanguage(content); ok {
			return lang
		}
	}

	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "dockerfile"):
		return LangDockerfile
	case strings.Contains(name, "makefile"):
		return LangMakefile
	case name == ".gitignore":
		return LangGitignore
	case name == ".env":
		return LangEnv
	}

	return LangUnknown
}

func shebangLanguage(content string) (Language, bool) {
	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)

	if !strings.HasPrefix(firstLine, "#!") {
		return LangUnknown, false
	}

	for _, entry := range shebangLanguages {
		if strings.Contains(firstLine, entry.interpreter) {
			return entry.lang, true
		}
	}

	return LangUnknown, false
}
