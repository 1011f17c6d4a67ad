package analyzer

import "testing"

func TestDetectLanguage_Extensions(t *testing.T) {
	tests := []struct {
		path     string
		expected Language
	}{
		{"main.go", LangGo},
		{"src/app.py", LangPython},
		{"index.js", LangJavaScript},
		{"component.tsx", LangTypeScript},
		{"Main.java", LangJava},
		{"lib.c", LangC},
		{"lib.rs", LangRust},
		{"package.json", LangJSON},
		{"config.yaml", LangYAML},
		{"config.yml", LangYAML},
		{"README.md", LangMarkdown},
		{"notes.txt", LangText},
		{"styles.CSS", LangCSS},
	}

	for _, tt := range tests {
		if got := DetectLanguage(tt.path, ""); got != tt.expected {
			t.Errorf("DetectLanguage(%q) = %q, want %q", tt.path, got, tt.expected)
		}
	}
}

func TestDetectLanguage_Shebang(t *testing.T) {
	tests := []struct {
		content  string
		expected Language
	}{
		{"#!/usr/bin/env python3\nprint('hi')\n", LangPython},
		{"#!/bin/bash\necho hi\n", LangShell},
		{"#!/usr/bin/env node\nconsole.log('hi')\n", LangJavaScript},
		{"#!/usr/bin/ruby\nputs 'hi'\n", LangRuby},
	}

	for _, tt := range tests {
		if got := DetectLanguage("script", tt.content); got != tt.expected {
			t.Errorf("DetectLanguage(script, %q...) = %q, want %q", tt.content[:12], got, tt.expected)
		}
	}
}

func TestDetectLanguage_FilenameHeuristics(t *testing.T) {
	if got := DetectLanguage("Dockerfile", ""); got != LangDockerfile {
		t.Errorf("Dockerfile detected as %q", got)
	}
	if got := DetectLanguage("Makefile", ""); got != LangMakefile {
		t.Errorf("Makefile detected as %q", got)
	}
	if got := DetectLanguage(".gitignore", ""); got != LangGitignore {
		t.Errorf(".gitignore detected as %q", got)
	}
}

func TestDetectLanguage_Unknown(t *testing.T) {
	if got := DetectLanguage("binary.dat", "some plain content"); got != LangUnknown {
		t.Errorf("expected unknown, got %q", got)
	}
}

func TestDetectLanguage_Pure(t *testing.T) {
	// Same inputs must always yield the same tag.
	for range 50 {
		if got := DetectLanguage("run", "#!/usr/bin/env python\n"); got != LangPython {
			t.Fatalf("detection not stable: got %q", got)
		}
	}
}
