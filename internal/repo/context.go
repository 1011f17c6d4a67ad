package repo

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/patchpilot/codepatch/internal/analyzer"
	"github.com/patchpilot/codepatch/internal/types"
	"github.com/patchpilot/codepatch/internal/utils"
)

const (
	maxTreeDepth      = 5
	maxImportantFiles = 50
	maxKeyFiles       = 10
	keyFileCharCap    = 5000
)

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	"venv":         true,
	".venv":        true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	".idea":        true,
	".vscode":      true,
}

// Names that mark a file as important for understanding a repository.
var importantNames = map[string]bool{
	"readme.md":         true,
	"readme.rst":        true,
	"readme.txt":        true,
	"setup.py":          true,
	"pyproject.toml":    true,
	"requirements.txt":  true,
	"package.json":      true,
	"go.mod":            true,
	"cargo.toml":        true,
	"pom.xml":           true,
	"build.gradle":      true,
	"gemfile":           true,
	"composer.json":     true,
	"makefile":          true,
	"dockerfile":        true,
	"docker-compose.yml": true,
	".env.example":      true,
	"main.py":           true,
	"app.py":            true,
	"index.js":          true,
	"main.go":           true,
}

// BuildContext characterizes a local working copy: directory tree with
// per-file language tags, important files, truncated key-file contents,
// detected languages, and a total file count.
func BuildContext(url, owner, name, description, defaultBranch, localPath, tempDir string) (*types.RepositoryContext, error) {
	ctx := &types.RepositoryContext{
		URL:           url,
		Owner:         owner,
		Name:          name,
		Description:   description,
		DefaultBranch: defaultBranch,
		LocalPath:     localPath,
		TempDir:       tempDir,
		KeyFiles:      map[string]string{},
	}

	languages := map[string]bool{}

	tree, err := scanDir(localPath, localPath, 0, ctx, languages)
	if err != nil {
		return nil, &types.FileOperationError{Path: localPath, Err: err}
	}
	tree.Name = name
	ctx.Tree = tree

	for lang := range languages {
		ctx.Languages = append(ctx.Languages, lang)
	}
	sort.Strings(ctx.Languages)
	sort.Strings(ctx.ImportantFiles)

	loadKeyFiles(ctx)

	return ctx, nil
}

func scanDir(root, dir string, depth int, ctx *types.RepositoryContext, languages map[string]bool) (*types.TreeNode, error) {
	node := &types.TreeNode{Name: filepath.Base(dir)}

	if depth > maxTreeDepth {
		node.Truncated = true
		return node, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			if skipDirs[entry.Name()] {
				continue
			}
			child, err := scanDir(root, filepath.Join(dir, entry.Name()), depth+1, ctx, languages)
			if err != nil {
				continue
			}
			node.Dirs = append(node.Dirs, child)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		relPath, err := filepath.Rel(root, filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		relPath = filepath.ToSlash(relPath)

		lang := analyzer.DetectLanguage(entry.Name(), "")
		node.Files = append(node.Files, types.FileInfo{
			Name:     entry.Name(),
			Size:     info.Size(),
			Language: string(lang),
		})
		ctx.FileCount++

		if isSourceLanguage(lang) {
			languages[string(lang)] = true
		}

		if importantNames[strings.ToLower(entry.Name())] && len(ctx.ImportantFiles) < maxImportantFiles {
			ctx.ImportantFiles = append(ctx.ImportantFiles, relPath)
		}
	}

	return node, nil
}

func isSourceLanguage(lang analyzer.Language) bool {
	switch lang {
	case analyzer.LangUnknown, analyzer.LangText, analyzer.LangMarkdown,
		analyzer.LangJSON, analyzer.LangYAML, analyzer.LangTOML,
		analyzer.LangXML, analyzer.LangGitignore, analyzer.LangEnv:
		return false
	}
	return true
}

// loadKeyFiles reads a bounded sample of important files with truncated
// content for the planner.
func loadKeyFiles(ctx *types.RepositoryContext) {
	for _, relPath := range ctx.ImportantFiles {
		if len(ctx.KeyFiles) >= maxKeyFiles {
			break
		}

		raw, err := os.ReadFile(filepath.Join(ctx.LocalPath, relPath))
		if err != nil {
			continue
		}

		ctx.KeyFiles[relPath] = utils.TruncateText(string(raw), keyFileCharCap)
	}
}
