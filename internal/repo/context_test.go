package repo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFixtureRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"README.md":        "# Demo\n",
		"app.py":           "import os\n\ndef main():\n    pass\n",
		"requirements.txt": "flask==3.0\n",
		"src/handlers.py":  "def handle():\n    return 1\n",
		"src/util.js":      "function helper() {}\n",
		".git/config":      "[core]\n",
		"node_modules/dep/index.js": "module.exports = {}\n",
		"__pycache__/app.pyc":       "binary",
	}

	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	return dir
}

func TestBuildContext(t *testing.T) {
	dir := buildFixtureRepo(t)

	ctx, err := BuildContext("https://github.com/acme/demo", "acme", "demo", "a demo", "main", dir, dir)
	require.NoError(t, err)

	assert.Equal(t, "acme", ctx.Owner)
	assert.Equal(t, "demo", ctx.Name)
	assert.Equal(t, "main", ctx.DefaultBranch)

	// Skipped directories contribute nothing.
	assert.Equal(t, 5, ctx.FileCount)

	assert.Contains(t, ctx.Languages, "python")
	assert.Contains(t, ctx.Languages, "javascript")
	assert.NotContains(t, ctx.Languages, "markdown")

	assert.Contains(t, ctx.ImportantFiles, "README.md")
	assert.Contains(t, ctx.ImportantFiles, "app.py")
	assert.Contains(t, ctx.ImportantFiles, "requirements.txt")
	assert.NotContains(t, ctx.ImportantFiles, "src/util.js")
}

func TestBuildContext_KeyFileContents(t *testing.T) {
	dir := buildFixtureRepo(t)

	ctx, err := BuildContext("https://github.com/acme/demo", "acme", "demo", "", "main", dir, dir)
	require.NoError(t, err)

	content, ok := ctx.KeyFiles["app.py"]
	require.True(t, ok)
	assert.Contains(t, content, "import os")
}

func TestBuildContext_TruncatesLargeKeyFiles(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("x = 1\n", 2000)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte(big), 0644))

	ctx, err := BuildContext("https://github.com/acme/demo", "acme", "demo", "", "main", dir, dir)
	require.NoError(t, err)

	content, ok := ctx.KeyFiles["main.py"]
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(content, "... [truncated]"))
	assert.Less(t, len(content), len(big))
}

func TestBuildContext_TreeShape(t *testing.T) {
	dir := buildFixtureRepo(t)

	ctx, err := BuildContext("https://github.com/acme/demo", "acme", "demo", "", "main", dir, dir)
	require.NoError(t, err)

	require.NotNil(t, ctx.Tree)
	assert.Equal(t, "demo", ctx.Tree.Name)

	var dirNames []string
	for _, child := range ctx.Tree.Dirs {
		dirNames = append(dirNames, child.Name)
	}
	assert.Contains(t, dirNames, "src")
	assert.NotContains(t, dirNames, ".git")
	assert.NotContains(t, dirNames, "node_modules")
	assert.NotContains(t, dirNames, "__pycache__")
}

func TestBuildContext_MissingDirectory(t *testing.T) {
	_, err := BuildContext("https://github.com/acme/demo", "acme", "demo", "", "main", "/nonexistent/path", "")
	assert.Error(t, err)
}
