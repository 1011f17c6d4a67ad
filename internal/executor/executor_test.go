package executor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchpilot/codepatch/internal/analyzer"
	"github.com/patchpilot/codepatch/internal/types"
)

// fakeGenerator returns canned content per file path and records the order
// in which files were edited.
type fakeGenerator struct {
	content   map[string]string
	editErr   error
	editOrder []string
}

func (f *fakeGenerator) EditFile(filePath, content string, lang analyzer.Language, instruction string, ctx map[string]any) (string, error) {
	f.editOrder = append(f.editOrder, filePath)
	if f.editErr != nil {
		return "", f.editErr
	}
	if out, ok := f.content[filePath]; ok {
		return out, nil
	}
	return content + "\n# edited\n", nil
}

func (f *fakeGenerator) ReviewChanges(filePath, original, updated string, lang analyzer.Language) (*types.ReviewResult, error) {
	return &types.ReviewResult{Status: "approved", Issues: []types.Issue{}}, nil
}

func (f *fakeGenerator) ExplainChanges(filePath, original, updated, instruction string) (string, error) {
	return "Applied the requested change.", nil
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestExecute_PriorityOrdering(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "a")
	writeFile(t, dir, "b.md", "b")
	writeFile(t, dir, "c.md", "c")

	gen := &fakeGenerator{}
	x := New(dir, gen)

	plan := &types.EditPlan{Instructions: []types.EditInstruction{
		{FilePath: "a.md", ChangeType: types.ChangeModify, Description: "x", Priority: 3},
		{FilePath: "b.md", ChangeType: types.ChangeModify, Description: "x", Priority: 1},
		{FilePath: "c.md", ChangeType: types.ChangeModify, Description: "x", Priority: 2},
	}}

	result := x.Execute(plan, "req-1")

	assert.Equal(t, []string{"b.md", "c.md", "a.md"}, gen.editOrder)
	assert.True(t, result.Success)
	assert.Len(t, result.Changes, 3)
}

func TestExecute_ModifyMissingFileWarns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "exists.md", "content")

	gen := &fakeGenerator{}
	x := New(dir, gen)

	plan := &types.EditPlan{Instructions: []types.EditInstruction{
		{FilePath: "missing.md", ChangeType: types.ChangeModify, Description: "x", Priority: 1},
		{FilePath: "exists.md", ChangeType: types.ChangeModify, Description: "x", Priority: 2},
	}}

	result := x.Execute(plan, "req-1")

	// The missing file warns but does not sink the batch.
	assert.True(t, result.Success)
	assert.Len(t, result.Changes, 1)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "missing.md")
	assert.Empty(t, result.Errors)
}

func TestExecute_Create(t *testing.T) {
	dir := t.TempDir()

	gen := &fakeGenerator{content: map[string]string{
		"pkg/util.py": "def helper():\n    return 1\n",
	}}
	x := New(dir, gen)

	plan := &types.EditPlan{Instructions: []types.EditInstruction{
		{FilePath: "pkg/util.py", ChangeType: types.ChangeCreate, Description: "add helper", Priority: 1},
	}}

	result := x.Execute(plan, "req-1")

	require.True(t, result.Success)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, types.AppliedCreated, result.Changes[0].ChangeType)

	written, err := os.ReadFile(filepath.Join(dir, "pkg/util.py"))
	require.NoError(t, err)
	assert.Equal(t, "def helper():\n    return 1\n", string(written))
}

func TestExecute_CreateInvalidContentStillPersisted(t *testing.T) {
	dir := t.TempDir()

	gen := &fakeGenerator{content: map[string]string{
		"bad.py": "def broken(\n",
	}}
	x := New(dir, gen)

	plan := &types.EditPlan{Instructions: []types.EditInstruction{
		{FilePath: "bad.py", ChangeType: types.ChangeCreate, Description: "x", Priority: 1},
	}}

	result := x.Execute(plan, "req-1")

	require.Len(t, result.Changes, 1)
	assert.False(t, result.Changes[0].Validation.Valid)
	assert.NotEmpty(t, result.Warnings)

	_, err := os.Stat(filepath.Join(dir, "bad.py"))
	assert.NoError(t, err)
}

func TestExecute_ModifyValidationFailureNotPersisted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "def ok():\n    return 1\n")

	gen := &fakeGenerator{content: map[string]string{
		"app.py": "def broken(\n",
	}}
	x := New(dir, gen)

	plan := &types.EditPlan{Instructions: []types.EditInstruction{
		{FilePath: "app.py", ChangeType: types.ChangeModify, Description: "x", Priority: 1},
	}}

	result := x.Execute(plan, "req-1")

	assert.False(t, result.Success)
	assert.Empty(t, result.Changes)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "app.py")
	assert.Contains(t, result.Errors[0], "validation")

	// Original content untouched.
	current, err := os.ReadFile(filepath.Join(dir, "app.py"))
	require.NoError(t, err)
	assert.Equal(t, "def ok():\n    return 1\n", string(current))
}

func TestExecute_Delete(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "obsolete.py", "legacy = True\n")

	gen := &fakeGenerator{}
	x := New(dir, gen)

	plan := &types.EditPlan{Instructions: []types.EditInstruction{
		{FilePath: "obsolete.py", ChangeType: types.ChangeDelete, Description: "remove", Priority: 1},
	}}

	result := x.Execute(plan, "req-1")

	require.True(t, result.Success)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, types.AppliedDeleted, result.Changes[0].ChangeType)
	assert.Equal(t, "legacy = True\n", result.Changes[0].OriginalContent)

	_, err := os.Stat(filepath.Join(dir, "obsolete.py"))
	assert.True(t, os.IsNotExist(err))
}

func TestExecute_DeleteMissingFileWarns(t *testing.T) {
	dir := t.TempDir()

	gen := &fakeGenerator{}
	x := New(dir, gen)

	plan := &types.EditPlan{Instructions: []types.EditInstruction{
		{FilePath: "ghost.py", ChangeType: types.ChangeDelete, Description: "remove", Priority: 1},
	}}

	result := x.Execute(plan, "req-1")

	assert.False(t, result.Success)
	assert.Empty(t, result.Changes)
	assert.Len(t, result.Warnings, 1)
	assert.Empty(t, result.Errors)
}

func TestExecute_RenameAlwaysWarns(t *testing.T) {
	dir := t.TempDir()

	gen := &fakeGenerator{}
	x := New(dir, gen)

	plan := &types.EditPlan{Instructions: []types.EditInstruction{
		{FilePath: "old.py", ChangeType: types.ChangeRename, Description: "rename", Priority: 1},
	}}

	result := x.Execute(plan, "req-1")

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "rename")
	assert.Empty(t, gen.editOrder)
}

func TestExecute_ContinuesAfterGenerationError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "first.md", "one")
	writeFile(t, dir, "second.md", "two")

	gen := &fakeGenerator{editErr: errors.New("model unavailable")}
	x := New(dir, gen)

	plan := &types.EditPlan{Instructions: []types.EditInstruction{
		{FilePath: "first.md", ChangeType: types.ChangeModify, Description: "x", Priority: 1},
		{FilePath: "second.md", ChangeType: types.ChangeModify, Description: "x", Priority: 2},
	}}

	result := x.Execute(plan, "req-1")

	// Both instructions were attempted despite the first failing.
	assert.Equal(t, []string{"first.md", "second.md"}, gen.editOrder)
	assert.False(t, result.Success)
	assert.Len(t, result.Errors, 2)
}

func TestExecute_Summary(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mod.md", "content")
	writeFile(t, dir, "del.md", "content")

	gen := &fakeGenerator{content: map[string]string{"new.md": "fresh"}}
	x := New(dir, gen)

	plan := &types.EditPlan{Instructions: []types.EditInstruction{
		{FilePath: "mod.md", ChangeType: types.ChangeModify, Description: "x", Priority: 1},
		{FilePath: "new.md", ChangeType: types.ChangeCreate, Description: "x", Priority: 2},
		{FilePath: "del.md", ChangeType: types.ChangeDelete, Description: "x", Priority: 3},
	}}

	result := x.Execute(plan, "req-1")

	require.True(t, result.Success)
	assert.Equal(t, 3, result.Summary.TotalInstructions)
	assert.Equal(t, 3, result.Summary.Successful)
	assert.Equal(t, 1, result.Summary.Modified)
	assert.Equal(t, 1, result.Summary.Created)
	assert.Equal(t, 1, result.Summary.Deleted)
	assert.Equal(t, 0, result.Summary.Failed)
	assert.Equal(t, "req-1", result.RequestID)
}
