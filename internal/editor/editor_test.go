package editor

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchpilot/codepatch/internal/analyzer"
	"github.com/patchpilot/codepatch/internal/types"
)

type stubProvider struct {
	response string
	err      error
	prompts  []string
}

func (s *stubProvider) GetModel() string { return "stub-model" }

func (s *stubProvider) Generate(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func testContext() *types.RepositoryContext {
	return &types.RepositoryContext{
		URL:           "https://github.com/acme/demo",
		Owner:         "acme",
		Name:          "demo",
		DefaultBranch: "main",
		Languages:     []string{"python"},
		FileCount:     3,
		KeyFiles:      map[string]string{"app.py": "print('hi')"},
	}
}

func TestGeneratePlan(t *testing.T) {
	provider := &stubProvider{
		response: `{"instructions": [{"file_path": "app.py", "change_type": "modify", "description": "add logging", "priority": 1}], "confidence": 0.8}`,
	}
	ed := NewAIEditor(provider)

	plan, err := ed.GeneratePlan(testContext(), "add logging to the app")
	require.NoError(t, err)
	require.Len(t, plan.Instructions, 1)
	assert.Equal(t, "app.py", plan.Instructions[0].FilePath)

	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "add logging to the app")
	assert.Contains(t, provider.prompts[0], "acme/demo")
}

func TestGeneratePlan_MalformedResponse(t *testing.T) {
	provider := &stubProvider{response: "I refuse to answer in JSON."}
	ed := NewAIEditor(provider)

	_, err := ed.GeneratePlan(testContext(), "do something")
	require.Error(t, err)
	assert.True(t, types.IsPlanGenerationError(err))
}

func TestGeneratePlan_TransportError(t *testing.T) {
	prev := generateBackoff
	generateBackoff = time.Millisecond
	defer func() { generateBackoff = prev }()

	provider := &stubProvider{err: errors.New("connection refused")}
	ed := NewAIEditor(provider)

	_, err := ed.GeneratePlan(testContext(), "do something")
	require.Error(t, err)
	assert.False(t, types.IsPlanGenerationError(err))
}

func TestEditFile_StripsFences(t *testing.T) {
	provider := &stubProvider{response: "```python\nprint('edited')\n```"}
	ed := NewAIEditor(provider)

	content, err := ed.EditFile("app.py", "print('hi')", analyzer.LangPython, "change the greeting", nil)
	require.NoError(t, err)
	assert.Equal(t, "print('edited')", content)
}

func TestEditFile_EmptyResponse(t *testing.T) {
	provider := &stubProvider{response: "   \n"}
	ed := NewAIEditor(provider)

	_, err := ed.EditFile("app.py", "print('hi')", analyzer.LangPython, "change the greeting", nil)
	require.Error(t, err)
}

func TestReviewChanges_UnchangedSkipsModel(t *testing.T) {
	provider := &stubProvider{response: "should never be used"}
	ed := NewAIEditor(provider)

	review, err := ed.ReviewChanges("app.py", "same", "same", analyzer.LangPython)
	require.NoError(t, err)
	assert.Equal(t, "unchanged", review.Status)
	assert.Empty(t, provider.prompts)
}

func TestReviewChanges_Approved(t *testing.T) {
	provider := &stubProvider{response: "APPROVED"}
	ed := NewAIEditor(provider)

	review, err := ed.ReviewChanges("app.py", "old", "new", analyzer.LangPython)
	require.NoError(t, err)
	assert.Equal(t, "approved", review.Status)
	assert.Empty(t, review.Issues)
}

func TestReviewChanges_IssuesFound(t *testing.T) {
	provider := &stubProvider{
		response: `[{"severity": "critical", "file_path": "app.py", "start_line": 1, "end_line": 1, "description": "hardcoded secret"}]`,
	}
	ed := NewAIEditor(provider)

	review, err := ed.ReviewChanges("app.py", "old", "new", analyzer.LangPython)
	require.NoError(t, err)
	assert.Equal(t, "issues_found", review.Status)
	require.Len(t, review.Issues, 1)
	assert.Contains(t, review.Summary, "1 critical")
}

func TestReviewChanges_UnparseableDoesNotFail(t *testing.T) {
	provider := &stubProvider{response: "the change seems fine to me"}
	ed := NewAIEditor(provider)

	review, err := ed.ReviewChanges("app.py", "old", "new", analyzer.LangPython)
	require.NoError(t, err)
	assert.Equal(t, "unparseable", review.Status)
}

func TestExplainChanges_Unchanged(t *testing.T) {
	provider := &stubProvider{response: "should never be used"}
	ed := NewAIEditor(provider)

	explanation, err := ed.ExplainChanges("app.py", "same", "same", "do nothing")
	require.NoError(t, err)
	assert.Equal(t, "No changes were made to this file.", explanation)
	assert.Empty(t, provider.prompts)
}

func TestExplainChanges(t *testing.T) {
	provider := &stubProvider{response: "  Added a logging call to the handler.\n"}
	ed := NewAIEditor(provider)

	explanation, err := ed.ExplainChanges("app.py", "old", "new", "add logging")
	require.NoError(t, err)
	assert.Equal(t, "Added a logging call to the handler.", explanation)
	require.Len(t, provider.prompts, 1)
	assert.True(t, strings.Contains(provider.prompts[0], "add logging"))
}
