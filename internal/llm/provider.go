package llm

// Provider generates completions for edit-pipeline prompts.
type Provider interface {
	GetModel() string
	Generate(prompt string) (string, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

var SupportedProviders = []string{"ollama", "openai"}
