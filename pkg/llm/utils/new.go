// Package llmutils is the language-model utility package
package llmutils

import (
	"fmt"

	"github.com/leadforgeco/leadforge/pkg/llm"
	"github.com/leadforgeco/leadforge/pkg/llm/ollama"
)

type NewClientOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
}

func NewClient(o *NewClientOpts) (llm.Client, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewClient(ollama.ClientConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", o.ProviderType)
	}
}
