package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"

	"github.com/proxypal/proxypal/internal/config"
)

// DefaultOllamaURL is the local Ollama daemon.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaModels lists the models a local Ollama daemon serves, shaped as
// provider entries ready to drop into an OpenAI-compatible provider. The
// alias strips the :latest tag since that's how people type them.
func OllamaModels(ctx context.Context, baseURL string) ([]config.ProviderModel, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url: %w", err)
	}
	client := api.NewClient(u, &http.Client{Timeout: requestTimeout})

	resp, err := client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not reach ollama: %w", err)
	}
	models := make([]config.ProviderModel, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, config.ProviderModel{
			Name:  m.Name,
			Alias: strings.TrimSuffix(m.Name, ":latest"),
		})
	}
	return models, nil
}

// OllamaProvider shapes an Ollama daemon as an OpenAI-compatible provider
// entry for the generated proxy config.
func OllamaProvider(baseURL string, models []config.ProviderModel) config.OpenAIProvider {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return config.OpenAIProvider{
		ID:      uuid.NewString(),
		Name:    "ollama",
		BaseURL: strings.TrimRight(baseURL, "/") + "/v1",
		APIKey:  "ollama",
		Models:  models,
	}
}
