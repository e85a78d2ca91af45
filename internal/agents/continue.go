package agents

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/proxypal/proxypal/internal/proxyconfig"
)

// continueModel is the model block added to Continue's config.yaml. Continue
// routes by model name, so a single auto-routed entry is enough; the proxy
// picks the upstream.
type continueModel struct {
	Name     string   `yaml:"name"`
	Provider string   `yaml:"provider"`
	Model    string   `yaml:"model"`
	APIKey   string   `yaml:"apiKey"`
	APIBase  string   `yaml:"apiBase"`
	Roles    []string `yaml:"roles"`
}

func (c *Configurer) continueModel() continueModel {
	return continueModel{
		Name:     "ProxyPal (Auto-routed)",
		Provider: "openai",
		Model:    "gpt-4",
		APIKey:   proxyconfig.LocalAPIKey,
		APIBase:  c.cfg.LocalhostEndpoint() + "/v1",
		Roles:    []string{"chat", "edit", "apply"},
	}
}

func (c *Configurer) configureContinue() (*Result, error) {
	dir := filepath.Join(c.home, ".continue")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create continue directory: %w", err)
	}
	configPath := filepath.Join(dir, "config.yaml")

	existing, err := os.ReadFile(configPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("could not read continue config: %w", err)
	}
	if bytes.Contains(existing, []byte("ProxyPal")) ||
		bytes.Contains(existing, []byte(c.cfg.LocalhostEndpoint()+"/v1")) {
		return &Result{
			Agent:        Continue,
			ConfigType:   TypeFile,
			ConfigPath:   configPath,
			Instructions: "Continue is already configured with ProxyPal.",
		}, nil
	}

	var data []byte
	if len(bytes.TrimSpace(existing)) == 0 {
		data = c.freshContinueConfig()
	} else {
		data, err = c.appendContinueModel(existing)
		if err != nil {
			return nil, err
		}
	}
	if err := renameio.WriteFile(configPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("could not write continue config: %w", err)
	}

	return &Result{
		Agent:        Continue,
		ConfigType:   TypeFile,
		ConfigPath:   configPath,
		Instructions: "ProxyPal model added to Continue. Reload VS Code to pick it up.",
	}, nil
}

func (c *Configurer) freshContinueConfig() []byte {
	m := c.continueModel()
	return []byte(fmt.Sprintf(`# Continue configuration - Auto-configured by ProxyPal
name: ProxyPal Config
version: 0.0.1
schema: v1

models:
  - name: %s
    provider: %s
    model: %s
    apiKey: %s
    apiBase: %s
    roles:
      - chat
      - edit
      - apply
`, m.Name, m.Provider, m.Model, m.APIKey, m.APIBase))
}

// appendContinueModel inserts the ProxyPal model into the models sequence of
// an existing Continue config. Going through the yaml node tree keeps the
// user's comments and key order intact.
func (c *Configurer) appendContinueModel(existing []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(existing, &doc); err != nil {
		return nil, fmt.Errorf("could not parse continue config: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 ||
		doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("could not parse continue config: not a yaml mapping")
	}
	root := doc.Content[0]

	var models *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "models" {
			models = root.Content[i+1]
			break
		}
	}
	if models == nil {
		models = &yaml.Node{Kind: yaml.SequenceNode}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "models"},
			models,
		)
	} else if models.Kind != yaml.SequenceNode {
		// A bare "models:" key decodes as a null scalar.
		*models = yaml.Node{Kind: yaml.SequenceNode}
	}

	entry := &yaml.Node{}
	if err := entry.Encode(c.continueModel()); err != nil {
		return nil, fmt.Errorf("could not encode continue model: %w", err)
	}
	entry.HeadComment = "Added by ProxyPal"
	models.Content = append(models.Content, entry)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("could not encode continue config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("could not encode continue config: %w", err)
	}
	return buf.Bytes(), nil
}
