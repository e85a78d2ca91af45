// Package authfiles tracks provider credentials in the proxy's auth
// directory (~/.cli-proxy-api). The proxy owns the files; ProxyPal only
// counts them per provider, removes them on disconnect, and drops imported
// Vertex service accounts in.
package authfiles

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/proxypal/proxypal/internal/proto"
)

// Status counts connected accounts per provider.
type Status struct {
	Claude      int `json:"claude"`
	OpenAI      int `json:"openai"`
	Gemini      int `json:"gemini"`
	Qwen        int `json:"qwen"`
	IFlow       int `json:"iflow"`
	Vertex      int `json:"vertex"`
	Antigravity int `json:"antigravity"`
}

// Total is the number of connected accounts across providers.
func (s Status) Total() int {
	return s.Claude + s.OpenAI + s.Gemini + s.Qwen + s.IFlow + s.Vertex + s.Antigravity
}

// Store scans and mutates the proxy's credential files, caching the last
// seen status so callers have something to show before the first scan.
type Store struct {
	authDir   string
	cachePath string
}

// New makes a Store over the proxy auth directory, caching status at
// cachePath.
func New(authDir, cachePath string) *Store {
	return &Store{authDir: authDir, cachePath: cachePath}
}

// prefixes maps a provider to the proxy's credential file naming patterns,
// e.g. claude-{email}.json, codex-{email}.json, vertex-{project}.json.
func prefixes(p proto.Provider) []string {
	switch p {
	case proto.ProviderClaude:
		return []string{"claude-", "anthropic-"}
	case proto.ProviderOpenAI, proto.ProviderCodex:
		return []string{"codex-"}
	case proto.ProviderGemini:
		return []string{"gemini-"}
	case proto.ProviderQwen:
		return []string{"qwen-"}
	case proto.ProviderIFlow:
		return []string{"iflow-"}
	case proto.ProviderVertex:
		return []string{"vertex-"}
	case proto.ProviderAntigravity:
		return []string{"antigravity-"}
	default:
		return nil
	}
}

// Scan counts credential files per provider and caches the result. A missing
// auth directory is not an error, it just means nothing is connected yet.
func (s *Store) Scan() (Status, error) {
	var st Status
	entries, err := os.ReadDir(s.authDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Status{}, fmt.Errorf("could not read auth directory: %w", err)
	}
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		for _, p := range []proto.Provider{
			proto.ProviderClaude,
			proto.ProviderCodex,
			proto.ProviderGemini,
			proto.ProviderQwen,
			proto.ProviderIFlow,
			proto.ProviderVertex,
			proto.ProviderAntigravity,
		} {
			if hasAnyPrefix(name, prefixes(p)) {
				*countFor(&st, p)++
				break
			}
		}
	}
	if err := s.saveCache(st); err != nil {
		return st, err
	}
	return st, nil
}

// Cached returns the last scanned status, zero when never scanned.
func (s *Store) Cached() Status {
	data, err := os.ReadFile(s.cachePath)
	if err != nil {
		return Status{}
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return Status{}
	}
	return st
}

// Disconnect deletes the provider's credential files and rescans.
func (s *Store) Disconnect(p proto.Provider) (Status, error) {
	pfx := prefixes(p)
	if pfx == nil {
		return Status{}, fmt.Errorf("unknown provider: %s", p)
	}
	entries, err := os.ReadDir(s.authDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Status{}, fmt.Errorf("could not read auth directory: %w", err)
	}
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		if !strings.HasSuffix(name, ".json") || !hasAnyPrefix(name, pfx) {
			continue
		}
		if err := os.Remove(filepath.Join(s.authDir, e.Name())); err != nil {
			return Status{}, fmt.Errorf("could not delete credential file: %w", err)
		}
	}
	return s.Scan()
}

// ImportVertex validates a Google service account JSON and installs it as
// vertex-{project_id}.json in the auth directory.
func (s *Store) ImportVertex(src string) (Status, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return Status{}, fmt.Errorf("could not read service account file: %w", err)
	}
	var sa struct {
		Type      string `json:"type"`
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(data, &sa); err != nil {
		return Status{}, fmt.Errorf("could not parse service account JSON: %w", err)
	}
	if sa.Type != "service_account" {
		return Status{}, errors.New(`not a service account credential: "type" must be "service_account"`)
	}
	if sa.ProjectID == "" {
		return Status{}, errors.New("service account JSON is missing project_id")
	}
	if err := os.MkdirAll(s.authDir, 0o700); err != nil {
		return Status{}, fmt.Errorf("could not create auth directory: %w", err)
	}
	dest := filepath.Join(s.authDir, fmt.Sprintf("vertex-%s.json", sa.ProjectID))
	if err := renameio.WriteFile(dest, data, 0o600); err != nil {
		return Status{}, fmt.Errorf("could not install credential: %w", err)
	}
	return s.Scan()
}

func (s *Store) saveCache(st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode auth status: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.cachePath), 0o700); err != nil {
		return fmt.Errorf("could not cache auth status: %w", err)
	}
	if err := renameio.WriteFile(s.cachePath, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("could not cache auth status: %w", err)
	}
	return nil
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func countFor(st *Status, p proto.Provider) *int {
	switch p {
	case proto.ProviderClaude:
		return &st.Claude
	case proto.ProviderOpenAI, proto.ProviderCodex:
		return &st.OpenAI
	case proto.ProviderGemini:
		return &st.Gemini
	case proto.ProviderQwen:
		return &st.Qwen
	case proto.ProviderIFlow:
		return &st.IFlow
	case proto.ProviderVertex:
		return &st.Vertex
	case proto.ProviderAntigravity:
		return &st.Antigravity
	default:
		return nil
	}
}
