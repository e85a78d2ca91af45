package gateway

import "strings"

// Limits reports a model's (context window, max output) in tokens, matching
// on the model id first so proxied names like gemini-claude-sonnet resolve
// to their real family, then on owned_by as the fallback.
func Limits(modelID, ownedBy string) (context, output int64) {
	m := strings.ToLower(modelID)

	switch {
	case strings.Contains(m, "claude"):
		if strings.Contains(m, "3-5-haiku") || strings.Contains(m, "3-haiku") {
			return 200_000, 8192
		}
		return 200_000, 64_000
	case strings.Contains(m, "gemini"):
		return 1_048_576, 65_536
	case strings.Contains(m, "gpt"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"):
		if strings.Contains(m, "o1") || strings.Contains(m, "o3") {
			return 200_000, 100_000
		}
		return 128_000, 16_384
	case strings.Contains(m, "qwen"):
		if strings.Contains(m, "coder") {
			return 1_048_576, 65_536
		}
		return 262_144, 65_536
	case strings.Contains(m, "deepseek"):
		if strings.Contains(m, "reasoner") || strings.Contains(m, "r1") {
			return 128_000, 128_000
		}
		return 128_000, 8192
	}

	switch ownedBy {
	case "anthropic":
		return 200_000, 64_000
	case "google":
		return 1_048_576, 65_536
	case "openai":
		return 128_000, 16_384
	case "qwen":
		return 262_144, 65_536
	case "deepseek":
		return 128_000, 8192
	default:
		return 128_000, 16_384
	}
}

// DisplayName renders a model id as a human readable name, e.g.
// claude-sonnet-4-5 -> Claude Sonnet 4 5.
func DisplayName(modelID string) string {
	repl := strings.NewReplacer("-", " ", ".", " ")
	words := strings.Fields(repl.Replace(modelID))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
