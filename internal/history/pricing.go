package history

import "strings"

// rate is USD per million tokens.
type rate struct {
	in  float64
	out float64
}

// EstimateCost approximates the USD cost of a request from public list
// prices. Matching is substring based and ordered, so the more specific
// families must come first.
func EstimateCost(model string, tokensIn, tokensOut int64) float64 {
	r := modelRate(model)
	return float64(tokensIn)/1e6*r.in + float64(tokensOut)/1e6*r.out
}

func modelRate(model string) rate {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "claude") && strings.Contains(m, "opus"):
		return rate{15, 75}
	case strings.Contains(m, "claude") && strings.Contains(m, "sonnet"):
		return rate{3, 15}
	case strings.Contains(m, "claude") && strings.Contains(m, "haiku"):
		return rate{0.25, 1.25}
	case strings.Contains(m, "gpt-5"):
		return rate{15, 45}
	case strings.Contains(m, "gpt-4o"):
		return rate{2.5, 10}
	case strings.Contains(m, "gpt-4-turbo"), strings.Contains(m, "gpt-4"):
		return rate{10, 30}
	case strings.Contains(m, "gpt-3.5"):
		return rate{0.5, 1.5}
	case strings.Contains(m, "gemini") && strings.Contains(m, "pro"):
		return rate{1.25, 5}
	case strings.Contains(m, "gemini") && strings.Contains(m, "flash"):
		return rate{0.075, 0.30}
	case strings.Contains(m, "gemini-2"):
		return rate{0.10, 0.40}
	case strings.Contains(m, "qwen"):
		return rate{0.50, 2}
	default:
		return rate{1, 3}
	}
}
