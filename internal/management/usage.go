package management

import (
	"context"
	"encoding/json"
	"fmt"
)

// Usage is the proxy's token accounting since it started.
type Usage struct {
	TotalTokens int64               `json:"total_tokens"`
	APIs        map[string]UsageAPI `json:"apis"`
}

// UsageAPI groups usage per handled API route, e.g. "POST /v1/messages".
type UsageAPI struct {
	TotalTokens int64                 `json:"total_tokens"`
	Models      map[string]UsageModel `json:"models"`
}

// UsageModel holds the per-request details for one model on one route.
type UsageModel struct {
	Details []UsageDetail `json:"details"`
}

// UsageDetail is the token count of a single proxied request.
type UsageDetail struct {
	Tokens UsageTokens `json:"tokens"`
}

// UsageTokens splits one request's tokens by direction.
type UsageTokens struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// ModelTotal is the aggregated usage of one model.
type ModelTotal struct {
	Requests  int64
	TokensIn  int64
	TokensOut int64
}

// Usage fetches the proxy's usage accounting. The GIN access log has no
// token counts, so this is where the real numbers come from.
func (c *Client) Usage(ctx context.Context) (*Usage, error) {
	resp, err := c.get(ctx, "usage")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	var body struct {
		Usage *Usage `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("could not parse usage response: %w", err)
	}
	if body.Usage == nil {
		return nil, fmt.Errorf("usage response has no usage field")
	}
	return body.Usage, nil
}

// ModelTotals flattens the usage tree into per-model totals across all
// routes.
func (u *Usage) ModelTotals() map[string]ModelTotal {
	totals := map[string]ModelTotal{}
	for _, api := range u.APIs {
		for model, data := range api.Models {
			t := totals[model]
			for _, d := range data.Details {
				t.Requests++
				t.TokensIn += d.Tokens.InputTokens
				t.TokensOut += d.Tokens.OutputTokens
			}
			totals[model] = t
		}
	}
	return totals
}
