package history

import (
	"fmt"
	"time"
)

// Stats is the usage dashboard aggregate: request counts over the stored
// window, all-time token totals, and short day/hour series.
type Stats struct {
	TotalRequests  int64         `json:"totalRequests"`
	SuccessCount   int64         `json:"successCount"`
	FailureCount   int64         `json:"failureCount"`
	TotalTokens    int64         `json:"totalTokens"`
	InputTokens    int64         `json:"inputTokens"`
	OutputTokens   int64         `json:"outputTokens"`
	RequestsToday  int64         `json:"requestsToday"`
	TokensToday    int64         `json:"tokensToday"`
	Models         []ModelUsage  `json:"models"`
	RequestsByDay  []SeriesPoint `json:"requestsByDay"`
	TokensByDay    []SeriesPoint `json:"tokensByDay"`
	RequestsByHour []SeriesPoint `json:"requestsByHour"`
	TokensByHour   []SeriesPoint `json:"tokensByHour"`
}

// ModelUsage is one model's share of the stored window.
type ModelUsage struct {
	Model    string `db:"model"    json:"model"`
	Requests int64  `db:"requests" json:"requests"`
	Tokens   int64  `db:"tokens"   json:"tokens"`
}

// SeriesPoint is one bucket of a time series, labeled by local day or hour.
type SeriesPoint struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

const (
	statsDays  = 14
	statsHours = 24
)

// Stats computes the usage aggregate. now anchors the "today" counters and
// is normally time.Now().
func (d *DB) Stats(now time.Time) (Stats, error) {
	var s Stats

	var counts struct {
		Requests int64 `db:"requests"`
		Success  int64 `db:"success"`
	}
	if err := d.db.Get(&counts, `
		select count(*) as requests,
		       coalesce(sum(case when status < 400 then 1 else 0 end), 0) as success
		from requests
	`); err != nil {
		return Stats{}, fmt.Errorf("could not compute usage stats: %w", err)
	}
	s.TotalRequests = counts.Requests
	s.SuccessCount = counts.Success
	s.FailureCount = counts.Requests - counts.Success

	totals, err := d.Totals()
	if err != nil {
		return Stats{}, err
	}
	s.InputTokens = totals.TokensIn
	s.OutputTokens = totals.TokensOut
	s.TotalTokens = totals.TokensIn + totals.TokensOut

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var today struct {
		Requests int64 `db:"requests"`
		Tokens   int64 `db:"tokens"`
	}
	if err := d.db.Get(&today, `
		select count(*) as requests,
		       coalesce(sum(tokens_in + tokens_out), 0) as tokens
		from requests where ts >= $1
	`, dayStart.UnixMilli()); err != nil {
		return Stats{}, fmt.Errorf("could not compute usage stats: %w", err)
	}
	s.RequestsToday = today.Requests
	s.TokensToday = today.Tokens

	if err := d.db.Select(&s.Models, `
		select model, count(*) as requests,
		       coalesce(sum(tokens_in + tokens_out), 0) as tokens
		from requests group by model order by requests desc, model asc
	`); err != nil {
		return Stats{}, fmt.Errorf("could not compute usage stats: %w", err)
	}

	s.RequestsByDay, s.TokensByDay, err = d.series(`%Y-%m-%d`, statsDays)
	if err != nil {
		return Stats{}, err
	}
	s.RequestsByHour, s.TokensByHour, err = d.series(`%Y-%m-%dT%H`, statsHours)
	if err != nil {
		return Stats{}, err
	}
	return s, nil
}

// series buckets the stored requests by a strftime format in local time and
// keeps the newest n buckets.
func (d *DB) series(format string, n int) (requests, tokens []SeriesPoint, err error) {
	var rows []struct {
		Label    string `db:"label"`
		Requests int64  `db:"requests"`
		Tokens   int64  `db:"tokens"`
	}
	if err := d.db.Select(&rows, fmt.Sprintf(`
		select strftime('%s', ts/1000, 'unixepoch', 'localtime') as label,
		       count(*) as requests,
		       coalesce(sum(tokens_in + tokens_out), 0) as tokens
		from requests group by label order by label asc
	`, format)); err != nil {
		return nil, nil, fmt.Errorf("could not compute usage series: %w", err)
	}
	if len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	requests = make([]SeriesPoint, 0, len(rows))
	tokens = make([]SeriesPoint, 0, len(rows))
	for _, r := range rows {
		requests = append(requests, SeriesPoint{r.Label, r.Requests})
		tokens = append(tokens, SeriesPoint{r.Label, r.Tokens})
	}
	return requests, tokens, nil
}
