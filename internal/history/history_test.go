package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/proxypal/proxypal/internal/proto"
)

func testDB(tb testing.TB) *DB {
	tb.Helper()
	db, err := Open(":memory:")
	require.NoError(tb, err)
	tb.Cleanup(func() {
		require.NoError(tb, db.Close())
	})
	return db
}

func testRecord(id string, ts time.Time) proto.RequestRecord {
	return proto.RequestRecord{
		ID:        id,
		Timestamp: ts,
		Method:    "POST",
		Path:      "/v1/messages",
		Model:     "claude-sonnet-4-5",
		Provider:  proto.ProviderClaude,
		Status:    200,
		Duration:  1200 * time.Millisecond,
		TokensIn:  100,
		TokensOut: 50,
	}
}

func TestRecord(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	require.NoError(t, db.Record(testRecord("req_1", now)))

	list, err := db.Recent(10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	require.Equal(t, "req_1", got.ID)
	require.Equal(t, now.UnixMilli(), got.Timestamp.UnixMilli())
	require.Equal(t, "POST", got.Method)
	require.Equal(t, proto.ProviderClaude, got.Provider)
	require.Equal(t, 1200*time.Millisecond, got.Duration)
	require.InDelta(t, EstimateCost("claude-sonnet-4-5", 100, 50), got.Cost, 1e-9)

	totals, err := db.Totals()
	require.NoError(t, err)
	require.Equal(t, int64(100), totals.TokensIn)
	require.Equal(t, int64(50), totals.TokensOut)
}

func TestRecordDedupe(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	t.Run("same id", func(t *testing.T) {
		require.NoError(t, db.Record(testRecord("req_dup", now)))
		require.NoError(t, db.Record(testRecord("req_dup", now.Add(time.Second))))

		list, err := db.Recent(10)
		require.NoError(t, err)
		require.Len(t, list, 1)

		totals, err := db.Totals()
		require.NoError(t, err)
		require.Equal(t, int64(100), totals.TokensIn)
	})

	t.Run("same timestamp and path", func(t *testing.T) {
		require.NoError(t, db.Record(testRecord("req_other", now)))

		list, err := db.Recent(10)
		require.NoError(t, err)
		require.Len(t, list, 1)
	})
}

func TestRecordPrune(t *testing.T) {
	db := testDB(t)
	base := time.Now().Add(-time.Hour)

	for i := 0; i < keepLast+10; i++ {
		r := testRecord(fmt.Sprintf("req_%d", i), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, db.Record(r))
	}

	list, err := db.Recent(keepLast + 10)
	require.NoError(t, err)
	require.Len(t, list, keepLast)
	// newest first, oldest 10 gone
	require.Equal(t, fmt.Sprintf("req_%d", keepLast+9), list[0].ID)
	require.Equal(t, "req_10", list[len(list)-1].ID)
}

func TestSince(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	require.NoError(t, db.Record(testRecord("req_old", now.Add(-2*time.Hour))))
	require.NoError(t, db.Record(testRecord("req_new", now)))

	list, err := db.Since(now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "req_new", list[0].ID)
}

func TestClear(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.Record(testRecord("req_1", time.Now())))
	require.NoError(t, db.Clear())

	list, err := db.Recent(10)
	require.NoError(t, err)
	require.Empty(t, list)

	totals, err := db.Totals()
	require.NoError(t, err)
	require.Equal(t, Totals{}, totals)
}

func TestSetTotals(t *testing.T) {
	db := testDB(t)

	want := Totals{TokensIn: 1234, TokensOut: 567, Cost: 1.25}
	require.NoError(t, db.SetTotals(want))

	got, err := db.Totals()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestStats(t *testing.T) {
	db := testDB(t)
	// fixed mid-day anchor so the day and hour buckets are stable
	now := time.Date(2026, 3, 10, 12, 30, 0, 0, time.Local)

	ok := testRecord("req_ok", now)
	require.NoError(t, db.Record(ok))

	fail := testRecord("req_fail", now.Add(time.Second))
	fail.Status = 500
	fail.Model = "gpt-4o"
	fail.Path = "/v1/chat/completions"
	require.NoError(t, db.Record(fail))

	require.NoError(t, db.Record(testRecord("req_old", now.Add(-48*time.Hour))))

	s, err := db.Stats(now)
	require.NoError(t, err)

	require.Equal(t, int64(3), s.TotalRequests)
	require.Equal(t, int64(2), s.SuccessCount)
	require.Equal(t, int64(1), s.FailureCount)
	require.Equal(t, int64(300), s.InputTokens)
	require.Equal(t, int64(150), s.OutputTokens)
	require.Equal(t, int64(450), s.TotalTokens)
	require.Equal(t, int64(2), s.RequestsToday)
	require.Equal(t, int64(300), s.TokensToday)

	require.Len(t, s.Models, 2)
	require.Equal(t, "claude-sonnet-4-5", s.Models[0].Model)
	require.Equal(t, int64(2), s.Models[0].Requests)
	require.Equal(t, int64(300), s.Models[0].Tokens)

	require.Len(t, s.RequestsByDay, 2)
	require.Equal(t, s.RequestsByDay[1].Label, now.Format("2006-01-02"))
	require.Equal(t, int64(2), s.RequestsByDay[1].Value)
	require.Len(t, s.RequestsByHour, 2)
	require.Len(t, s.TokensByDay, 2)
	require.Equal(t, int64(300), s.TokensByDay[1].Value)
}

func TestEstimateCost(t *testing.T) {
	costs := map[string]struct {
		model string
		want  float64
	}{
		"opus":    {"claude-opus-4-5", 90},
		"sonnet":  {"claude-sonnet-4-5-thinking", 18},
		"haiku":   {"claude-haiku-4-5", 1.5},
		"gpt-5":   {"gpt-5.2", 60},
		"gpt-4o":  {"gpt-4o-mini", 12.5},
		"gemini":  {"gemini-3-pro-preview", 6.25},
		"flash":   {"gemini-2.5-flash", 0.375},
		"qwen":    {"qwen3-coder-plus", 2.5},
		"unknown": {"mystery-model", 4},
	}
	for name, tc := range costs {
		t.Run(name, func(t *testing.T) {
			require.InDelta(t, tc.want, EstimateCost(tc.model, 1_000_000, 1_000_000), 1e-9)
		})
	}
}
