// Package requestlog tails the proxy's access log and turns GIN request
// lines into history records. Token counts never show up in the access log;
// they get reconciled later from the management API's usage endpoint.
package requestlog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/proxypal/proxypal/internal/proto"
)

// ginLine matches the proxy's access log format:
//
//	[GIN] 2025/12/04 - 20:51:48 | 200 | 6.656s | ::1 | POST "/api/provider/anthropic/v1/messages" | model=claude-3-opus
//
// The trailing model column is optional.
var ginLine = regexp.MustCompile(`\[GIN\]\s+(\d{4}/\d{2}/\d{2})\s+-\s+(\d{2}:\d{2}:\d{2})\s+\|\s+(\d+)\s+\|\s+(\S+)\s+\|\s+\S+\s+\|\s+(\w+)\s+"([^"]+)"(?:\s+\|\s+model=(\S+))?`)

// skipMarkers are access log routes that aren't model traffic: management
// calls, model listings, Amp bookkeeping, telemetry.
var skipMarkers = []string{
	"/v0/management/",
	"/v1/models",
	"?uploadThread",
	"?getCreditsByRequestId",
	"?threadDisplayCostInfo",
	"/api/internal",
	"/api/telemetry",
	"/api/otel",
}

// trackMarkers are the inference endpoints worth recording.
var trackMarkers = []string{
	"/chat/completions",
	"/v1/messages",
	"/completions",
	"/v1beta",
	":generateContent",
	":streamGenerateContent",
}

// ParseLine extracts a request record from one access log line. The counter
// disambiguates requests sharing a timestamp: ids look like
// req_1764942708000_7 and stay unique across restarts because the millisecond
// timestamp is part of them.
func ParseLine(line string, counter *atomic.Uint64) (proto.RequestRecord, bool) {
	if !strings.Contains(line, "[GIN]") {
		return proto.RequestRecord{}, false
	}
	for _, m := range skipMarkers {
		if strings.Contains(line, m) {
			return proto.RequestRecord{}, false
		}
	}
	if !trackable(line) {
		return proto.RequestRecord{}, false
	}

	groups := ginLine.FindStringSubmatch(line)
	if groups == nil {
		return proto.RequestRecord{}, false
	}

	ts, err := time.ParseInLocation("2006/01/02 15:04:05", groups[1]+" "+groups[2], time.Local)
	if err != nil {
		ts = time.Now()
	}
	status, err := strconv.Atoi(groups[3])
	if err != nil {
		return proto.RequestRecord{}, false
	}
	duration, _ := time.ParseDuration(groups[4])

	path := groups[6]
	model := groups[7]
	if model == "" {
		model = proto.ExtractModel(path)
	}
	if model == "" {
		model = "unknown"
	}

	return proto.RequestRecord{
		ID:        fmt.Sprintf("req_%d_%d", ts.UnixMilli(), counter.Add(1)),
		Timestamp: ts,
		Method:    groups[5],
		Path:      path,
		Model:     model,
		Provider:  proto.DetectProvider(path, model),
		Status:    status,
		Duration:  duration,
	}, true
}

func trackable(line string) bool {
	for _, m := range trackMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}
