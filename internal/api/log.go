package api

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"foodstreet/pkg/logging"
)

// key=value or key="value with spaces"
var logRegex = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

// maxParamLen drops long attributes (errors, URLs) from the one-line summary.
const maxParamLen = 24

// handleLatestLog returns the last captured warning or error, condensed for the status bar.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"log": formatLogLine(logging.GlobalLogCapture.GetLastLine()),
	})
}

// handleRecentEvents returns the most recent event-log lines, newest first.
// ?limit=N caps the count.
func handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	lines := logging.GlobalEventCapture.Lines()
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n >= 0 && n < len(lines) {
		lines = lines[:n]
	}
	writeJSON(w, http.StatusOK, map[string][]string{"events": lines})
}

// formatLogLine turns a slog text line into "HH:MM:SS [LEVEL] msg (k=v, ...)".
// Attributes are sorted and long values dropped. Unparsable input is returned as is.
func formatLogLine(raw string) string {
	matches := logRegex.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return raw
	}

	var msg, clock, level string
	var params []string

	for _, m := range matches {
		key, val := m[1], m[2]
		if val == "" {
			val = m[3]
		}
		val = strings.TrimSpace(val)

		switch key {
		case "time":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				clock = t.Format("15:04:05")
			}
		case "level":
			level = val
		case "msg":
			msg = val
		default:
			if len(val) <= maxParamLen {
				params = append(params, key+"="+val)
			}
		}
	}

	if msg == "" {
		return raw
	}
	sort.Strings(params)

	var b strings.Builder
	if clock != "" {
		b.WriteString(clock + " ")
	}
	if level != "" && level != "INFO" {
		fmt.Fprintf(&b, "[%s] ", level)
	}
	b.WriteString(msg)
	if len(params) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(params, ", "))
	}
	return b.String()
}
