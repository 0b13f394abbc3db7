package api

import (
	"testing"
)

func TestFormatLogLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "warning with params",
			input: `time=2026-03-02T19:05:11.074+07:00 level=WARN msg="Admin endpoint failed" base_url=http://localhost:5187 attempt=2 error="dial tcp 127.0.0.1:5187: connect: connection refused"`,
			want:  "19:05:11 [WARN] Admin endpoint failed (attempt=2, base_url=http://localhost:5187)",
		},
		{
			name:  "info hides level",
			input: `time=2026-03-02T19:05:12+07:00 level=INFO msg="Narration: played" poi_id=oc-oanh lang=vi`,
			want:  "19:05:12 Narration: played (lang=vi, poi_id=oc-oanh)",
		},
		{
			name:  "no msg",
			input: `not a slog line`,
			want:  "not a slog line",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatLogLine(tt.input); got != tt.want {
				t.Errorf("formatLogLine() = %q, want %q", got, tt.want)
			}
		})
	}
}
