package edgetts

import (
	"strings"
	"testing"

	"foodstreet/pkg/tts"
)

func TestBuildSSML(t *testing.T) {
	tests := []struct {
		name     string
		req      tts.Request
		expected []string // Substrings that must be present
	}{
		{
			name:     "Vietnamese text",
			req:      tts.Request{Voice: "vi-VN-HoaiMyNeural", Locale: "vi-VN", Text: "Ốc Oanh", Rate: 1.08, Pitch: 1.0},
			expected: []string{"Ốc Oanh", "vi-VN-HoaiMyNeural", "xml:lang='vi-VN'", "rate='+8%'", "pitch='+0%'"},
		},
		{
			name:     "Text with ampersand",
			req:      tts.Request{Voice: "en-US-AvaMultilingualNeural", Locale: "en-US", Text: "Ben & Jerry's"},
			expected: []string{"Ben &amp; Jerry&apos;s"},
		},
		{
			name:     "Text with tags",
			req:      tts.Request{Voice: "en-US-AvaMultilingualNeural", Text: "<speak>Hello</speak>"},
			expected: []string{"&lt;speak&gt;Hello&lt;/speak&gt;", "xml:lang='en-US'"},
		},
		{
			name:     "Slower speech",
			req:      tts.Request{Voice: "en-US-AvaMultilingualNeural", Locale: "en-US", Text: "slow", Rate: 0.9},
			expected: []string{"rate='-10%'"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSSML(tt.req)
			for _, exp := range tt.expected {
				if !strings.Contains(got, exp) {
					t.Errorf("buildSSML() = %v, expected to contain %v", got, exp)
				}
			}
		})
	}
}

func TestRelativePercent(t *testing.T) {
	cases := map[float64]string{0: "+0%", 1: "+0%", 1.08: "+8%", 1.5: "+50%", 0.75: "-25%"}
	for in, want := range cases {
		if got := relativePercent(in); got != want {
			t.Errorf("relativePercent(%v) = %q, want %q", in, got, want)
		}
	}
}
