package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPOI_HasPlayableContent(t *testing.T) {
	tests := []struct {
		name string
		poi  *POI
		want bool
	}{
		{name: "Nil", poi: nil, want: false},
		{name: "Empty", poi: &POI{ID: "a"}, want: false},
		{name: "Whitespace Only", poi: &POI{ID: "a", Narration: "  \n", AudioURL: " "}, want: false},
		{name: "Narration", poi: &POI{ID: "a", Narration: "Xin chao"}, want: true},
		{name: "Audio", poi: &POI{ID: "a", AudioURL: "http://localhost:5187/uploads/a.mp3"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.poi.HasPlayableContent())
		})
	}
}

func TestPOI_NarrationLanguage(t *testing.T) {
	assert.Equal(t, "vi", (&POI{}).NarrationLanguage())
	assert.Equal(t, "en", (&POI{Language: "en"}).NarrationLanguage())
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "vi", NormalizeLanguage(""))
	assert.Equal(t, "en", NormalizeLanguage(" EN "))
}

func TestLocaleFor(t *testing.T) {
	assert.Equal(t, "vi-VN", LocaleFor("vi"))
	assert.Equal(t, "en-US", LocaleFor("EN"))
	assert.Equal(t, "fr", LocaleFor("fr"))
}

func TestRuntimeState_DistanceKnown(t *testing.T) {
	assert.False(t, RuntimeState{}.DistanceKnown())
	assert.False(t, RuntimeState{DistanceMeters: -1}.DistanceKnown())
	assert.True(t, RuntimeState{DistanceMeters: 6.2}.DistanceKnown())
}
