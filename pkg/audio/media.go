package audio

import (
	"fmt"
	"os"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// DecodeMedia opens an mp3 or wav file. The file handle is owned by the returned streamer.
func DecodeMedia(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	if strings.HasSuffix(strings.ToLower(path), ".wav") {
		s, format, err := wav.Decode(f)
		if err != nil {
			f.Close()
			return nil, beep.Format{}, fmt.Errorf("decode wav: %w", err)
		}
		return s, format, nil
	}

	// Try MP3 first
	s, format, err := mp3.Decode(f)
	if err == nil {
		return s, format, nil
	}
	f.Close()

	// Extension may lie; fall back to WAV
	f, err = os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	s, format, err = wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format: %w", err)
	}
	return s, format, nil
}
