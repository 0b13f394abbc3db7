package narration

import "errors"

var (
	// ErrPlaybackFailed wraps TTS and audio launcher failures.
	ErrPlaybackFailed = errors.New("narration: playback failed")
	// ErrLedgerWrite wraps failures to persist a completed playback.
	ErrLedgerWrite = errors.New("narration: ledger write failed")
)
