package tts

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"
)

var logPath atomic.Pointer[string]

func init() {
	SetLogPath("logs/tts.log")
}

// SetLogPath configures the path for the TTS log file. An empty path disables the log.
func SetLogPath(path string) {
	logPath.Store(&path)
}

// Log appends one synthesis request and its outcome to the TTS log file.
// Failures to write the log are ignored; narration must not depend on it.
func Log(provider, locale, payload string, status int, err error) {
	path := *logPath.Load()
	if path == "" {
		return
	}
	if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
		return
	}
	f, openErr := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if openErr != nil {
		return
	}
	defer f.Close()

	outcome := "ok"
	if status != 0 {
		outcome = strconv.Itoa(status)
	}
	if err != nil {
		outcome = "error: " + err.Error()
	}
	fmt.Fprintf(f, "%s %s locale=%s chars=%d %s\n%s\n\n",
		time.Now().Format(time.RFC3339), provider, locale, len([]rune(payload)), outcome, payload)
}
