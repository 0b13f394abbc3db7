package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// maxDownloadBytes caps a single pre-recorded clip.
const maxDownloadBytes = 50 << 20

// Launcher hands a pre-recorded audio URL over to the local player.
// Open returns once playback has started; it does not wait for the clip to finish.
type Launcher struct {
	player  Player
	client  *http.Client
	tempDir string
}

// NewLauncher creates a launcher that downloads clips into tempDir.
func NewLauncher(p Player, client *http.Client, tempDir string) *Launcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Launcher{player: p, client: client, tempDir: tempDir}
}

// Open fetches the resource behind rawURL and starts playing it.
// http(s) URLs are downloaded to a scratch file, file:// URLs and plain paths play in place.
func (l *Launcher) Open(ctx context.Context, rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return fmt.Errorf("empty audio url")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid audio url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		local, err := l.download(ctx, u)
		if err != nil {
			return err
		}
		return l.player.Play(local, func() { removeQuietly(local) })
	case "file":
		return l.player.Play(u.Path, nil)
	case "":
		return l.player.Play(rawURL, nil)
	default:
		return fmt.Errorf("unsupported audio url scheme %q", u.Scheme)
	}
}

func (l *Launcher) download(ctx context.Context, u *url.URL) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return "", err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch audio: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(l.tempDir, 0o755); err != nil {
		return "", err
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext != ".wav" {
		ext = ".mp3"
	}
	f, err := os.CreateTemp(l.tempDir, "clip-*"+ext)
	if err != nil {
		return "", err
	}

	n, err := io.Copy(f, io.LimitReader(resp.Body, maxDownloadBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > maxDownloadBytes {
		err = fmt.Errorf("audio exceeds %d bytes", maxDownloadBytes)
	}
	if err != nil {
		removeQuietly(f.Name())
		return "", fmt.Errorf("save audio: %w", err)
	}

	slog.Debug("Audio: downloaded clip", "url", u.String(), "bytes", n, "path", filepath.Base(f.Name()))
	return f.Name(), nil
}

func removeQuietly(p string) {
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		slog.Warn("Audio: failed to remove scratch file", "path", p, "error", err)
	}
}
