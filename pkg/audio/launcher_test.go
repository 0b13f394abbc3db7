package audio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	mu       sync.Mutex
	played   []string
	contents []string
	err      error
	done     []func()
}

func (f *fakePlayer) Play(path string, onComplete func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	data, _ := os.ReadFile(path)
	f.played = append(f.played, path)
	f.contents = append(f.contents, string(data))
	f.done = append(f.done, onComplete)
	return nil
}

func (f *fakePlayer) Stop()        {}
func (f *fakePlayer) IsBusy() bool { return false }

func TestLauncher_OpenHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/uploads/oc-oanh.mp3" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ID3fake"))
	}))
	defer srv.Close()

	p := &fakePlayer{}
	dir := t.TempDir()
	l := NewLauncher(p, srv.Client(), dir)

	require.NoError(t, l.Open(context.Background(), srv.URL+"/uploads/oc-oanh.mp3"))
	require.Len(t, p.played, 1)
	assert.Equal(t, "ID3fake", p.contents[0])
	assert.True(t, strings.HasSuffix(p.played[0], ".mp3"))
	assert.Equal(t, dir, filepath.Dir(p.played[0]))

	// Completion removes the scratch file
	require.NotNil(t, p.done[0])
	p.done[0]()
	_, err := os.Stat(p.played[0])
	assert.True(t, os.IsNotExist(err))
}

func TestLauncher_OpenErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	tests := []struct {
		name string
		url  string
	}{
		{name: "Empty", url: "  "},
		{name: "Not Found", url: srv.URL + "/uploads/missing.mp3"},
		{name: "Unsupported Scheme", url: "ftp://example.com/a.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePlayer{}
			l := NewLauncher(p, srv.Client(), t.TempDir())
			assert.Error(t, l.Open(context.Background(), tt.url))
			assert.Empty(t, p.played)
		})
	}
}

func TestLauncher_OpenLocalPath(t *testing.T) {
	clip := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(clip, []byte("RIFF"), 0o644))

	p := &fakePlayer{}
	l := NewLauncher(p, nil, t.TempDir())

	require.NoError(t, l.Open(context.Background(), clip))
	assert.Equal(t, []string{clip}, p.played)
	assert.Nil(t, p.done[0], "local files are not cleaned up")
}

func TestLauncher_PlayerError(t *testing.T) {
	clip := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(clip, []byte("x"), 0o644))

	p := &fakePlayer{err: errors.New("no speaker")}
	l := NewLauncher(p, nil, t.TempDir())

	assert.ErrorContains(t, l.Open(context.Background(), clip), "no speaker")
}

func TestLauncher_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakePlayer{}
	l := NewLauncher(p, srv.Client(), t.TempDir())
	err := l.Open(ctx, srv.URL+"/a.mp3")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.played)
}
