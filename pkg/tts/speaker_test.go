package tts

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodstreet/pkg/tracker"
)

type fakeProvider struct {
	mu         sync.Mutex
	calls      []Request
	err        error
	voicesErr  error // returned by the first Voices call only
	voiceCalls int
}

func (f *fakeProvider) Synthesize(ctx context.Context, req Request, outputPath string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "mp3", os.WriteFile(outputPath+".mp3", make([]byte, MinAudioSize+64), 0o644)
}

func (f *fakeProvider) Voices(ctx context.Context) ([]Voice, error) {
	f.mu.Lock()
	f.voiceCalls++
	first := f.voiceCalls == 1
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if first && f.voicesErr != nil {
		return nil, f.voicesErr
	}
	return []Voice{{ID: "vi-VN-HoaiMyNeural", Language: "vi-VN"}}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakePlayer finishes immediately unless hold is set.
type fakePlayer struct {
	mu      sync.Mutex
	hold    bool
	busy    bool
	played  []string
	stopped int
	seen    []bool // whether the file existed at Play time
}

func (p *fakePlayer) Play(path string, onComplete func()) error {
	_, err := os.Stat(path)
	p.mu.Lock()
	p.played = append(p.played, path)
	p.seen = append(p.seen, err == nil)
	p.busy = true
	hold := p.hold
	p.mu.Unlock()
	if !hold {
		go func() {
			p.mu.Lock()
			p.busy = false
			p.mu.Unlock()
			onComplete()
		}()
	}
	return nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped++
	p.busy = false
}

func (p *fakePlayer) IsBusy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy
}

type memCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (c *memCache) GetCache(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *memCache) SetCache(ctx context.Context, key string, val []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = make(map[string][]byte)
	}
	c.m[key] = val
	return nil
}

func TestSpeaker_SpeakPlaysAndCleansUp(t *testing.T) {
	prov := &fakeProvider{}
	player := &fakePlayer{}
	s := NewSpeaker(prov, player, SpeakerOptions{ScratchDir: t.TempDir()})

	err := s.Speak(context.Background(), "<p>Ốc Oanh</p>", "vi-VN", 1.08, 1.0)
	require.NoError(t, err)

	require.Len(t, prov.calls, 1)
	assert.Equal(t, "Ốc Oanh", prov.calls[0].Text)
	assert.Equal(t, "vi-VN-HoaiMyNeural", prov.calls[0].Voice)
	assert.InDelta(t, 1.08, prov.calls[0].Rate, 1e-9)

	require.Len(t, player.played, 1)
	assert.True(t, player.seen[0], "file should exist while playing")
	_, statErr := os.Stat(player.played[0])
	assert.True(t, os.IsNotExist(statErr), "scratch file should be removed after playback")
}

func TestSpeaker_CacheHitSkipsSynthesis(t *testing.T) {
	prov := &fakeProvider{}
	tr := tracker.New()
	cache := &memCache{}
	s := NewSpeaker(prov, &fakePlayer{}, SpeakerOptions{
		Name:       "edge-tts",
		Cache:      cache,
		Tracker:    tr,
		ScratchDir: t.TempDir(),
	})

	ctx := context.Background()
	require.NoError(t, s.Speak(ctx, "Xin chào", "vi-VN", 1.08, 1.0))
	require.NoError(t, s.Speak(ctx, "Xin chào", "vi-VN", 1.08, 1.0))
	assert.Equal(t, 1, prov.callCount())

	// A different rate is a different clip.
	require.NoError(t, s.Speak(ctx, "Xin chào", "vi-VN", 1.2, 1.0))
	assert.Equal(t, 2, prov.callCount())

	st := tr.Snapshot()["edge-tts"]
	assert.Equal(t, int64(1), st.CacheHits)
	assert.Equal(t, int64(2), st.CacheMisses)
}

func TestSpeaker_CancelStopsPlayback(t *testing.T) {
	player := &fakePlayer{hold: true}
	s := NewSpeaker(&fakeProvider{}, player, SpeakerOptions{ScratchDir: t.TempDir()})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Speak(ctx, "Xin chào", "vi-VN", 1, 1) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Speak did not return after cancel")
	}
	player.mu.Lock()
	defer player.mu.Unlock()
	assert.Equal(t, 1, player.stopped)
}

func TestSpeaker_Errors(t *testing.T) {
	s := NewSpeaker(&fakeProvider{err: errors.New("boom")}, &fakePlayer{}, SpeakerOptions{ScratchDir: t.TempDir()})

	err := s.Speak(context.Background(), "  ", "vi-VN", 1, 1)
	assert.ErrorIs(t, err, ErrEmptyText)

	err = s.Speak(context.Background(), "hello", "fr-FR", 1, 1)
	assert.Error(t, err, "no voice for locale")

	err = s.Speak(context.Background(), "xin chào", "vi-VN", 1, 1)
	assert.ErrorContains(t, err, "boom")
}

func TestCacheKey_Distinct(t *testing.T) {
	base := Request{Text: "a", Voice: "v", Locale: "vi-VN", Rate: 1, Pitch: 1}
	other := base
	other.Locale = "en-US"
	assert.NotEqual(t, CacheKey(base), CacheKey(other))
	assert.Equal(t, CacheKey(base), CacheKey(base))
}

func TestBlobRoundTrip(t *testing.T) {
	data := make([]byte, MinAudioSize)
	format, got, ok := splitBlob(joinBlob("wav", data))
	require.True(t, ok)
	assert.Equal(t, "wav", format)
	assert.Len(t, got, MinAudioSize)

	_, _, ok = splitBlob([]byte("garbage"))
	assert.False(t, ok)
}

func TestSpeaker_VoicesSurviveCancelledCaller(t *testing.T) {
	prov := &fakeProvider{}
	s := NewSpeaker(prov, &fakePlayer{}, SpeakerOptions{ScratchDir: t.TempDir()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := s.voices(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "vi-VN-HoaiMyNeural", got[0].ID)

	s.voices(context.Background())
	assert.Equal(t, 1, prov.voiceCalls, "a loaded list is reused")
}

func TestSpeaker_VoicesRetryAfterFailure(t *testing.T) {
	prov := &fakeProvider{voicesErr: errors.New("503 from voice list")}
	s := NewSpeaker(prov, &fakePlayer{}, SpeakerOptions{ScratchDir: t.TempDir()})

	assert.Empty(t, s.voices(context.Background()))
	assert.Len(t, s.voices(context.Background()), 1)
	assert.Equal(t, 2, prov.voiceCalls)
}
