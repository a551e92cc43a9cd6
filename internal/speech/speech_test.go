package speech

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCache is an in-memory Cache for tests.
type fakeCache struct {
	entries map[string][]byte
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) GetAudio(ctx context.Context, textHash string) ([]byte, bool, error) {
	audio, ok := c.entries[textHash]
	return audio, ok, nil
}

func (c *fakeCache) PutAudio(ctx context.Context, textHash, text string, audio []byte) error {
	c.entries[textHash] = audio
	c.puts++
	return nil
}

// TestNormalizeText verifies canonicalization of coaching cues.
func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Good rep!", "good rep"},
		{"  Keep   your chest UP! ", "keep your chest up"},
		{"Don't round your back", "dont round your back"},
		{"Rep #3 done", "rep 3 done"},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := NormalizeText(tc.in); got != tc.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// TestCacheKeyStable verifies that equivalent phrasings share one key.
func TestCacheKeyStable(t *testing.T) {
	a := CacheKey(NormalizeText("Good rep!"))
	b := CacheKey(NormalizeText("  good   REP "))
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
	if a == CacheKey(NormalizeText("Squat deeper")) {
		t.Error("distinct cues must not collide")
	}
}

// TestSynthesizeNotConfigured verifies the typed error when no API key
// is set.
func TestSynthesizeNotConfigured(t *testing.T) {
	c := New(Config{}, nil, testLogger())
	if _, err := c.Synthesize(context.Background(), "Good rep!"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}

// TestSynthesizeCacheHit verifies that a cached cue never reaches the
// TTS service.
func TestSynthesizeCacheHit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request to TTS service")
	}))
	defer srv.Close()

	cache := newFakeCache()
	cache.entries[CacheKey(NormalizeText("Good rep!"))] = []byte("cached-audio")

	c := New(Config{APIKey: "k", VoiceID: "v", BaseURL: srv.URL}, cache, testLogger())
	audio, err := c.Synthesize(context.Background(), "Good rep!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(audio) != "cached-audio" {
		t.Errorf("audio = %q, want cached entry", audio)
	}
}

// TestSynthesizeMissFillsCache verifies the service round trip and that
// the result is stored for next time.
func TestSynthesizeMissFillsCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "k" {
			t.Errorf("api key header = %q, want k", got)
		}
		w.Write([]byte("fresh-audio"))
	}))
	defer srv.Close()

	cache := newFakeCache()
	c := New(Config{APIKey: "k", VoiceID: "v", BaseURL: srv.URL}, cache, testLogger())

	audio, err := c.Synthesize(context.Background(), "Squat deeper")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(audio) != "fresh-audio" {
		t.Errorf("audio = %q", audio)
	}
	if cache.puts != 1 {
		t.Errorf("cache puts = %d, want 1", cache.puts)
	}
}

// TestSynthesizeServiceError verifies that non-200 responses surface as
// errors and nothing is cached.
func TestSynthesizeServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cache := newFakeCache()
	c := New(Config{APIKey: "k", VoiceID: "v", BaseURL: srv.URL}, cache, testLogger())

	if _, err := c.Synthesize(context.Background(), "Good rep!"); err == nil {
		t.Error("expected error for service failure")
	}
	if cache.puts != 0 {
		t.Errorf("cache puts = %d, want 0 on failure", cache.puts)
	}
}

// TestSynthesizeEmptyText verifies rejection of cues that normalize to
// nothing.
func TestSynthesizeEmptyText(t *testing.T) {
	c := New(Config{APIKey: "k"}, nil, testLogger())
	if _, err := c.Synthesize(context.Background(), "!!!"); err == nil {
		t.Error("expected error for empty normalized text")
	}
}
