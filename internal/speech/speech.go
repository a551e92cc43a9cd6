// Package speech synthesizes coaching cues to audio via an external TTS
// service, with a persistent cache keyed by normalized text. Feedback
// messages repeat constantly during a workout, so nearly every request
// after warm-up is a cache hit.
package speech

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"
)

// ErrNotConfigured is returned when no TTS API key is set.
var ErrNotConfigured = errors.New("speech: no API key configured")

// Cache persists synthesized audio across restarts.
type Cache interface {
	GetAudio(ctx context.Context, textHash string) ([]byte, bool, error)
	PutAudio(ctx context.Context, textHash, text string, audio []byte) error
}

// Config holds TTS service settings.
type Config struct {
	APIKey       string
	VoiceID      string
	ModelID      string
	OutputFormat string
	BaseURL      string
}

// Client calls the TTS service and caches results.
type Client struct {
	cfg   Config
	cache Cache
	http  *http.Client
	log   *slog.Logger
}

// New creates a speech client. cache may be nil, in which case every
// request hits the service.
func New(cfg Config, cache Cache, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	return &Client{
		cfg:   cfg,
		cache: cache,
		http:  &http.Client{Timeout: 15 * time.Second},
		log:   log,
	}
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Synthesize returns audio for the given text, from cache when possible.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	norm := NormalizeText(text)
	if norm == "" {
		return nil, fmt.Errorf("speech: empty text")
	}
	key := CacheKey(norm)

	if c.cache != nil {
		audio, ok, err := c.cache.GetAudio(ctx, key)
		if err != nil {
			c.log.Warn("speech cache lookup failed", "error", err)
		} else if ok {
			return audio, nil
		}
	}

	audio, err := c.synthesize(ctx, text)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.PutAudio(ctx, key, norm, audio); err != nil {
			c.log.Warn("speech cache store failed", "error", err)
		}
	}
	return audio, nil
}

func (c *Client) synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{
		"text":     text,
		"model_id": c.cfg.ModelID,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		c.cfg.BaseURL, c.cfg.VoiceID, c.cfg.OutputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling TTS service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("TTS service returned %d: %s", resp.StatusCode, msg)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	return audio, nil
}

// NormalizeText canonicalizes a cue for cache lookup: lowercase, ASCII
// letters/digits/spaces only, collapsed whitespace.
func NormalizeText(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// CacheKey returns the cache key for normalized text.
func CacheKey(normalized string) string {
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
