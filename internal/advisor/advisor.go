// Package advisor sends short clips of recent camera frames to an
// external vision model for a form critique. Critique requests are
// best-effort and never block rep counting.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

var (
	// ErrNotConfigured is returned when no critique endpoint is set.
	ErrNotConfigured = errors.New("advisor: no endpoint configured")

	// ErrBusy is returned when a critique request is already in flight.
	ErrBusy = errors.New("advisor: critique already in progress")

	// ErrNoFrames is returned when the frame buffer is empty.
	ErrNoFrames = errors.New("advisor: no buffered frames")
)

// Config holds critique service settings.
type Config struct {
	Endpoint      string
	APIKey        string
	BufferSeconds float64
	FPS           int
}

// Critique is the advisor's verdict on a clip.
type Critique struct {
	Summary string   `json:"summary"`
	Cues    []string `json:"cues,omitempty"`
}

// Client buffers recent frames and requests critiques, one at a time.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger

	mu     sync.Mutex
	frames []string
	head   int
	size   int
	busy   bool
}

// New creates an advisor client with a frame buffer sized for
// BufferSeconds of video at FPS.
func New(cfg Config, log *slog.Logger) *Client {
	capacity := int(cfg.BufferSeconds * float64(cfg.FPS))
	if capacity < 1 {
		capacity = 1
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		log:    log,
		frames: make([]string, capacity),
	}
}

// Configured reports whether a critique endpoint is set.
func (c *Client) Configured() bool {
	return c.cfg.Endpoint != ""
}

// PushFrame records a base64-encoded JPEG frame, evicting the oldest
// when the buffer is full.
func (c *Client) PushFrame(frame string) {
	if frame == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames[c.head] = frame
	c.head = (c.head + 1) % len(c.frames)
	if c.size < len(c.frames) {
		c.size++
	}
}

// BufferedFrames returns the number of frames currently held.
func (c *Client) BufferedFrames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// RequestCritique sends the buffered clip for analysis. Only one
// critique may be in flight at a time; concurrent calls get ErrBusy.
func (c *Client) RequestCritique(ctx context.Context, exercise string) (*Critique, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if c.size == 0 {
		c.mu.Unlock()
		return nil, ErrNoFrames
	}
	c.busy = true
	clip := c.snapshotLocked()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	return c.critique(ctx, exercise, clip)
}

// snapshotLocked copies the buffer oldest-first. Caller holds mu.
func (c *Client) snapshotLocked() []string {
	clip := make([]string, 0, c.size)
	start := c.head - c.size
	if start < 0 {
		start += len(c.frames)
	}
	for i := 0; i < c.size; i++ {
		clip = append(clip, c.frames[(start+i)%len(c.frames)])
	}
	return clip
}

func (c *Client) critique(ctx context.Context, exercise string, clip []string) (*Critique, error) {
	body, err := json.Marshal(map[string]any{
		"exercise": exercise,
		"frames":   clip,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding clip: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling critique service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("critique service returned %d: %s", resp.StatusCode, msg)
	}

	var out Critique
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding critique: %w", err)
	}
	c.log.Info("critique received", "exercise", exercise, "frames", len(clip))
	return &out, nil
}
