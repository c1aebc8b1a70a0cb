// Package coverart renders track thumbnails as ASCII art for the player bar.
package coverart

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"sync"
	"time"

	"github.com/qeesung/image2ascii/convert"
)

const (
	DefaultWidth  = 25
	DefaultHeight = 12
)

// Converter handles thumbnail conversion to ASCII
type Converter struct {
	httpClient *http.Client
	converter  *convert.ImageConverter
	width      int
	height     int

	mux   sync.Mutex
	cache map[string]string
}

// NewConverter creates a new cover art converter
func NewConverter(timeout time.Duration) *Converter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Converter{
		httpClient: &http.Client{Timeout: timeout},
		converter:  convert.NewImageConverter(),
		width:      DefaultWidth,
		height:     DefaultHeight,
		cache:      make(map[string]string),
	}
}

// SetSize changes the rendered size; cached renders are dropped
func (c *Converter) SetSize(width, height int) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if width == c.width && height == c.height {
		return
	}
	c.width, c.height = width, height
	clear(c.cache)
}

// ConvertFromURL downloads and converts an image URL to ASCII art. On
// failure the placeholder is returned together with the error.
func (c *Converter) ConvertFromURL(ctx context.Context, url string) (string, error) {
	if url == "" {
		return Placeholder(), nil
	}

	c.mux.Lock()
	cached, ok := c.cache[url]
	width, height := c.width, c.height
	c.mux.Unlock()
	if ok {
		return cached, nil
	}

	img, err := c.fetch(ctx, url)
	if err != nil {
		return Placeholder(), err
	}

	opts := convert.DefaultOptions
	opts.FixedWidth = width
	opts.FixedHeight = height
	opts.Colored = false // ANSI colors break tview
	ascii := c.converter.Image2ASCIIString(img, &opts)

	c.mux.Lock()
	c.cache[url] = ascii
	c.mux.Unlock()
	return ascii, nil
}

func (c *Converter) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}
	return img, nil
}

// Placeholder is shown when a track has no usable thumbnail
func Placeholder() string {
	return `[darkgray]┌───────────────────────┐
[darkgray]│                       │
[darkgray]│                       │
[darkgray]│        ♫  ♪  ♫        │
[darkgray]│     No Cover Art      │
[darkgray]│        ♫  ♪  ♫        │
[darkgray]│                       │
[darkgray]│                       │
[darkgray]└───────────────────────┘`
}
