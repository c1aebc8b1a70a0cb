package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yhkl-dev/tunecli/domain"
	"github.com/yhkl-dev/tunecli/log"
)

const maxErrorBody = 4 << 10

// Options configures the HTTP client
type Options struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 for unlimited
	UserAgent string
}

// Client is the HTTP implementation of Catalog
type Client struct {
	base       *url.URL
	token      string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logrus.Entry
}

var _ Catalog = (*Client)(nil)

// NewClient creates a catalog client for opts.BaseURL
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("catalog url %q is not absolute", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "tunecli"
	}

	return &Client{
		base:       base,
		token:      opts.Token,
		userAgent:  opts.UserAgent,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		log:        log.Component("catalog").WithField("base", base.String()),
	}, nil
}

// HasToken reports whether user endpoints can be called
func (c *Client) HasToken() bool {
	return c.token != ""
}

// Tracks fetches the ordered track list. Invalid entries are dropped and
// duplicate ids keep their first occurrence.
func (c *Client) Tracks(ctx context.Context) ([]domain.Track, error) {
	var songs []songDTO
	if err := c.do(ctx, http.MethodGet, "api/songs", nil, &songs); err != nil {
		return nil, err
	}

	tracks := make([]domain.Track, 0, len(songs))
	for _, s := range songs {
		t := s.toTrack(c.base)
		if err := t.Validate(); err != nil {
			c.log.WithError(err).Warn("dropping catalog entry")
			continue
		}
		tracks = append(tracks, t)
	}
	unique := lo.UniqBy(tracks, func(t domain.Track) string { return t.ID })
	if dropped := len(tracks) - len(unique); dropped > 0 {
		c.log.Warnf("dropped %d duplicate catalog entries", dropped)
	}
	return unique, nil
}

// NotifyPlay increments the play count of trackID
func (c *Client) NotifyPlay(ctx context.Context, trackID string) error {
	return c.do(ctx, http.MethodPatch, "api/songs/"+url.PathEscape(trackID)+"/play", nil, nil)
}

// Liked returns the ids of the signed-in user's liked tracks
func (c *Client) Liked(ctx context.Context) ([]string, error) {
	if !c.HasToken() {
		return nil, ErrNoToken
	}
	var refs []likedRef
	if err := c.do(ctx, http.MethodGet, "api/user/liked", nil, &refs); err != nil {
		return nil, err
	}
	ids := lo.FilterMap(refs, func(r likedRef, _ int) (string, bool) {
		return string(r), r != ""
	})
	return lo.Uniq(ids), nil
}

func (c *Client) Like(ctx context.Context, trackID string) error {
	if !c.HasToken() {
		return ErrNoToken
	}
	return c.do(ctx, http.MethodPost, "api/user/like", likeRequest{SongID: trackID}, nil)
}

func (c *Client) Unlike(ctx context.Context, trackID string) error {
	if !c.HasToken() {
		return ErrNoToken
	}
	return c.do(ctx, http.MethodPost, "api/user/unlike", likeRequest{SongID: trackID}, nil)
}

// Playlists returns the signed-in user's playlists
func (c *Client) Playlists(ctx context.Context) ([]Playlist, error) {
	if !c.HasToken() {
		return nil, ErrNoToken
	}
	var dtos []playlistDTO
	if err := c.do(ctx, http.MethodGet, "api/playlist/my-playlists", nil, &dtos); err != nil {
		return nil, err
	}
	return lo.FilterMap(dtos, func(d playlistDTO, _ int) (Playlist, bool) {
		p := d.toPlaylist(c.base)
		return p, p.ID != ""
	}), nil
}

// Playlist fetches one playlist with its entries
func (c *Client) Playlist(ctx context.Context, id string) (Playlist, error) {
	var dto playlistDTO
	if err := c.do(ctx, http.MethodGet, "api/playlist/"+url.PathEscape(id), nil, &dto); err != nil {
		return Playlist{}, err
	}
	return dto.toPlaylist(c.base), nil
}

// do sends one rate limited JSON request
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	// path is already escaped
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("parse path %q: %w", path, err)
	}
	endpoint := c.base.ResolveReference(ref)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	entry := c.log.WithFields(logrus.Fields{"method": method, "path": endpoint.Path, "request": requestID})
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		entry.WithError(err).Debug("request failed")
		return fmt.Errorf("%s %s: %w", method, endpoint.Path, err)
	}
	defer resp.Body.Close()
	entry.WithField("status", resp.StatusCode).Debugf("done in %s", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Method: method, Path: endpoint.Path, Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			apiErr.Message = eb.Message
		}
		return apiErr
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint.Path, err)
	}
	return nil
}
