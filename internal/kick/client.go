// Package kick fetches channel liveness from the public kick.com
// channel endpoints and normalizes the two payload generations into
// one Streamer shape.
package kick

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/CapOVH/dasssb/internal/apperror"
	"github.com/CapOVH/dasssb/internal/model"
)

const (
	attempts       = 3
	initialBackoff = 500 * time.Millisecond
)

type Client struct {
	v2Base string
	v1Base string
	http   *http.Client
	logger *slog.Logger
	sleep  func(time.Duration)
}

func NewClient(v2Base, v1Base string, logger *slog.Logger) *Client {
	return &Client{
		v2Base: strings.TrimRight(v2Base, "/"),
		v1Base: strings.TrimRight(v1Base, "/"),
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		sleep:  time.Sleep,
	}
}

// SetSleep overrides the inter-attempt delay. Tests only.
func (c *Client) SetSleep(fn func(time.Duration)) {
	c.sleep = fn
}

// channelPayload covers both API generations. Profile picture and
// follower count moved fields between them, so every known spelling is
// mapped and the first non-empty one wins.
type channelPayload struct {
	User struct {
		Username    string `json:"username"`
		ProfilePic  string `json:"profile_pic"`
		ProfilePic2 string `json:"profilepic"`
		Avatar      string `json:"avatar"`
	} `json:"user"`
	FollowersCount int `json:"followers_count"`
	Followers      int `json:"followersCount"`
	Livestream     *struct {
		ViewerCount  int    `json:"viewer_count"`
		Viewers      int    `json:"viewers"`
		SessionTitle string `json:"session_title"`
		Thumbnail    struct {
			URL string `json:"url"`
		} `json:"thumbnail"`
		Categories []struct {
			Name string `json:"name"`
		} `json:"categories"`
	} `json:"livestream"`
}

// Channel fetches one slug. Each of the three attempts tries the v2
// endpoint first and falls back to v1; attempts are separated by a
// doubling backoff starting at 500ms. The context is checked between
// attempts, not mid-request.
func (c *Client) Channel(ctx context.Context, slug string) (model.Streamer, error) {
	backoff := initialBackoff
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.sleep(backoff)
			backoff *= 2
		}
		if err := ctx.Err(); err != nil {
			return model.Streamer{}, err
		}

		for _, base := range []string{c.v2Base, c.v1Base} {
			payload, err := c.fetch(ctx, base+"/"+slug)
			if err != nil {
				lastErr = err
				continue
			}
			return normalize(payload, slug), nil
		}
	}

	return model.Streamer{}, apperror.Upstream("kick", fmt.Errorf("channel %s: %w", slug, lastErr))
}

func (c *Client) fetch(ctx context.Context, url string) (channelPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return channelPayload{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return channelPayload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return channelPayload{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var payload channelPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return channelPayload{}, fmt.Errorf("decoding payload: %w", err)
	}
	return payload, nil
}

func normalize(p channelPayload, slug string) model.Streamer {
	s := model.Streamer{
		Name:   p.User.Username,
		Slug:   slug,
		Status: model.StatusOffline,
	}
	if s.Name == "" {
		s.Name = slug
	}

	s.Image = firstNonEmpty(p.User.ProfilePic, p.User.ProfilePic2, p.User.Avatar)

	s.Followers = p.FollowersCount
	if s.Followers == 0 {
		s.Followers = p.Followers
	}

	if live := p.Livestream; live != nil {
		s.Status = model.StatusOnline
		s.Viewers = live.ViewerCount
		if s.Viewers == 0 {
			s.Viewers = live.Viewers
		}
		s.Title = live.SessionTitle
		s.Thumbnail = expandThumbnail(live.Thumbnail.URL)
		if len(live.Categories) > 0 {
			s.Category = live.Categories[0].Name
		}
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// expandThumbnail fills the size placeholders some payloads carry in
// the thumbnail URL template.
func expandThumbnail(url string) string {
	url = strings.ReplaceAll(url, "{width}", "640")
	return strings.ReplaceAll(url, "{height}", "360")
}

// Offline is the degraded roster entry used when the feed cannot be
// reached: present, named by slug and marked offline so the grid still
// renders.
func Offline(slug string) model.Streamer {
	return model.Streamer{Name: slug, Slug: slug, Status: model.StatusOffline}
}

// Snapshot fetches every roster slug concurrently. Failures degrade to
// offline entries instead of erroring, so a roster refresh never
// blocks rendering. Order follows the input slugs.
func (c *Client) Snapshot(ctx context.Context, slugs []string) []model.Streamer {
	out := make([]model.Streamer, len(slugs))
	var wg sync.WaitGroup
	for i, slug := range slugs {
		wg.Add(1)
		go func(i int, slug string) {
			defer wg.Done()
			s, err := c.Channel(ctx, slug)
			if err != nil {
				c.logger.Warn("channel fetch failed, degrading to offline",
					slog.String("slug", slug), slog.String("error", err.Error()))
				s = Offline(slug)
			}
			out[i] = s
		}(i, slug)
	}
	wg.Wait()
	return out
}
