package kick

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CapOVH/dasssb/internal/apperror"
	"github.com/CapOVH/dasssb/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// noSleep replaces the backoff delay and records what was requested.
func noSleep(delays *[]time.Duration) func(time.Duration) {
	return func(d time.Duration) { *delays = append(*delays, d) }
}

const onlinePayload = `{
	"user": {"username": "Cheesur", "profile_pic": "pic.png"},
	"followers_count": 1234,
	"livestream": {
		"viewer_count": 500,
		"session_title": "big stream",
		"thumbnail": {"url": "https://cdn.example/{width}x{height}/thumb.jpg"},
		"categories": [{"name": "Just Chatting"}]
	}
}`

func TestChannel_NormalizesOnlinePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(onlinePayload))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, testLogger())

	s, err := c.Channel(context.Background(), "cheesur")
	require.NoError(t, err)

	assert.Equal(t, "Cheesur", s.Name)
	assert.Equal(t, "cheesur", s.Slug)
	assert.Equal(t, model.StatusOnline, s.Status)
	assert.Equal(t, 500, s.Viewers)
	assert.Equal(t, "pic.png", s.Image)
	assert.Equal(t, 1234, s.Followers)
	assert.Equal(t, "big stream", s.Title)
	assert.Equal(t, "Just Chatting", s.Category)
	assert.Equal(t, "https://cdn.example/640x360/thumb.jpg", s.Thumbnail, "size placeholders expanded")
}

func TestChannel_NullLivestreamIsOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user": {"username": "Sleepy"}, "livestream": null}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, testLogger())

	s, err := c.Channel(context.Background(), "sleepy")
	require.NoError(t, err)
	assert.Equal(t, model.StatusOffline, s.Status)
	assert.Zero(t, s.Viewers)
}

func TestChannel_LegacyFieldSpellings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"user": {"username": "OldSchool", "avatar": "avatar.png"},
			"followersCount": 77,
			"livestream": {"viewers": 42}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, testLogger())

	s, err := c.Channel(context.Background(), "oldschool")
	require.NoError(t, err)
	assert.Equal(t, "avatar.png", s.Image, "avatar is the last-resort image field")
	assert.Equal(t, 77, s.Followers)
	assert.Equal(t, 42, s.Viewers)
}

func TestChannel_FallsBackToV1(t *testing.T) {
	v2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer v2.Close()
	v1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(onlinePayload))
	}))
	defer v1.Close()

	c := NewClient(v2.URL, v1.URL, testLogger())

	s, err := c.Channel(context.Background(), "cheesur")
	require.NoError(t, err)
	assert.Equal(t, model.StatusOnline, s.Status, "v1 fallback should serve the payload")
}

func TestChannel_RetriesWithDoublingBackoff(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "flaky", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, testLogger())
	var delays []time.Duration
	c.SetSleep(noSleep(&delays))

	_, err := c.Channel(context.Background(), "cheesur")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUpstream))

	// 3 attempts x 2 endpoints each.
	assert.Equal(t, int32(6), hits.Load())
	require.Len(t, delays, 2)
	assert.Equal(t, 500*time.Millisecond, delays[0])
	assert.Equal(t, 1000*time.Millisecond, delays[1])
}

func TestChannel_CanceledContextStopsRetrying(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "flaky", http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())

	c := NewClient(srv.URL, srv.URL, testLogger())
	c.SetSleep(func(time.Duration) { cancel() })

	_, err := c.Channel(ctx, "cheesur")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSnapshot_DegradesFailuresToOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cheesur" {
			w.Write([]byte(onlinePayload))
			return
		}
		http.Error(w, "unknown", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, testLogger())
	c.SetSleep(func(time.Duration) {})

	got := c.Snapshot(context.Background(), []string{"cheesur", "ghost"})

	require.Len(t, got, 2)
	assert.Equal(t, model.StatusOnline, got[0].Status)
	assert.Equal(t, "ghost", got[1].Slug)
	assert.Equal(t, model.StatusOffline, got[1].Status, "failed fetch degrades, never errors")
}
