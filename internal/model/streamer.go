package model

type StreamStatus string

const (
	StatusOnline  StreamStatus = "online"
	StatusOffline StreamStatus = "offline"
)

// Streamer is the normalized view of one roster entry, produced by the
// liveness feed client. A feed failure degrades to an offline Streamer
// rather than an absent one, so the grid always renders a full roster.
type Streamer struct {
	Name      string       `json:"name"`
	Slug      string       `json:"slug"`
	Viewers   int          `json:"viewers"`
	Image     string       `json:"image"`
	Thumbnail string       `json:"thumbnail"`
	Status    StreamStatus `json:"status"`
	Title     string       `json:"title,omitempty"`
	Category  string       `json:"category,omitempty"`
	Followers int          `json:"followers,omitempty"`
}

func (s Streamer) Live() bool {
	return s.Status == StatusOnline
}
