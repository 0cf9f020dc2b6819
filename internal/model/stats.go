package model

import "time"

// UsageStats accumulates one user's time on site. Written by the watch
// tracker; read-only from the admin console's perspective.
type UsageStats struct {
	TotalTimeMs  int64            `json:"totalTimeMs"`
	WatchHistory map[string]int64 `json:"watchHistory"` // streamer slug -> millis
	LastActive   int64            `json:"lastActive"`
}

// ActiveWithin reports whether the user was seen inside the trailing
// window ending at now.
func (s UsageStats) ActiveWithin(window time.Duration, now time.Time) bool {
	return now.UnixMilli()-s.LastActive < window.Milliseconds()
}

// StatsMap keys UsageStats by username.
type StatsMap map[string]UsageStats

func DecodeStats(raw string, present bool) StatsMap {
	m, ok := decode[StatsMap](raw, present)
	if !ok {
		return StatsMap{}
	}
	return m
}

// LogEntry is one line of the moderation/AI activity feed shown in the
// admin console.
type LogEntry struct {
	ID      int64  `json:"id"`
	Time    string `json:"time"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Type    string `json:"type"` // info | warning | error
}

func DecodeLog(raw string, present bool) []LogEntry {
	l, ok := decode[[]LogEntry](raw, present)
	if !ok {
		return nil
	}
	return l
}
