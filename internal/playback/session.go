// Package playback is the top-level state machine: it owns the current
// track identity, sequences scope-open, decode-start and transport
// scheduling, and delivers completion events only for the session that is
// still current.
package playback

import (
	"time"

	"github.com/google/uuid"
)

// Session identifies one logical "now playing" attempt. A new Play call
// supersedes the previous session; completion signals carrying a
// superseded id are dropped.
type Session struct {
	ID          string
	TrackPath   string
	TotalFrames int64

	// StartedAt anchors the spurious-completion guard. Seek re-arms it
	// because a transport restart can emit the same early signals as a
	// fresh start.
	StartedAt time.Time
}

// NewSession creates a session for the given track.
func NewSession(trackPath string, totalFrames int64) *Session {
	return &Session{
		ID:          uuid.New().String(),
		TrackPath:   trackPath,
		TotalFrames: totalFrames,
		StartedAt:   time.Now(),
	}
}

// Age returns the time since the session (or its last seek) started.
func (s *Session) Age() time.Duration {
	return time.Since(s.StartedAt)
}
