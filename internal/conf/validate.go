package conf

import (
	"fmt"
	"time"
)

// ValidateSettings checks settings for values the engine cannot run with.
func ValidateSettings(s *Settings) error {
	if s.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.samplerate must be positive, got %d", s.Audio.SampleRate)
	}
	if s.Audio.Channels < 1 || s.Audio.Channels > 2 {
		return fmt.Errorf("audio.channels must be 1 or 2, got %d", s.Audio.Channels)
	}
	if s.Audio.ChunkFrames <= 0 {
		return fmt.Errorf("audio.chunkframes must be positive, got %d", s.Audio.ChunkFrames)
	}
	if s.Audio.MaxPendingChunks <= 0 {
		return fmt.Errorf("audio.maxpendingchunks must be positive, got %d", s.Audio.MaxPendingChunks)
	}
	if s.Audio.DecodeBackoff <= 0 {
		return fmt.Errorf("audio.decodebackoff must be positive, got %v", s.Audio.DecodeBackoff)
	}
	if s.Audio.CompletionGuard < 0 {
		return fmt.Errorf("audio.completionguard must not be negative, got %v", s.Audio.CompletionGuard)
	}

	if len(s.EQ.BandFrequencies) == 0 {
		return fmt.Errorf("eq.bandfrequencies must not be empty")
	}
	for i, f := range s.EQ.BandFrequencies {
		if f <= 0 || f >= float64(s.Audio.SampleRate)/2 {
			return fmt.Errorf("eq.bandfrequencies[%d]=%g outside (0, nyquist)", i, f)
		}
	}
	if s.EQ.BandWidth <= 0 {
		return fmt.Errorf("eq.bandwidth must be positive, got %g", s.EQ.BandWidth)
	}
	if s.EQ.MinGainDB >= s.EQ.MaxGainDB {
		return fmt.Errorf("eq gain bounds invalid: min %g >= max %g", s.EQ.MinGainDB, s.EQ.MaxGainDB)
	}

	if s.Scope.DataDir == "" {
		return fmt.Errorf("scope.datadir must not be empty")
	}
	if s.Scope.BookmarkDB == "" {
		return fmt.Errorf("scope.bookmarkdb must not be empty")
	}
	return nil
}

// TestSettings returns settings suitable for unit tests: small buffers,
// short waits, no guard interval surprises.
func TestSettings() *Settings {
	return &Settings{
		Main: MainSettings{Name: "test"},
		Audio: AudioSettings{
			SampleRate:       48000,
			Channels:         2,
			ChunkFrames:      256,
			MaxPendingChunks: 4,
			DecodeBackoff:    2 * time.Millisecond,
			CompletionGuard:  50 * time.Millisecond,
		},
		EQ: EQSettings{
			BandFrequencies: []float64{60, 230, 910, 3600, 14000},
			BandWidth:       1.0,
			MinGainDB:       -12,
			MaxGainDB:       12,
		},
		Scope: ScopeSettings{
			DataDir:         ".",
			BookmarkDB:      "file::memory:?cache=shared",
			NormalizeTTLMin: 1,
		},
	}
}
