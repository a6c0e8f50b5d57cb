package equalizer

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/soundvault/soundvault-go/internal/errors"
)

// bank is an immutable snapshot of the active filter set plus the gains
// that produced it. SetGains swaps in a fresh bank; the render path loads
// it with a single atomic read.
type bank struct {
	filters []*Filter
	gains   []float64
}

// BandEQ is a fixed-band graphic equalizer. Bands with zero gain are
// skipped entirely. Process is called from the render callback and never
// takes the setter lock.
type BandEQ struct {
	sampleRate int
	channels   int
	freqs      []float64
	width      float64
	minGainDB  float64
	maxGainDB  float64

	mu     sync.Mutex
	active atomic.Pointer[bank]
}

// Config carries the EQ layout. Frequencies must be strictly increasing
// and below Nyquist.
type Config struct {
	SampleRate int
	Channels   int
	Bands      []float64
	BandWidth  float64
	MinGainDB  float64
	MaxGainDB  float64
}

// New builds a flat BandEQ for the given layout.
func New(cfg Config) (*BandEQ, error) {
	if cfg.SampleRate <= 0 || cfg.Channels < 1 {
		return nil, errors.Newf("invalid EQ format: rate %d, channels %d", cfg.SampleRate, cfg.Channels).
			Component(errors.ComponentRender).
			Category(errors.CategoryValidation).
			Build()
	}
	if len(cfg.Bands) == 0 {
		return nil, errors.NewStd("at least one EQ band is required")
	}
	nyquist := float64(cfg.SampleRate) / 2
	for i, f := range cfg.Bands {
		if f <= 0 || f >= nyquist {
			return nil, errors.Newf("band %d at %.1f Hz outside (0, %.1f)", i, f, nyquist).
				Component(errors.ComponentRender).
				Category(errors.CategoryValidation).
				Build()
		}
		if i > 0 && f <= cfg.Bands[i-1] {
			return nil, errors.NewStd("band frequencies must be strictly increasing")
		}
	}
	if cfg.BandWidth <= 0 {
		cfg.BandWidth = 1.0
	}
	if cfg.MinGainDB >= cfg.MaxGainDB {
		return nil, errors.NewStd("gain range is empty")
	}

	eq := &BandEQ{
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		freqs:      append([]float64(nil), cfg.Bands...),
		width:      cfg.BandWidth,
		minGainDB:  cfg.MinGainDB,
		maxGainDB:  cfg.MaxGainDB,
	}
	eq.active.Store(&bank{gains: make([]float64, len(cfg.Bands))})
	return eq, nil
}

// Bands returns the band center frequencies.
func (eq *BandEQ) Bands() []float64 {
	return append([]float64(nil), eq.freqs...)
}

// Gains returns the currently applied per-band gains in dB.
func (eq *BandEQ) Gains() []float64 {
	b := eq.active.Load()
	return append([]float64(nil), b.gains...)
}

// SetGains replaces the per-band gains, clamping each to the configured
// range. The slice length must match the band count. Filter state starts
// fresh, which is inaudible at chunk boundaries.
func (eq *BandEQ) SetGains(gains []float64) error {
	if len(gains) != len(eq.freqs) {
		return errors.Newf("gain count mismatch: want %d, got %d", len(eq.freqs), len(gains)).
			Component(errors.ComponentRender).
			Category(errors.CategoryValidation).
			Build()
	}

	eq.mu.Lock()
	defer eq.mu.Unlock()

	next := &bank{gains: make([]float64, len(gains))}
	for i, g := range gains {
		g = math.Max(eq.minGainDB, math.Min(eq.maxGainDB, g))
		next.gains[i] = g
		if g == 0 {
			next.filters = append(next.filters, nil)
			continue
		}
		f, err := NewPeaking(float64(eq.sampleRate), eq.freqs[i], eq.width, g, eq.channels)
		if err != nil {
			return err
		}
		next.filters = append(next.filters, f)
	}

	eq.active.Store(next)
	return nil
}

// Reset returns every band to zero gain.
func (eq *BandEQ) Reset() {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	eq.active.Store(&bank{gains: make([]float64, len(eq.freqs))})
}

// Process runs the active filter bank over a block of per-channel
// samples in place. With all gains at zero this is a single atomic load.
func (eq *BandEQ) Process(samples [][]float32) {
	b := eq.active.Load()
	if len(b.filters) == 0 {
		return
	}
	for _, f := range b.filters {
		if f == nil {
			continue
		}
		for ch := range samples {
			if ch >= eq.channels {
				break
			}
			f.Apply(samples[ch], ch)
		}
	}
}
