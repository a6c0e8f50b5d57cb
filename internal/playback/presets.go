package playback

import (
	"encoding/json"
	"strings"

	"github.com/soundvault/soundvault-go/internal/conf"
	"github.com/soundvault/soundvault-go/internal/datastore"
	"github.com/soundvault/soundvault-go/internal/errors"
)

// PresetManager stores named EQ gain sets. Gains are validated against
// the configured band layout on save and again on load, so a preset saved
// under a different layout is rejected instead of silently misapplied.
type PresetManager struct {
	store datastore.Interface
	eq    *conf.EQSettings
}

// NewPresetManager wires a preset store to the active EQ layout.
func NewPresetManager(store datastore.Interface, eq *conf.EQSettings) *PresetManager {
	return &PresetManager{store: store, eq: eq}
}

func (m *PresetManager) validate(gains []float64) error {
	if len(gains) != len(m.eq.BandFrequencies) {
		return errors.Newf("preset has %d gains, EQ has %d bands", len(gains), len(m.eq.BandFrequencies)).
			Component(errors.ComponentPlayback).
			Category(errors.CategoryValidation).
			Build()
	}
	for i, g := range gains {
		if g < m.eq.MinGainDB || g > m.eq.MaxGainDB {
			return errors.Newf("gain %d (%.1f dB) outside [%.1f, %.1f]", i, g, m.eq.MinGainDB, m.eq.MaxGainDB).
				Component(errors.ComponentPlayback).
				Category(errors.CategoryValidation).
				Build()
		}
	}
	return nil
}

// Save validates and persists a preset, overwriting any existing one with
// the same name.
func (m *PresetManager) Save(name string, gains []float64) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.NewStd("preset name must not be empty")
	}
	if err := m.validate(gains); err != nil {
		return err
	}

	raw, err := json.Marshal(gains)
	if err != nil {
		return err
	}
	return m.store.SavePreset(&datastore.EQPreset{Name: name, Gains: string(raw)})
}

// Load returns a preset's gains, validated against the current layout.
func (m *PresetManager) Load(name string) ([]float64, error) {
	p, err := m.store.GetPreset(name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.Newf("no preset named %q", name).
			Component(errors.ComponentPlayback).
			Category(errors.CategoryValidation).
			Build()
	}

	var gains []float64
	if err := json.Unmarshal([]byte(p.Gains), &gains); err != nil {
		return nil, errors.New(err).
			Component(errors.ComponentPlayback).
			Category(errors.CategoryDatabase).
			Context("preset", name).
			Build()
	}
	if err := m.validate(gains); err != nil {
		return nil, err
	}
	return gains, nil
}

// Names lists stored preset names.
func (m *PresetManager) Names() ([]string, error) {
	presets, err := m.store.ListPresets()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, p.Name)
	}
	return names, nil
}

// Delete removes a preset. Deleting a missing preset is a no-op.
func (m *PresetManager) Delete(name string) error {
	return m.store.DeletePreset(name)
}

// Apply loads a preset and pushes its gains into the controller's EQ.
func (m *PresetManager) Apply(name string, c *Controller) error {
	gains, err := m.Load(name)
	if err != nil {
		return err
	}
	return c.SetBandGains(gains)
}
