package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundvault/soundvault-go/internal/conf"
	"github.com/soundvault/soundvault-go/internal/datastore"
)

func newTestPresets(t *testing.T) (*PresetManager, *conf.EQSettings) {
	t.Helper()
	store := datastore.New(":memory:")
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	eq := &conf.EQSettings{
		BandFrequencies: []float64{60, 230, 910, 3600, 14000},
		BandWidth:       1.0,
		MinGainDB:       -12,
		MaxGainDB:       12,
	}
	return NewPresetManager(store, eq), eq
}

func TestPresetRoundTrip(t *testing.T) {
	m, _ := newTestPresets(t)

	gains := []float64{3, -6, 0, 9, -1.5}
	require.NoError(t, m.Save("rock", gains))

	got, err := m.Load("rock")
	require.NoError(t, err)
	assert.Equal(t, gains, got)
}

func TestPresetOverwrite(t *testing.T) {
	m, _ := newTestPresets(t)

	require.NoError(t, m.Save("rock", []float64{1, 2, 3, 4, 5}))
	require.NoError(t, m.Save("rock", []float64{5, 4, 3, 2, 1}))

	got, err := m.Load("rock")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 4, 3, 2, 1}, got)

	names, err := m.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"rock"}, names)
}

func TestPresetValidation(t *testing.T) {
	m, _ := newTestPresets(t)

	assert.Error(t, m.Save("short", []float64{1, 2}), "wrong band count")
	assert.Error(t, m.Save("loud", []float64{40, 0, 0, 0, 0}), "gain out of range")
	assert.Error(t, m.Save("", []float64{0, 0, 0, 0, 0}), "empty name")
	assert.Error(t, m.Save("   ", []float64{0, 0, 0, 0, 0}), "blank name")
}

func TestPresetLoadMissing(t *testing.T) {
	m, _ := newTestPresets(t)
	_, err := m.Load("nope")
	assert.Error(t, err)
}

func TestPresetDelete(t *testing.T) {
	m, _ := newTestPresets(t)

	require.NoError(t, m.Save("rock", []float64{0, 0, 0, 0, 0}))
	require.NoError(t, m.Delete("rock"))
	_, err := m.Load("rock")
	assert.Error(t, err)

	assert.NoError(t, m.Delete("rock"), "deleting a missing preset is a no-op")
}

func TestPresetLayoutMismatchOnLoad(t *testing.T) {
	m, eq := newTestPresets(t)
	require.NoError(t, m.Save("rock", []float64{1, 2, 3, 4, 5}))

	// The EQ layout shrank since the preset was saved.
	eq.BandFrequencies = []float64{60, 910, 14000}
	_, err := m.Load("rock")
	assert.Error(t, err)
}

func TestPresetApplyPushesGainsToController(t *testing.T) {
	h := newHarness(t)
	m, _ := newTestPresets(t)

	require.NoError(t, m.Save("rock", []float64{1, 2, 3, 4, 5}))
	require.NoError(t, m.Apply("rock", h.controller))
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, h.controller.BandGains())
}
