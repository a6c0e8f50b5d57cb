// Package engine assembles the playback stack: datastore, scope
// registry, equalizer, render graph, event bus and controller, built once
// from settings and shared by the CLI commands.
package engine

import (
	"log/slog"
	"time"

	"github.com/soundvault/soundvault-go/internal/audiocore"
	"github.com/soundvault/soundvault-go/internal/audiocore/equalizer"
	"github.com/soundvault/soundvault-go/internal/audiocore/render"
	"github.com/soundvault/soundvault-go/internal/conf"
	"github.com/soundvault/soundvault-go/internal/datastore"
	"github.com/soundvault/soundvault-go/internal/events"
	"github.com/soundvault/soundvault-go/internal/logging"
	"github.com/soundvault/soundvault-go/internal/playback"
	"github.com/soundvault/soundvault-go/internal/scope"
)

// Engine is the assembled playback stack.
type Engine struct {
	Settings   *conf.Settings
	Store      datastore.Interface
	Scopes     *scope.Registry
	Bus        *events.Bus
	Graph      *render.RenderGraph
	Controller *playback.Controller
	Presets    *playback.PresetManager

	logger *slog.Logger
}

// New builds the engine from settings. The same sqlite database backs
// bookmarks and EQ presets.
func New(settings *conf.Settings) (*Engine, error) {
	store := datastore.New(settings.Scope.BookmarkDB)
	if err := store.Open(); err != nil {
		return nil, err
	}

	norm := scope.NewNormalizer(settings.Scope.StripPrefixes,
		time.Duration(settings.Scope.NormalizeTTLMin)*time.Minute)
	registry, err := scope.NewRegistry(store, scope.NewLocalResolver(), norm)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	format := audiocore.AudioFormat{
		SampleRate: settings.Audio.SampleRate,
		Channels:   settings.Audio.Channels,
	}
	eq, err := equalizer.New(equalizer.Config{
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		Bands:      settings.EQ.BandFrequencies,
		BandWidth:  settings.EQ.BandWidth,
		MinGainDB:  settings.EQ.MinGainDB,
		MaxGainDB:  settings.EQ.MaxGainDB,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	graph, err := render.NewRenderGraph(format, eq, render.NewMalgoDevice(), settings.Audio.ChunkFrames)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	bus := events.NewBus()
	controller, err := playback.New(playback.Config{
		Settings: settings,
		Graph:    graph,
		Scopes:   registry,
		Bus:      bus,
	})
	if err != nil {
		bus.Close()
		_ = store.Close()
		return nil, err
	}

	return &Engine{
		Settings:   settings,
		Store:      store,
		Scopes:     registry,
		Bus:        bus,
		Graph:      graph,
		Controller: controller,
		Presets:    playback.NewPresetManager(store, &settings.EQ),
		logger:     logging.ForService("engine"),
	}, nil
}

// Close tears the stack down: stop playback, close every open scope,
// shut the bus and the database.
func (e *Engine) Close() {
	e.Controller.Stop()
	e.Scopes.EndAll()
	e.Bus.Close()
	if err := e.Store.Close(); err != nil {
		e.logger.Warn("datastore close failed", "error", err)
	}
}
