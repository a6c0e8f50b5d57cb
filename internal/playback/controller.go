package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/soundvault/soundvault-go/internal/audiocore"
	"github.com/soundvault/soundvault-go/internal/audiocore/decode"
	"github.com/soundvault/soundvault-go/internal/audiocore/render"
	"github.com/soundvault/soundvault-go/internal/conf"
	"github.com/soundvault/soundvault-go/internal/errors"
	"github.com/soundvault/soundvault-go/internal/events"
	"github.com/soundvault/soundvault-go/internal/logging"
)

// State is the controller's coarse lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateLoading
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// ScopeManager is the slice of the scope registry the controller needs.
type ScopeManager interface {
	BeginAccess(path string) bool
	EndAccess(path string)
	NeedsScope(path string, settings *conf.ScopeSettings) bool
}

// DecodeSession is one running decode pipeline: a chunk source for the
// render graph plus its cancellation handle.
type DecodeSession interface {
	render.ChunkSource
	Cancel()
	Done() <-chan struct{}
}

// DecoderFactory opens a file and starts a decode worker positioned at
// startFrame, producing chunks at the given target format.
type DecoderFactory func(path string, format audiocore.AudioFormat, startFrame int64) (DecodeSession, decode.Info, error)

// NewFileDecoder is the production DecoderFactory: it picks a reader by
// extension, wraps it in format conversion and starts the chunk worker.
func NewFileDecoder(settings *conf.AudioSettings) DecoderFactory {
	return func(path string, format audiocore.AudioFormat, startFrame int64) (DecodeSession, decode.Info, error) {
		reader, err := decode.NewReader(path)
		if err != nil {
			return nil, decode.Info{}, err
		}
		if err := reader.Open(path); err != nil {
			return nil, decode.Info{}, err
		}
		conv, err := decode.NewConvertingReader(reader, format)
		if err != nil {
			_ = reader.Close()
			return nil, decode.Info{}, err
		}

		dec := decode.NewChunkedDecoder(conv, format, settings.ChunkFrames, settings.MaxPendingChunks, settings.DecodeBackoff)
		if err := dec.Start(startFrame); err != nil {
			return nil, decode.Info{}, err
		}
		return dec, conv.Info(), nil
	}
}

// Controller ties scope registry, decoder and render graph together. All
// control-context operations are serialized on one mutex; the render
// callback never touches it.
type Controller struct {
	settings   *conf.Settings
	format     audiocore.AudioFormat
	graph      *render.RenderGraph
	scopes     ScopeManager
	bus        *events.Bus
	newDecoder DecoderFactory
	guard      time.Duration
	logger     *slog.Logger

	mu         sync.Mutex
	state      State
	session    *Session
	decoder    DecodeSession
	scopedPath string // non-empty while this session holds a scope open
}

// Config assembles a Controller.
type Config struct {
	Settings *conf.Settings
	Graph    *render.RenderGraph
	Scopes   ScopeManager
	Bus      *events.Bus

	// DecoderFactory defaults to NewFileDecoder.
	DecoderFactory DecoderFactory
}

// New builds a stopped controller and hooks up device-loss recovery.
func New(cfg Config) (*Controller, error) {
	if cfg.Settings == nil || cfg.Graph == nil || cfg.Scopes == nil || cfg.Bus == nil {
		return nil, errors.NewStd("playback controller requires settings, graph, scopes and bus")
	}

	factory := cfg.DecoderFactory
	if factory == nil {
		factory = NewFileDecoder(&cfg.Settings.Audio)
	}
	guard := cfg.Settings.Audio.CompletionGuard
	if guard <= 0 {
		guard = audiocore.DefaultCompletionGuard
	}

	c := &Controller{
		settings: cfg.Settings,
		format: audiocore.AudioFormat{
			SampleRate: cfg.Settings.Audio.SampleRate,
			Channels:   cfg.Settings.Audio.Channels,
		},
		graph:      cfg.Graph,
		scopes:     cfg.Scopes,
		bus:        cfg.Bus,
		newDecoder: factory,
		guard:      guard,
		logger:     logging.ForService("playback"),
	}
	cfg.Graph.OnDeviceDown(c.handleDeviceDown)
	return c, nil
}

// Play starts a new session for path. The previous session's scope is
// closed before the new one is opened so at most one grant is held across
// the switch.
func (c *Controller) Play(path string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.teardownLocked()
	c.state = StateLoading

	if c.scopes.NeedsScope(path, &c.settings.Scope) {
		if !c.scopes.BeginAccess(path) {
			c.state = StateStopped
			err := errors.Newf("no scoped access for %s", path).
				Component(errors.ComponentPlayback).
				Category(errors.CategoryScopedAccess).
				Build()
			c.publish(events.KindPlaybackFailed, "", err)
			return "", err
		}
		c.scopedPath = path
	}

	dec, info, err := c.newDecoder(path, c.format, 0)
	if err != nil {
		c.releaseScopeLocked()
		c.state = StateStopped
		c.publish(events.KindPlaybackFailed, "", err)
		return "", err
	}

	sess := NewSession(path, info.TotalFrames)
	if err := c.graph.Play(dec, 0, c.completionFor(sess.ID)); err != nil {
		dec.Cancel()
		c.releaseScopeLocked()
		c.state = StateStopped
		c.publish(events.KindPlaybackFailed, sess.ID, err)
		return "", err
	}

	c.session = sess
	c.decoder = dec
	c.state = StatePlaying
	c.logger.Info("playback started", "session", sess.ID, "path", path, "frames", info.TotalFrames)
	return sess.ID, nil
}

// Pause freezes the transport. The session stays current.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return errors.New(audiocore.ErrTransportNotActive).
			Component(errors.ComponentPlayback).
			Category(errors.CategoryState).
			Context("state", c.state.String()).
			Build()
	}
	if err := c.graph.Pause(); err != nil {
		return err
	}
	c.state = StatePaused
	return nil
}

// Resume continues a paused session.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePaused {
		return errors.New(audiocore.ErrTransportNotActive).
			Component(errors.ComponentPlayback).
			Category(errors.CategoryState).
			Context("state", c.state.String()).
			Build()
	}
	if err := c.graph.Resume(); err != nil {
		return err
	}
	c.state = StatePlaying
	return nil
}

// Seek restarts decoding at the clamped offset. The session id is
// reused: seeking does not change track identity, so completion routing
// is unaffected.
func (c *Controller) Seek(position time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return errors.New(audiocore.ErrTransportNotActive).
			Component(errors.ComponentPlayback).
			Category(errors.CategoryState).
			Build()
	}
	sess := c.session

	frame := int64(position.Seconds() * float64(c.format.SampleRate))
	if frame < 0 {
		frame = 0
	}
	if sess.TotalFrames > 0 && frame > sess.TotalFrames {
		frame = sess.TotalFrames
	}

	if c.decoder != nil {
		c.decoder.Cancel()
	}
	dec, _, err := c.newDecoder(sess.TrackPath, c.format, frame)
	if err != nil {
		c.teardownLocked()
		c.state = StateStopped
		c.publish(events.KindPlaybackFailed, sess.ID, err)
		return err
	}

	// The transport restart re-arms the spurious-completion guard.
	sess.StartedAt = time.Now()
	if err := c.graph.Play(dec, frame, c.completionFor(sess.ID)); err != nil {
		dec.Cancel()
		c.teardownLocked()
		c.state = StateStopped
		c.publish(events.KindPlaybackFailed, sess.ID, err)
		return err
	}

	c.decoder = dec
	c.state = StatePlaying
	c.logger.Debug("seek", "session", sess.ID, "frame", frame)
	return nil
}

// Stop invalidates the session, halts the transport and closes the
// active scope. Safe in any state.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.state = StateStopped
}

// teardownLocked supersedes the current session: cancel the decoder,
// reset the transport and release the scope grant.
func (c *Controller) teardownLocked() {
	if c.decoder != nil {
		c.decoder.Cancel()
		c.decoder = nil
	}
	c.graph.Stop()
	c.releaseScopeLocked()
	c.session = nil
}

func (c *Controller) releaseScopeLocked() {
	if c.scopedPath != "" {
		c.scopes.EndAccess(c.scopedPath)
		c.scopedPath = ""
	}
}

// completionFor builds the graph completion callback for one session id.
// The id is captured by value; whatever session is current when the
// signal arrives decides whether it is delivered.
func (c *Controller) completionFor(id string) func() {
	return func() { c.HandleTransportFinished(id) }
}

// HandleTransportFinished filters and delivers a "finished" signal.
// Signals for superseded sessions are dropped. A signal arriving within
// the guard interval of the session (re)start is deferred, not lost: a
// track shorter than the guard, or a seek into the final stretch, drains
// for real before the guard expires, and the graph fires completion only
// once per source. The deferred retry delivers only if the source still
// reports itself complete, so spurious signals stay suppressed.
func (c *Controller) HandleTransportFinished(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.session.ID != id {
		c.logger.Debug("dropping stale completion", "session", id)
		return
	}
	if age := c.session.Age(); age < c.guard {
		c.logger.Debug("deferring completion inside guard interval",
			"session", id, "age", age)
		time.AfterFunc(c.guard-age+5*time.Millisecond, func() {
			if c.graph.SourceCompleted() {
				c.HandleTransportFinished(id)
			}
		})
		return
	}

	c.logger.Info("playback finished", "session", id, "path", c.session.TrackPath)
	c.teardownLocked()
	c.state = StateStopped
	c.publish(events.KindFinished, id, nil)
}

// handleDeviceDown runs when the output device halts unexpectedly. The
// graph is restarted in place; only a failed restart is fatal to the
// session.
func (c *Controller) handleDeviceDown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return
	}
	id := c.session.ID
	c.publish(events.KindDeviceLost, id, nil)

	if err := c.graph.RecoverDevice(); err != nil {
		c.logger.Error("device restart failed, stopping session", "session", id, "error", err)
		c.teardownLocked()
		c.state = StateStopped
		c.publish(events.KindPlaybackFailed, id, err)
		return
	}
	c.logger.Info("output device recovered", "session", id)
	c.publish(events.KindDeviceRecovered, id, nil)
}

func (c *Controller) publish(kind events.Kind, sessionID string, err error) {
	c.bus.Publish(events.Event{
		Kind:      kind,
		SessionID: sessionID,
		At:        time.Now(),
		Err:       err,
	})
}

// State returns the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveSession returns the current session id, or "" when stopped.
func (c *Controller) ActiveSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.ID
}

// Position returns the transport position of the current session.
func (c *Controller) Position() time.Duration {
	return c.graph.Position()
}

// Duration returns the current track's length, or zero when stopped.
func (c *Controller) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return 0
	}
	return c.format.FrameDuration(int(c.session.TotalFrames))
}

// SetBandGains forwards to the graph's EQ.
func (c *Controller) SetBandGains(gains []float64) error {
	eq := c.graph.EQ()
	if eq == nil {
		return errors.NewStd("no equalizer configured")
	}
	return eq.SetGains(gains)
}

// BandGains returns the active EQ gains.
func (c *Controller) BandGains() []float64 {
	eq := c.graph.EQ()
	if eq == nil {
		return nil
	}
	return eq.Gains()
}

// SetGain forwards the output gain factor to the graph.
func (c *Controller) SetGain(gain float64) {
	c.graph.SetGain(gain)
}
