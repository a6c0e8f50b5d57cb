package render

import (
	"encoding/binary"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smallnest/ringbuffer"

	"github.com/soundvault/soundvault-go/internal/audiocore"
	"github.com/soundvault/soundvault-go/internal/audiocore/equalizer"
	"github.com/soundvault/soundvault-go/internal/errors"
	"github.com/soundvault/soundvault-go/internal/logging"
)

// ChunkSource feeds decoded chunks to the graph. Pop must never block;
// IsEndOfStream turns true once the producer is done and everything has
// been popped.
type ChunkSource interface {
	Pop() *audiocore.AudioChunk
	IsEndOfStream() bool
}

// TransportState is the graph's coarse playback state.
type TransportState int32

const (
	TransportIdle TransportState = iota
	TransportPlaying
	TransportPaused
)

func (s TransportState) String() string {
	switch s {
	case TransportIdle:
		return "idle"
	case TransportPlaying:
		return "playing"
	case TransportPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// sourceBox binds a chunk source to its completion callback so a source
// swap atomically retires the old callback.
type sourceBox struct {
	src        ChunkSource
	onComplete func()
	completed  atomic.Bool
}

// RenderGraph connects source, EQ, gain and output device. The render
// callback runs on the device thread: it pops chunks, runs them through
// the EQ and gain stages, interleaves and writes to the device buffer.
// Underruns and the paused state produce silence, never a blocked
// callback.
type RenderGraph struct {
	format      audiocore.AudioFormat
	eq          *equalizer.BandEQ
	device      OutputDevice
	chunkFrames int
	logger      *slog.Logger

	gainBits atomic.Uint64
	state    atomic.Int32
	framePos atomic.Int64

	box  atomic.Pointer[sourceBox]
	ring *ringbuffer.RingBuffer

	// scratch holds one interleaved chunk and view the per-channel
	// slices of the chunk being staged; only the render callback
	// touches them.
	scratch []byte
	view    [][]float32

	onDeviceDown atomic.Pointer[func()]

	mu sync.Mutex
}

// NewRenderGraph builds an idle graph. The EQ is optional; a nil EQ means
// a flat signal path.
func NewRenderGraph(format audiocore.AudioFormat, eq *equalizer.BandEQ, device OutputDevice, chunkFrames int) (*RenderGraph, error) {
	if !format.Valid() {
		return nil, errors.New(audiocore.ErrInvalidFormat).
			Component(errors.ComponentRender).
			Category(errors.CategoryValidation).
			Build()
	}
	if chunkFrames <= 0 {
		chunkFrames = audiocore.DefaultChunkFrames
	}

	g := &RenderGraph{
		format:      format,
		eq:          eq,
		device:      device,
		chunkFrames: chunkFrames,
		logger:      logging.ForService("render"),
	}
	bpf := g.bytesPerFrame()
	// Room for a few chunks of carryover between device callbacks.
	g.ring = ringbuffer.New(4 * chunkFrames * bpf)
	g.scratch = make([]byte, chunkFrames*bpf)
	g.view = make([][]float32, 0, format.Channels)
	g.gainBits.Store(math.Float64bits(1.0))
	return g, nil
}

func (g *RenderGraph) bytesPerFrame() int {
	return 4 * g.format.Channels
}

// Play installs a chunk source and starts (or keeps) the device running.
// startFrame seeds the position counter; the source is expected to
// already be positioned there. onComplete fires once, when the stream has
// fully drained through the device.
func (g *RenderGraph) Play(source ChunkSource, startFrame int64, onComplete func()) error {
	if source == nil {
		return errors.NewStd("nil chunk source")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Park the callback in silence while the source swaps over.
	g.state.Store(int32(TransportIdle))
	g.box.Store(&sourceBox{src: source, onComplete: onComplete})
	g.ring.Reset()
	g.framePos.Store(startFrame)

	if !g.device.Running() {
		if err := g.device.Start(g.format, g.render, g.deviceStopped); err != nil {
			g.box.Store(nil)
			return err
		}
	}
	g.state.Store(int32(TransportPlaying))
	return nil
}

// Pause freezes playback, holding the device open and emitting silence.
func (g *RenderGraph) Pause() error {
	if !g.state.CompareAndSwap(int32(TransportPlaying), int32(TransportPaused)) {
		return errors.New(audiocore.ErrTransportNotActive).
			Component(errors.ComponentRender).
			Category(errors.CategoryState).
			Context("state", g.State().String()).
			Build()
	}
	return nil
}

// Resume continues a paused session.
func (g *RenderGraph) Resume() error {
	if !g.state.CompareAndSwap(int32(TransportPaused), int32(TransportPlaying)) {
		return errors.New(audiocore.ErrTransportNotActive).
			Component(errors.ComponentRender).
			Category(errors.CategoryState).
			Context("state", g.State().String()).
			Build()
	}
	return nil
}

// Stop tears the session down: source detached, position zeroed, device
// released. Safe to call in any state.
func (g *RenderGraph) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state.Store(int32(TransportIdle))
	g.box.Store(nil)
	g.ring.Reset()
	g.framePos.Store(0)
	if g.device.Running() {
		if err := g.device.Stop(); err != nil {
			g.logger.Warn("device stop failed", "error", err)
		}
	}
}

// SetPosition overwrites the position counter after a seek. The caller
// swaps in a repositioned source via Play.
func (g *RenderGraph) SetPosition(frame int64) {
	g.framePos.Store(frame)
}

// PositionFrames returns the number of frames rendered since the session
// start offset.
func (g *RenderGraph) PositionFrames() int64 {
	return g.framePos.Load()
}

// Position returns the playback position as wall-clock time.
func (g *RenderGraph) Position() time.Duration {
	return g.format.FrameDuration(int(g.framePos.Load()))
}

// SetGain sets the output gain factor, clamped to [0, 2].
func (g *RenderGraph) SetGain(gain float64) {
	gain = math.Max(0, math.Min(2, gain))
	g.gainBits.Store(math.Float64bits(gain))
}

// Gain returns the current output gain factor.
func (g *RenderGraph) Gain() float64 {
	return math.Float64frombits(g.gainBits.Load())
}

// EQ returns the graph's equalizer, or nil for a flat path.
func (g *RenderGraph) EQ() *equalizer.BandEQ {
	return g.eq
}

// State returns the transport state.
func (g *RenderGraph) State() TransportState {
	return TransportState(g.state.Load())
}

// OnDeviceDown registers a handler for unexpected device halts. The
// handler runs on its own goroutine.
func (g *RenderGraph) OnDeviceDown(fn func()) {
	g.onDeviceDown.Store(&fn)
}

// RecoverDevice restarts a lost device. Transport state, position and the
// installed source survive, so playback resumes where it broke off.
func (g *RenderGraph) RecoverDevice() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	// A halted backend can still report itself running. Force a clean
	// stop first so the restart always happens.
	if g.device.Running() {
		if err := g.device.Stop(); err != nil {
			g.logger.Warn("device stop during recovery failed", "error", err)
		}
	}
	return g.device.Start(g.format, g.render, g.deviceStopped)
}

// SourceCompleted reports whether the installed source has already fired
// its completion callback.
func (g *RenderGraph) SourceCompleted() bool {
	box := g.box.Load()
	return box != nil && box.completed.Load()
}

func (g *RenderGraph) deviceStopped() {
	g.logger.Warn("output device stopped unexpectedly")
	if fn := g.onDeviceDown.Load(); fn != nil {
		go (*fn)()
	}
}

// render is the device data callback. It must not block or allocate on
// the steady-state path.
func (g *RenderGraph) render(out []byte, frameCount int) {
	bpf := g.bytesPerFrame()
	need := frameCount * bpf
	if need > len(out) {
		need = len(out)
	}

	if TransportState(g.state.Load()) != TransportPlaying {
		clear(out[:need])
		return
	}
	box := g.box.Load()
	if box == nil {
		clear(out[:need])
		return
	}

	filled := 0
	for filled < need {
		if g.ring.Length() == 0 && !g.stageNextChunk(box) {
			break
		}
		n, err := g.ring.Read(out[filled:need])
		if err != nil || n == 0 {
			break
		}
		filled += n
	}
	clear(out[filled:need])
	g.framePos.Add(int64(filled / bpf))

	// Stream drained through the device: fire completion exactly once.
	if filled < need && g.ring.Length() == 0 && box.src.IsEndOfStream() {
		if box.completed.CompareAndSwap(false, true) && box.onComplete != nil {
			go box.onComplete()
		}
	}
}

// stageNextChunk pops one chunk, applies EQ and gain, interleaves it and
// writes it to the carry ring. Returns false when no chunk is available.
func (g *RenderGraph) stageNextChunk(box *sourceBox) bool {
	chunk := box.src.Pop()
	if chunk == nil {
		return false
	}
	frames := chunk.Frames
	if frames > g.chunkFrames {
		frames = g.chunkFrames
	}

	g.view = g.view[:0]
	for _, ch := range chunk.Samples {
		g.view = append(g.view, ch[:frames])
	}
	view := g.view
	if g.eq != nil {
		g.eq.Process(view)
	}

	gain := float32(g.Gain())
	bpf := g.bytesPerFrame()
	for i := 0; i < frames; i++ {
		for ch := 0; ch < g.format.Channels; ch++ {
			var s float32
			if ch < len(view) {
				s = view[ch][i] * gain
			}
			binary.LittleEndian.PutUint32(g.scratch[i*bpf+ch*4:], math.Float32bits(s))
		}
	}

	if _, err := g.ring.Write(g.scratch[:frames*bpf]); err != nil {
		g.logger.Warn("carry ring overflow, dropping frames", "frames", frames)
	}
	return true
}
