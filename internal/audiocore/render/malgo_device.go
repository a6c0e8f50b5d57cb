package render

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/soundvault/soundvault-go/internal/audiocore"
	"github.com/soundvault/soundvault-go/internal/errors"
)

// MalgoDevice is the malgo-backed playback device. Each Start initializes
// a fresh context and device, so a device lost mid-session is recovered by
// calling Start again.
type MalgoDevice struct {
	mu       sync.Mutex
	ctx      *malgo.AllocatedContext
	device   *malgo.Device
	running  atomic.Bool
	stopping atomic.Bool
}

// NewMalgoDevice returns an idle playback device.
func NewMalgoDevice() *MalgoDevice {
	return &MalgoDevice{}
}

func (d *MalgoDevice) Start(format audiocore.AudioFormat, render RenderFunc, stopped func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.NewStd("playback device already running")
	}
	// A previous session halted by the backend leaves its native handles
	// behind; release them before initializing fresh ones.
	d.releaseLocked()
	if !format.Valid() {
		return errors.New(audiocore.ErrInvalidFormat).
			Component(errors.ComponentRender).
			Category(errors.CategoryValidation).
			Build()
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return errors.New(err).
			Component(errors.ComponentRender).
			Category(errors.CategoryDevice).
			Context("operation", "init_context").
			Build()
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(outputSamples, _ []byte, frameCount uint32) {
			render(outputSamples, int(frameCount))
		},
		Stop: func() {
			// Deliberate Stop calls must not look like device loss.
			if d.stopping.Load() {
				return
			}
			// The backend halted on its own. Mark the device stopped so
			// recovery sees a dead device, then report the loss.
			d.running.Store(false)
			if stopped != nil {
				stopped()
			}
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return errors.New(err).
			Component(errors.ComponentRender).
			Category(errors.CategoryDevice).
			Context("operation", "init_device").
			Context("sample_rate", format.SampleRate).
			Context("channels", format.Channels).
			Build()
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return errors.New(err).
			Component(errors.ComponentRender).
			Category(errors.CategoryDevice).
			Context("operation", "start_device").
			Build()
	}

	d.ctx = ctx
	d.device = device
	d.stopping.Store(false)
	d.running.Store(true)
	return nil
}

func (d *MalgoDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return nil
	}
	d.stopping.Store(true)
	d.running.Store(false)

	if d.device != nil {
		_ = d.device.Stop()
	}
	d.releaseLocked()
	return nil
}

// releaseLocked frees the native device and context handles.
func (d *MalgoDevice) releaseLocked() {
	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	if d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
	}
}

func (d *MalgoDevice) Running() bool {
	return d.running.Load()
}
