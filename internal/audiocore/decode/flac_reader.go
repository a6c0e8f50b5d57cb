package decode

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/tphakala/flac"

	"github.com/soundvault/soundvault-go/internal/errors"
)

// FLACReader reads PCM frames from a FLAC file. The decoder yields whole
// compressed frames as interleaved little-endian bytes, so leftover bytes
// from the previous frame carry over between ReadFrames calls.
type FLACReader struct {
	file    *os.File
	decoder *flac.Decoder
	info    Info
	divisor float32
	pending []byte
	isOpen  bool
}

func (r *FLACReader) Open(path string) error {
	if r.isOpen {
		_ = r.Close()
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.New(err).
			Component(errors.ComponentDecode).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	dec, err := flac.NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return errors.New(err).
			Component(errors.ComponentDecode).
			Category(errors.CategoryDecode).
			Context("path", path).
			Build()
	}

	divisor, err := sampleDivisor(dec.BitsPerSample)
	if err != nil {
		_ = f.Close()
		return err
	}

	r.file = f
	r.decoder = dec
	r.divisor = divisor
	r.info = Info{
		SampleRate:  dec.SampleRate,
		Channels:    dec.NChannels,
		TotalFrames: int64(dec.TotalSamples),
		BitDepth:    dec.BitsPerSample,
		Format:      FormatFLAC,
		Path:        path,
	}
	r.pending = nil
	r.isOpen = true
	return nil
}

func (r *FLACReader) Close() error {
	r.isOpen = false
	r.pending = nil
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

func (r *FLACReader) Info() Info {
	return r.info
}

// bytesPerFrame is the size of one interleaved frame in the decoder's
// output stream.
func (r *FLACReader) bytesPerFrame() int {
	return (r.info.BitDepth / 8) * r.info.Channels
}

func (r *FLACReader) ReadFrames(dst [][]float32) (int, error) {
	if !r.isOpen {
		return 0, errors.NewStd("reader not open")
	}
	if len(dst) != r.info.Channels || len(dst) == 0 {
		return 0, errors.Newf("channel mismatch: want %d, got %d", r.info.Channels, len(dst)).
			Component(errors.ComponentDecode).
			Category(errors.CategoryDecode).
			Build()
	}

	wantBytes := len(dst[0]) * r.bytesPerFrame()
	for len(r.pending) < wantBytes {
		frame, err := r.decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, errors.New(err).
				Component(errors.ComponentDecode).
				Category(errors.CategoryDecode).
				Context("path", r.info.Path).
				Build()
		}
		r.pending = append(r.pending, frame...)
	}

	if len(r.pending) == 0 {
		return 0, io.EOF
	}

	avail := len(r.pending) / r.bytesPerFrame()
	frames := len(dst[0])
	if avail < frames {
		frames = avail
	}

	bps := r.info.BitDepth / 8
	for i := 0; i < frames; i++ {
		base := i * r.bytesPerFrame()
		for ch := 0; ch < r.info.Channels; ch++ {
			dst[ch][i] = r.decodeSample(r.pending[base+ch*bps:])
		}
	}
	r.pending = r.pending[frames*r.bytesPerFrame():]
	return frames, nil
}

// decodeSample converts one little-endian sample to normalized float32.
func (r *FLACReader) decodeSample(b []byte) float32 {
	var sample int32
	switch r.info.BitDepth {
	case 16:
		sample = int32(int16(binary.LittleEndian.Uint16(b)))
	case 24:
		sample = int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if sample&0x800000 != 0 {
			sample |= -1 << 24
		}
	case 32:
		sample = int32(binary.LittleEndian.Uint32(b))
	}
	return float32(sample) / r.divisor
}

// SeekFrame restarts the decoder and discards frames up to the target
// offset. FLAC has no cheap random access without a seek table, and the
// cost only shows on explicit user seeks.
func (r *FLACReader) SeekFrame(offset int64) error {
	if !r.isOpen {
		return errors.NewStd("reader not open")
	}

	path := r.info.Path
	if err := r.Open(path); err != nil {
		return err
	}
	if offset <= 0 {
		return nil
	}

	remaining := offset * int64(r.bytesPerFrame())
	for remaining > 0 {
		frame, err := r.decoder.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.New(err).
				Component(errors.ComponentDecode).
				Category(errors.CategoryDecode).
				Context("seek_offset", offset).
				Build()
		}
		if int64(len(frame)) > remaining {
			r.pending = frame[remaining:]
			return nil
		}
		remaining -= int64(len(frame))
	}
	return nil
}
