package decode

import (
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/soundvault/soundvault-go/internal/errors"
)

// WAVReader reads PCM frames from a RIFF/WAVE file.
type WAVReader struct {
	file    *os.File
	decoder *wav.Decoder
	info    Info
	divisor float32
	intBuf  *audio.IntBuffer
	isOpen  bool
}

func (r *WAVReader) Open(path string) error {
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

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		_ = f.Close()
		return errors.Newf("not a valid WAV file: %s", path).
			Component(errors.ComponentDecode).
			Category(errors.CategoryDecode).
			Build()
	}

	divisor, err := sampleDivisor(int(dec.BitDepth))
	if err != nil {
		_ = f.Close()
		return err
	}

	// PCMLen reads zero until the decoder has located the data chunk.
	if err := dec.FwdToPCM(); err != nil {
		_ = f.Close()
		return errors.New(err).
			Component(errors.ComponentDecode).
			Category(errors.CategoryDecode).
			Context("path", path).
			Build()
	}

	bytesPerFrame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	var totalFrames int64
	if bytesPerFrame > 0 {
		totalFrames = dec.PCMLen() / bytesPerFrame
	}

	r.file = f
	r.decoder = dec
	r.divisor = divisor
	r.info = Info{
		SampleRate:  int(dec.SampleRate),
		Channels:    int(dec.NumChans),
		TotalFrames: totalFrames,
		BitDepth:    int(dec.BitDepth),
		Format:      FormatWAV,
		Path:        path,
	}
	r.intBuf = nil
	r.isOpen = true
	return nil
}

func (r *WAVReader) Close() error {
	r.isOpen = false
	r.intBuf = nil
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

func (r *WAVReader) Info() Info {
	return r.info
}

func (r *WAVReader) ReadFrames(dst [][]float32) (int, error) {
	if !r.isOpen {
		return 0, errors.NewStd("reader not open")
	}
	if len(dst) != r.info.Channels || len(dst) == 0 {
		return 0, errors.Newf("channel mismatch: want %d, got %d", r.info.Channels, len(dst)).
			Component(errors.ComponentDecode).
			Category(errors.CategoryDecode).
			Build()
	}

	want := len(dst[0]) * r.info.Channels
	if r.intBuf == nil || cap(r.intBuf.Data) < want {
		r.intBuf = &audio.IntBuffer{
			Data: make([]int, want),
			Format: &audio.Format{
				SampleRate:  r.info.SampleRate,
				NumChannels: r.info.Channels,
			},
		}
	}
	r.intBuf.Data = r.intBuf.Data[:want]

	n, err := r.decoder.PCMBuffer(r.intBuf)
	if err != nil {
		return 0, errors.New(err).
			Component(errors.ComponentDecode).
			Category(errors.CategoryDecode).
			Context("path", r.info.Path).
			Build()
	}
	if n == 0 {
		return 0, io.EOF
	}

	frames := n / r.info.Channels
	for i := 0; i < frames; i++ {
		base := i * r.info.Channels
		for ch := 0; ch < r.info.Channels; ch++ {
			dst[ch][i] = float32(r.intBuf.Data[base+ch]) / r.divisor
		}
	}
	return frames, nil
}

func (r *WAVReader) SeekFrame(offset int64) error {
	if !r.isOpen {
		return errors.NewStd("reader not open")
	}

	// The decoder holds buffered state, so a seek restarts the stream
	// and discards frames up to the target offset.
	path := r.info.Path
	if err := r.Open(path); err != nil {
		return err
	}
	if offset <= 0 {
		return nil
	}

	const skipFrames = 8192
	scratch := &audio.IntBuffer{
		Data: make([]int, skipFrames*r.info.Channels),
		Format: &audio.Format{
			SampleRate:  r.info.SampleRate,
			NumChannels: r.info.Channels,
		},
	}

	remaining := offset
	for remaining > 0 {
		toRead := int64(skipFrames)
		if remaining < toRead {
			toRead = remaining
		}
		scratch.Data = scratch.Data[:toRead*int64(r.info.Channels)]

		n, err := r.decoder.PCMBuffer(scratch)
		if err != nil {
			return errors.New(err).
				Component(errors.ComponentDecode).
				Category(errors.CategoryDecode).
				Context("seek_offset", offset).
				Build()
		}
		if n == 0 {
			return nil
		}
		remaining -= int64(n / r.info.Channels)
	}
	return nil
}
