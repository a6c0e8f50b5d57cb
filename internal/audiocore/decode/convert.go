package decode

import (
	"io"

	"github.com/soundvault/soundvault-go/internal/audiocore"
	"github.com/soundvault/soundvault-go/internal/errors"
)

// resampleChannel resamples one channel from originalRate to targetRate
// using cubic interpolation.
func resampleChannel(samples []float32, originalRate, targetRate int) []float32 {
	if originalRate == targetRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(targetRate) / float64(originalRate)
	newLength := int(float64(len(samples)) * ratio)
	if newLength == 0 {
		newLength = 1
	}
	resampled := make([]float32, newLength)

	if len(samples) < 4 {
		// Too short for cubic; hold the nearest sample.
		for i := range resampled {
			idx := int(float64(i) / ratio)
			if idx >= len(samples) {
				idx = len(samples) - 1
			}
			resampled[i] = samples[idx]
		}
		return resampled
	}

	lastIndex := len(samples) - 3
	for i := 0; i < newLength; i++ {
		origPos := float64(i) / ratio
		index := int(origPos)
		if index < 1 {
			index = 1
		} else if index > lastIndex {
			index = lastIndex
		}
		frac := float32(origPos) - float32(index)

		y0, y1, y2, y3 := samples[index-1], samples[index], samples[index+1], samples[index+2]
		mu2 := frac * frac
		a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
		a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
		a2 := -0.5*y0 + 0.5*y2
		a3 := y1

		resampled[i] = a0*frac*mu2 + a1*mu2 + a2*frac + a3
	}
	return resampled
}

// remapChannels converts a block of per-channel samples to the target
// channel count. Mono to stereo duplicates; stereo (or more) to mono
// averages the first two channels.
func remapChannels(src [][]float32, target int) [][]float32 {
	if len(src) == target {
		return src
	}

	n := 0
	if len(src) > 0 {
		n = len(src[0])
	}
	out := make([][]float32, target)
	for ch := range out {
		out[ch] = make([]float32, n)
	}

	switch {
	case len(src) == 1:
		for ch := 0; ch < target; ch++ {
			copy(out[ch], src[0])
		}
	case target == 1:
		for i := 0; i < n; i++ {
			out[0][i] = (src[0][i] + src[1][i]) * 0.5
		}
	default:
		for ch := 0; ch < target && ch < len(src); ch++ {
			copy(out[ch], src[ch])
		}
	}
	return out
}

// ConvertingReader adapts a SampleReader's native format to a fixed target
// format, resampling and remapping channels as frames are read. It keeps a
// leftover buffer because the resampling ratio makes source and target
// block sizes diverge.
type ConvertingReader struct {
	src      SampleReader
	target   audiocore.AudioFormat
	leftover [][]float32
	scratch  [][]float32
	srcEOF   bool
}

// NewConvertingReader wraps an opened SampleReader. The target format must
// be valid.
func NewConvertingReader(src SampleReader, target audiocore.AudioFormat) (*ConvertingReader, error) {
	if !target.Valid() {
		return nil, errors.New(audiocore.ErrInvalidFormat).
			Component(errors.ComponentDecode).
			Category(errors.CategoryValidation).
			Context("sample_rate", target.SampleRate).
			Context("channels", target.Channels).
			Build()
	}
	info := src.Info()
	if info.SampleRate <= 0 || info.Channels <= 0 {
		return nil, errors.New(audiocore.ErrInvalidFormat).
			Component(errors.ComponentDecode).
			Category(errors.CategoryDecode).
			Context("path", info.Path).
			Build()
	}

	r := &ConvertingReader{src: src, target: target}
	r.leftover = make([][]float32, target.Channels)
	return r, nil
}

func (r *ConvertingReader) Close() error {
	return r.src.Close()
}

// Info reports the source metadata rescaled to the target format.
func (r *ConvertingReader) Info() Info {
	info := r.src.Info()
	if info.SampleRate != r.target.SampleRate && info.SampleRate > 0 {
		ratio := float64(r.target.SampleRate) / float64(info.SampleRate)
		info.TotalFrames = int64(float64(info.TotalFrames) * ratio)
		info.SampleRate = r.target.SampleRate
	}
	info.Channels = r.target.Channels
	return info
}

func (r *ConvertingReader) leftoverLen() int {
	if len(r.leftover) == 0 || r.leftover[0] == nil {
		return 0
	}
	return len(r.leftover[0])
}

// ReadFrames fills dst with converted frames. Returns io.EOF once the
// source and the leftover buffer are both exhausted.
func (r *ConvertingReader) ReadFrames(dst [][]float32) (int, error) {
	if len(dst) != r.target.Channels || len(dst) == 0 {
		return 0, errors.Newf("channel mismatch: want %d, got %d", r.target.Channels, len(dst)).
			Component(errors.ComponentDecode).
			Category(errors.CategoryDecode).
			Build()
	}
	want := len(dst[0])
	info := r.src.Info()

	for r.leftoverLen() < want && !r.srcEOF {
		// Read enough native frames to produce at least one target block.
		srcFrames := want
		if info.SampleRate != r.target.SampleRate {
			srcFrames = int(float64(want)*float64(info.SampleRate)/float64(r.target.SampleRate)) + 4
		}
		if r.scratch == nil || len(r.scratch[0]) < srcFrames {
			r.scratch = make([][]float32, info.Channels)
			for ch := range r.scratch {
				r.scratch[ch] = make([]float32, srcFrames)
			}
		}
		block := make([][]float32, info.Channels)
		for ch := range block {
			block[ch] = r.scratch[ch][:srcFrames]
		}

		n, err := r.src.ReadFrames(block)
		if errors.Is(err, io.EOF) {
			r.srcEOF = true
		} else if err != nil {
			return 0, err
		} else if n == 0 {
			// A zero-frame read without an error would spin forever.
			r.srcEOF = true
		}
		if n == 0 {
			continue
		}

		converted := make([][]float32, info.Channels)
		for ch := range converted {
			converted[ch] = resampleChannel(block[ch][:n], info.SampleRate, r.target.SampleRate)
		}
		converted = remapChannels(converted, r.target.Channels)
		for ch := range r.leftover {
			r.leftover[ch] = append(r.leftover[ch], converted[ch]...)
		}
	}

	avail := r.leftoverLen()
	if avail == 0 {
		return 0, io.EOF
	}
	frames := want
	if avail < frames {
		frames = avail
	}
	for ch := range dst {
		copy(dst[ch][:frames], r.leftover[ch][:frames])
		r.leftover[ch] = r.leftover[ch][frames:]
	}
	return frames, nil
}

// SeekFrame seeks to the target-format frame offset, translating it back
// to the source rate.
func (r *ConvertingReader) SeekFrame(offset int64) error {
	info := r.src.Info()
	srcOffset := offset
	if info.SampleRate != r.target.SampleRate && r.target.SampleRate > 0 {
		srcOffset = int64(float64(offset) * float64(info.SampleRate) / float64(r.target.SampleRate))
	}
	if err := r.src.SeekFrame(srcOffset); err != nil {
		return err
	}
	r.leftover = make([][]float32, r.target.Channels)
	r.srcEOF = false
	return nil
}
