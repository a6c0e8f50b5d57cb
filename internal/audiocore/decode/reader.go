// Package decode turns audio files into fixed-size chunks of float32
// samples. A background worker (ChunkedDecoder) pulls frames from a
// SampleReader, converts them to the session's target format and hands
// them to the render side through a bounded ChunkQueue.
package decode

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/soundvault/soundvault-go/internal/audiocore"
	"github.com/soundvault/soundvault-go/internal/errors"
)

// FileFormat identifies a supported container format.
type FileFormat string

const (
	FormatWAV  FileFormat = "wav"
	FormatFLAC FileFormat = "flac"
)

// Info describes an opened audio file.
type Info struct {
	SampleRate  int
	Channels    int
	TotalFrames int64
	BitDepth    int
	Format      FileFormat
	Path        string
}

// Duration returns the file length as wall-clock time.
func (i Info) Duration() time.Duration {
	if i.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(i.TotalFrames) / float64(i.SampleRate) * float64(time.Second))
}

// SampleReader reads de-interleaved float32 frames from an audio file.
// Implementations are not safe for concurrent use; the decode worker is
// the only caller after Open.
type SampleReader interface {
	// Open opens the file and reads its header.
	Open(path string) error

	// Close releases the underlying file. Safe to call twice.
	Close() error

	// Info returns the file metadata. Valid after a successful Open.
	Info() Info

	// ReadFrames fills dst, one slice per channel, with up to len(dst[0])
	// frames and returns the number of frames read. io.EOF signals the
	// end of the stream; a short read without error is allowed.
	ReadFrames(dst [][]float32) (int, error)

	// SeekFrame positions the reader at the given frame offset from the
	// start of the file.
	SeekFrame(offset int64) error
}

// NewReader returns a closed SampleReader for the file's extension.
func NewReader(path string) (SampleReader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return &WAVReader{}, nil
	case ".flac":
		return &FLACReader{}, nil
	default:
		return nil, errors.New(audiocore.ErrUnsupportedFile).
			Component(errors.ComponentDecode).
			Category(errors.CategoryValidation).
			Context("path", path).
			Build()
	}
}

// sampleDivisor maps a PCM bit depth to the divisor that normalizes an
// integer sample into [-1, 1).
func sampleDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, errors.Newf("unsupported bit depth: %d", bitDepth).
			Component(errors.ComponentDecode).
			Category(errors.CategoryDecode).
			Build()
	}
}
