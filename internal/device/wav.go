package device

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/errors"
	"github.com/tphakala/go-audioclient/internal/logger"
)

// WAVSink renders into a WAV file. The file is created when the engine
// opens a stream and finalised on Close.
type WAVSink struct {
	base
	path string

	mu      sync.Mutex
	file    *os.File
	enc     *wav.Encoder
	format  engine.Format
	samples []int
	frames  uint64
}

// NewWAVSink returns a render endpoint writing to path. mix is the format
// offered to shared-mode clients and must be integer PCM.
func NewWAVSink(id engine.DeviceID, path string, mix engine.Format) *WAVSink {
	return &WAVSink{
		base: base{
			id:     id,
			name:   filepath.Base(path),
			flow:   engine.Render,
			mix:    mix,
			period: DefaultPeriod,
		},
		path: path,
	}
}

// Open creates the output file for format
func (w *WAVSink) Open(format engine.Format) error {
	if !isIntegerPCM(format) {
		return unsupportedFormat(w.id, format, "wav sink writes integer pcm only")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		return errors.Newf("wav sink %s already open", w.id).
			Component(ComponentDevice).
			Category(errors.CategoryState).
			Build()
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return errors.New(err).
			Component(ComponentDevice).
			Category(errors.CategoryFileIO).
			Context("path", w.path).
			Build()
	}
	f, err := os.Create(w.path)
	if err != nil {
		return errors.New(err).
			Component(ComponentDevice).
			Category(errors.CategoryFileIO).
			Context("path", w.path).
			Build()
	}

	w.file = f
	w.format = format
	w.frames = 0
	w.enc = wav.NewEncoder(f, int(format.SampleRate), int(format.BitsPerSample), int(format.Channels), 1)

	deviceLogger().Debug("wav sink opened",
		logger.String("device", string(w.id)),
		logger.String("path", w.path),
		logger.String("format", format.String()))
	return nil
}

// WriteFrames appends frames to the file
func (w *WAVSink) WriteFrames(data []byte, frames uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.enc == nil {
		return notOpen(w.id)
	}

	n := min(int(frames)*w.format.BlockAlign(), len(data))
	w.samples = DecodePCM(w.format.BitsPerSample, data[:n], w.samples)

	buf := &audio.IntBuffer{
		Data:           w.samples,
		Format:         &audio.Format{SampleRate: int(w.format.SampleRate), NumChannels: int(w.format.Channels)},
		SourceBitDepth: int(w.format.BitsPerSample),
	}
	if err := w.enc.Write(buf); err != nil {
		return errors.New(err).
			Component(ComponentDevice).
			Category(errors.CategoryFileIO).
			Context("path", w.path).
			Build()
	}
	w.frames += uint64(frames)
	return nil
}

// Frames returns the number of frames written since Open
func (w *WAVSink) Frames() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Close finalises the WAV header and closes the file
func (w *WAVSink) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}

	encErr := w.enc.Close()
	fileErr := w.file.Close()
	w.enc = nil
	w.file = nil

	if err := errors.Join(encErr, fileErr); err != nil {
		return errors.New(err).
			Component(ComponentDevice).
			Category(errors.CategoryFileIO).
			Context("path", w.path).
			Build()
	}

	deviceLogger().Debug("wav sink closed",
		logger.String("device", string(w.id)),
		logger.Uint64("frames", w.frames))
	return nil
}

// WAVSource captures from a WAV file. Its mix format is the file format and
// it only accepts that format.
type WAVSource struct {
	base
	path string

	mu        sync.Mutex
	file      *os.File
	dec       *wav.Decoder
	buf       *audio.IntBuffer
	opened    bool
	exhausted atomic.Bool
}

// OpenWAVSource reads the header of path and returns a capture endpoint
func OpenWAVSource(id engine.DeviceID, path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentDevice).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		_ = f.Close()
		return nil, errors.Newf("invalid wav file").
			Component(ComponentDevice).
			Category(errors.CategoryFormat).
			Context("path", path).
			Build()
	}

	mix := engine.Format{
		Tag:           engine.FormatPCM,
		Channels:      dec.NumChans,
		SampleRate:    dec.SampleRate,
		BitsPerSample: dec.BitDepth,
		ChannelMask:   engine.DefaultChannelMask(dec.NumChans),
	}
	if !isIntegerPCM(mix) || dec.WavAudioFormat != 1 {
		_ = f.Close()
		return nil, unsupportedFormat(id, mix, "wav source reads 16 or 32 bit integer pcm only")
	}
	if err := mix.Validate(); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &WAVSource{
		base: base{
			id:     id,
			name:   filepath.Base(path),
			flow:   engine.Capture,
			mix:    mix,
			period: DefaultPeriod,
		},
		path: path,
		file: f,
		dec:  dec,
	}, nil
}

// Open accepts only the file format
func (s *WAVSource) Open(format engine.Format) error {
	if !format.Equal(&s.mix) {
		return unsupportedFormat(s.id, format, "wav source cannot convert from "+s.mix.String())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dec == nil {
		return notOpen(s.id)
	}
	s.opened = true
	return nil
}

// ReadFrames decodes up to frames frames. It returns zero once the file is
// exhausted.
func (s *WAVSource) ReadFrames(data []byte, frames uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return 0, notOpen(s.id)
	}
	if s.exhausted.Load() {
		return 0, nil
	}

	ch := int(s.mix.Channels)
	want := int(frames) * ch
	if s.buf == nil || cap(s.buf.Data) < want {
		s.buf = &audio.IntBuffer{
			Data:           make([]int, want),
			Format:         &audio.Format{SampleRate: int(s.mix.SampleRate), NumChannels: ch},
			SourceBitDepth: int(s.mix.BitsPerSample),
		}
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, errors.New(err).
			Component(ComponentDevice).
			Category(errors.CategoryFileIO).
			Context("path", s.path).
			Build()
	}

	got := n / ch
	if got < int(frames) {
		s.exhausted.Store(true)
	}
	if got == 0 {
		return 0, nil
	}
	EncodePCM(s.mix.BitsPerSample, s.buf.Data[:got*ch], data)
	return uint32(got), nil
}

// Exhausted reports whether the whole file has been read
func (s *WAVSource) Exhausted() bool {
	return s.exhausted.Load()
}

// Close releases the file
func (s *WAVSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.opened = false
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.dec = nil
	if err != nil {
		return errors.New(err).
			Component(ComponentDevice).
			Category(errors.CategoryFileIO).
			Context("path", s.path).
			Build()
	}
	return nil
}
