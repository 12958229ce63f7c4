package screencap

import (
	"errors"
	"fmt"
	"sync"

	"github.com/y9o/go-openh264/openh264enc"
)

// softwareEncoder wraps go-openh264, a pure-software H.264 encoder. It is
// the only backend registered by this repository — the hardware factories
// the interface supports (NVENC, VideoToolbox, Media Foundation) have no
// local implementation, so EncoderConfig.PreferHardware always falls back
// here.
type softwareEncoder struct {
	mu sync.Mutex

	cfg    EncoderConfig
	pf     PixelFormat
	width  int
	height int

	enc          *openh264enc.Encoder
	forceKeyNext bool
}

func newSoftwareEncoder(cfg EncoderConfig) (encoderBackend, error) {
	return &softwareEncoder{cfg: cfg, pf: PixelFormatRGBA}, nil
}

// ensureEncoder lazily (re)creates the underlying encoder once the frame
// dimensions are known; go-openh264 requires width/height up front and
// SetDimensions may arrive after the backend is constructed.
func (s *softwareEncoder) ensureEncoder() error {
	if s.width == 0 || s.height == 0 {
		return errors.New("screencap: encoder dimensions not set")
	}
	if s.enc != nil {
		return nil
	}

	opts := openh264enc.DefaultOptions()
	opts.Width = s.width
	opts.Height = s.height
	opts.FPS = float32(s.cfg.FPS)
	opts.BitrateBps = s.cfg.Bitrate
	opts.RateControl = openh264enc.RateControlQuality

	enc, err := openh264enc.NewEncoder(opts)
	if err != nil {
		return fmt.Errorf("screencap: open h264 encoder: %w", err)
	}
	s.enc = enc
	s.forceKeyNext = true
	return nil
}

// Encode compresses one BGRA frame into an Annex-B H.264 access unit; the
// configured pixel format is not consulted. Forces an IDR when
// forceKeyNext is set, which happens on first use and after ForceKeyframe.
func (s *softwareEncoder) Encode(frame []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(frame) == 0 {
		return nil, errors.New("empty frame")
	}
	if err := s.ensureEncoder(); err != nil {
		return nil, err
	}

	if s.forceKeyNext {
		s.enc.ForceIntraFrame()
		s.forceKeyNext = false
	}

	nals, err := s.enc.EncodeBGRA(frame)
	if err != nil {
		return nil, fmt.Errorf("screencap: h264 encode: %w", err)
	}
	return nals, nil
}

func (s *softwareEncoder) SetCodec(codec Codec) error {
	if !codec.valid() {
		return fmt.Errorf("%w: %s", ErrInvalidCodec, codec)
	}
	if codec != CodecH264 {
		return fmt.Errorf("%w: software backend only supports h264", ErrInvalidCodec)
	}
	s.mu.Lock()
	s.cfg.Codec = codec
	s.mu.Unlock()
	return nil
}

func (s *softwareEncoder) SetQuality(quality QualityPreset) error {
	if !quality.valid() {
		return fmt.Errorf("%w: %s", ErrInvalidQuality, quality)
	}
	s.mu.Lock()
	s.cfg.Quality = quality
	s.mu.Unlock()
	return nil
}

func (s *softwareEncoder) SetBitrate(bitrate int) error {
	if bitrate <= 0 {
		return ErrInvalidBitrate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Bitrate = bitrate
	if s.enc != nil {
		s.enc.SetBitrateBps(bitrate)
	}
	return nil
}

func (s *softwareEncoder) SetFPS(fps int) error {
	if fps <= 0 {
		return ErrInvalidFPS
	}
	s.mu.Lock()
	s.cfg.FPS = fps
	s.mu.Unlock()
	return nil
}

func (s *softwareEncoder) SetDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("screencap: invalid dimensions %dx%d", width, height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width == width && s.height == height {
		return nil
	}
	if s.enc != nil {
		s.enc.Close()
		s.enc = nil
	}
	s.width, s.height = width, height
	return nil
}

func (s *softwareEncoder) SetPixelFormat(pf PixelFormat) {
	s.mu.Lock()
	s.pf = pf
	s.mu.Unlock()
}

// Flush forces the next encoded frame to be an IDR keyframe. go-openh264
// has no buffered look-ahead to discard (it encodes frame-by-frame), so
// Flush and ForceKeyframe have the same effect here.
func (s *softwareEncoder) Flush() error {
	s.mu.Lock()
	s.forceKeyNext = true
	s.mu.Unlock()
	return nil
}

func (s *softwareEncoder) ForceKeyframe() error {
	return s.Flush()
}

func (s *softwareEncoder) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enc == nil {
		return nil
	}
	err := s.enc.Close()
	s.enc = nil
	return err
}

func (s *softwareEncoder) Name() string {
	return "openh264-software"
}

func (s *softwareEncoder) IsHardware() bool {
	return false
}

func (s *softwareEncoder) IsPlaceholder() bool {
	return false
}

func (s *softwareEncoder) SetD3D11Device(device, context uintptr) {}

func (s *softwareEncoder) SupportsGPUInput() bool { return false }

func (s *softwareEncoder) EncodeTexture(bgraTexture uintptr) ([]byte, error) {
	return nil, errors.New("screencap: software backend does not support GPU texture input")
}
