package capture

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
	"github.com/sklyt/whisper"

	"github.com/actiontrace/capture/internal/storage"
)

const audioSampleRate = 16000

// AudioCapturer records the whole session's narration track in one
// contiguous buffer (unlike the per-tick event streams, there is no inbox
// hop: portaudio's own callback thread appends directly into the
// capturer's buffer, and the writer flushes it once, at session end).
type AudioCapturer struct {
	stream *portaudio.Stream
	buf    []int16
	clock  Clock
	logger *slog.Logger
}

// NewAudioCapturer opens the default input device at audioSampleRate,
// mono, 16-bit.
func NewAudioCapturer(clock Clock, logger *slog.Logger) (*AudioCapturer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("capture: portaudio init: %w", err)
	}

	c := &AudioCapturer{clock: clock, logger: logger}
	frameBuf := make([]int16, 1024)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(audioSampleRate), len(frameBuf), func(in []int16) {
		c.buf = append(c.buf, in...)
	})
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("capture: open audio stream: %w", err)
	}
	c.stream = stream
	return c, nil
}

// Start begins capture until ctx is canceled.
func (c *AudioCapturer) Start(ctx context.Context) error {
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("capture: start audio stream: %w", err)
	}
	go func() {
		<-ctx.Done()
		c.stream.Stop()
	}()
	return nil
}

// Close releases the stream and the portaudio runtime.
func (c *AudioCapturer) Close() error {
	err := c.stream.Close()
	portaudio.Terminate()
	return err
}

// Samples returns the accumulated PCM buffer, for encoding at session end.
func (c *AudioCapturer) Samples() []int16 { return c.buf }

// EncodeFLAC compresses a whole-session PCM buffer into a single FLAC
// stream, matching the one-AudioInfo-row-per-recording shape of the
// persisted schema (there is no incremental/chunked FLAC write — the
// buffer is only final once capture stops).
func EncodeFLAC(samples []int16, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := flac.NewEncoder(&buf, &meta.StreamInfo{
		SampleRate:    uint32(sampleRate),
		NChannels:     1,
		BitsPerSample: 16,
	})
	if err != nil {
		return nil, fmt.Errorf("capture: flac encoder: %w", err)
	}

	const blockSize = 4096
	for off := 0; off < len(samples); off += blockSize {
		end := off + blockSize
		if end > len(samples) {
			end = len(samples)
		}
		block := samples[off:end]
		subframe := make([]int32, len(block))
		for i, s := range block {
			subframe[i] = int32(s)
		}
		if err := enc.WriteFrame(&frame.Frame{
			Subframes: []*frame.Subframe{{Samples: subframe}},
		}); err != nil {
			return nil, fmt.Errorf("capture: flac write frame: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("capture: flac close: %w", err)
	}
	return buf.Bytes(), nil
}

// TranscribeAudio runs offline speech-to-text over the session's raw PCM
// and returns both the flattened transcript and a JSON-encodable
// word-timestamp list, persisted as audio_info.transcribed_text and
// .words_with_timestamps respectively.
func TranscribeAudio(samples []int16, sampleRate int) (text string, wordsJSON string, err error) {
	model, err := whisper.New(whisper.DefaultModel)
	if err != nil {
		return "", "", fmt.Errorf("capture: load whisper model: %w", err)
	}
	defer model.Close()

	floats := make([]float32, len(samples))
	for i, s := range samples {
		floats[i] = float32(s) / 32768.0
	}

	result, err := model.Transcribe(floats, sampleRate)
	if err != nil {
		return "", "", fmt.Errorf("capture: transcribe: %w", err)
	}
	return result.Text, result.WordsJSON(), nil
}

// AudioWriter persists the finished FLAC blob and transcript once capture
// stops.
type AudioWriter struct {
	store       *storage.Store
	recordingID int64
}

func NewAudioWriter(store *storage.Store, recordingID int64) *AudioWriter {
	return &AudioWriter{store: store, recordingID: recordingID}
}

func (w *AudioWriter) Write(ts float64, flacData []byte, transcribedText, wordsJSON string, sampleRate int) error {
	_, err := w.store.InsertAudioInfo(&storage.AudioInfoRow{
		RecordingID:         w.recordingID,
		Timestamp:           ts,
		FLACData:            flacData,
		TranscribedText:     transcribedText,
		SampleRate:          sampleRate,
		WordsWithTimestamps: wordsJSON,
	})
	return err
}
