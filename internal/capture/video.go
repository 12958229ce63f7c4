package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/actiontrace/capture/internal/screencap"
	"github.com/actiontrace/capture/internal/storage"
)

const videoTimescale = 90000

// VideoWriter is the dedicated video-encoding worker: it owns the
// screencap.VideoEncoder, the mp4ff-backed fragmented-MP4 muxer, and the
// output file, and is the sole writer on the *os.File (shutdown closes the
// container from the same goroutine that wrote every fragment, so no
// Close-while-writing race is possible).
//
// It implements EncoderSink so the router can submit frames to it exactly
// like any other writer queue.
type VideoWriter struct {
	queue  chan *ScreenEvent
	done   chan struct{}
	logger *slog.Logger

	store       *storage.Store
	recordingID int64

	enc *screencap.VideoEncoder
	out *os.File

	fps                int
	pixelFormat        screencap.PixelFormat
	videoStartTS       float64
	haveVideoStartTS   bool
	lastPTS            int64
	havePTS            bool
	frameNum           uint32
	width, height      int
	initialized        bool
	sps, pps           []byte
	onVideoStart       func(ts float64)

	// lastFrame is re-encoded as a forced keyframe in finalize so the tail
	// of the container is decodable on its own.
	lastFrame *ScreenEvent
}

// NewVideoWriter opens outputPath for writing and constructs the encoder.
// onVideoStart is invoked once, with the first submitted frame's
// timestamp, so the caller can backfill recording.video_start_time.
func NewVideoWriter(store *storage.Store, recordingID int64, outputPath string, cfg screencap.EncoderConfig, pixelFormat screencap.PixelFormat, queueSize int, onVideoStart func(ts float64), logger *slog.Logger) (*VideoWriter, error) {
	enc, err := screencap.NewVideoEncoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("capture: construct video encoder: %w", err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("capture: create video file: %w", err)
	}

	vw := &VideoWriter{
		queue:        make(chan *ScreenEvent, queueSize),
		done:         make(chan struct{}),
		logger:       logger,
		store:        store,
		recordingID:  recordingID,
		enc:          enc,
		out:          out,
		fps:          cfg.FPS,
		pixelFormat:  pixelFormat,
		onVideoStart: onVideoStart,
	}
	enc.SetPixelFormat(pixelFormat)
	return vw, nil
}

// Submit implements EncoderSink. A nil event is the shutdown sentinel.
func (vw *VideoWriter) Submit(evt *ScreenEvent) {
	vw.queue <- evt
}

// Run drains the queue until the sentinel (nil) is received, then finalizes
// and closes the container. Intended to run in its own goroutine.
func (vw *VideoWriter) Run() {
	defer close(vw.done)
	for evt := range vw.queue {
		if evt == nil {
			vw.finalize()
			return
		}
		if err := vw.encodeAndMux(evt); err != nil {
			vw.logger.Error("video writer: frame dropped", "error", err)
		}
	}
}

// Wait blocks until Run has finalized the container, bounded by ctx.
func (vw *VideoWriter) Wait(ctx context.Context) {
	select {
	case <-vw.done:
	case <-ctx.Done():
		vw.logger.Warn("video writer: finalize timed out")
	}
}

func (vw *VideoWriter) encodeAndMux(evt *ScreenEvent) error {
	timer := StartPerfTimer(vw.store, vw.recordingID, string(KindScreenFrame), "")
	defer timer.Stop()

	vw.lastFrame = evt

	b := evt.Image.Bounds()
	if vw.width != b.Dx() || vw.height != b.Dy() {
		vw.width, vw.height = b.Dx(), b.Dy()
		if err := vw.enc.SetDimensions(vw.width, vw.height); err != nil {
			return fmt.Errorf("set dimensions: %w", err)
		}
	}

	pixels := rgbaToBGRA(evt.Image)

	if !vw.haveVideoStartTS {
		vw.videoStartTS = evt.Timestamp()
		vw.haveVideoStartTS = true
		if err := vw.enc.ForceKeyframe(); err != nil {
			vw.logger.Warn("video writer: force first keyframe failed", "error", err)
		}
		if vw.onVideoStart != nil {
			vw.onVideoStart(vw.videoStartTS)
		}
	}

	nalData, err := vw.enc.Encode(pixels)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	pts := int64(math.Round(float64(vw.fps) * (evt.Timestamp() - vw.videoStartTS)))
	if pts < 0 {
		pts = 0
	}
	if vw.havePTS && pts <= vw.lastPTS {
		pts = vw.lastPTS + 1
	}
	vw.lastPTS = pts
	vw.havePTS = true

	return vw.mux(nalData, pts)
}

// mux demultiplexes NAL units out of nalData, captures SPS/PPS on first
// sight to build the init segment, and writes every subsequent access unit
// as its own fragmented-MP4 media segment.
func (vw *VideoWriter) mux(nalData []byte, pts int64) error {
	nalus := avc.ExtractNalusFromByteStream(nalData)
	if len(nalus) == 0 {
		return nil
	}

	isKeyframe := false
	var frameNALUs [][]byte
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		switch nalu[0] & 0x1F {
		case 7:
			vw.sps = append([]byte(nil), nalu...)
		case 8:
			vw.pps = append([]byte(nil), nalu...)
		case 5:
			isKeyframe = true
			frameNALUs = append(frameNALUs, nalu)
		default:
			frameNALUs = append(frameNALUs, nalu)
		}
	}

	if !vw.initialized && vw.sps != nil && vw.pps != nil {
		if err := vw.writeInitSegment(); err != nil {
			return err
		}
		vw.initialized = true
	}
	if !vw.initialized || len(frameNALUs) == 0 {
		return nil
	}

	return vw.writeMediaSegment(frameNALUs, isKeyframe, pts)
}

func (vw *VideoWriter) writeInitSegment() error {
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(videoTimescale, "video", "und")

	trak := init.Moov.Trak
	stsd := trak.Mdia.Minf.Stbl.Stsd

	avcC, err := mp4.CreateAvcC([][]byte{vw.sps}, [][]byte{vw.pps}, true)
	if err != nil {
		return fmt.Errorf("capture: create avcC: %w", err)
	}
	avcx := mp4.CreateVisualSampleEntryBox("avc1", uint16(vw.width), uint16(vw.height), avcC)
	stsd.AddChild(avcx)

	var buf bytes.Buffer
	if err := init.Encode(&buf); err != nil {
		return fmt.Errorf("capture: encode mp4 init segment: %w", err)
	}
	_, err = vw.out.Write(buf.Bytes())
	return err
}

func (vw *VideoWriter) writeMediaSegment(nalus [][]byte, isKeyframe bool, pts int64) error {
	vw.frameNum++

	var sampleData []byte
	for _, nalu := range nalus {
		lenBuf := []byte{byte(len(nalu) >> 24), byte(len(nalu) >> 16), byte(len(nalu) >> 8), byte(len(nalu))}
		sampleData = append(sampleData, lenBuf...)
		sampleData = append(sampleData, nalu...)
	}

	dur := uint32(videoTimescale / vw.fps)

	frag, err := mp4.CreateFragment(vw.frameNum, 1)
	if err != nil {
		return fmt.Errorf("capture: create mp4 fragment: %w", err)
	}

	sample := mp4.FullSample{
		Sample: mp4.Sample{
			Flags: mp4.NonSyncSampleFlags,
			Dur:   dur,
			Size:  uint32(len(sampleData)),
		},
		DecodeTime: uint64(pts),
		Data:       sampleData,
	}
	if isKeyframe {
		sample.Sample.Flags = mp4.SyncSampleFlags
	}
	frag.AddFullSample(sample)

	var buf bytes.Buffer
	if err := frag.Encode(&buf); err != nil {
		return fmt.Errorf("capture: encode mp4 fragment: %w", err)
	}
	_, err = vw.out.Write(buf.Bytes())
	return err
}

// finalize re-encodes the last received frame once more as a forced
// keyframe and muxes it before closing, so the container's tail is
// decodable on its own even if the true last frame was a P-frame — a
// decoder seeking to the end never has to walk back past the final GOP.
func (vw *VideoWriter) finalize() {
	if vw.lastFrame != nil {
		if err := vw.enc.ForceKeyframe(); err != nil {
			vw.logger.Warn("video writer: finalize keyframe request failed", "error", err)
		} else if err := vw.encodeAndMux(vw.lastFrame); err != nil {
			vw.logger.Warn("video writer: final keyframe re-encode failed", "error", err)
		}
	}
	if err := vw.enc.Close(); err != nil {
		vw.logger.Warn("video writer: encoder close failed", "error", err)
	}
	if err := vw.out.Close(); err != nil {
		vw.logger.Warn("video writer: file close failed", "error", err)
	}
}

// rgbaToBGRA swaps the R and B channels in place on a copy of img's pixel
// buffer, matching the BGRA byte order go-openh264 (and most platform
// capturers) expect.
func rgbaToBGRA(img *image.RGBA) []byte {
	out := make([]byte, len(img.Pix))
	copy(out, img.Pix)
	for i := 0; i+3 < len(out); i += 4 {
		out[i], out[i+2] = out[i+2], out[i]
	}
	return out
}
