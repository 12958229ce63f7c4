package capture

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/actiontrace/capture/internal/storage"
)

// CaptureSession is the read-only API over a finished recording's on-disk
// artifacts: the SQLite database, the MP4 container, and (if narrated) the
// FLAC audio. Built fresh per recording directory; it never writes.
type CaptureSession struct {
	dir         string
	recordingID int64
	store       *storage.Store
}

// Load opens a recording directory, expecting the layout written by
// Recorder: recording.db, video.mp4, profiling.json.
func Load(dir string, recordingID int64) (*CaptureSession, error) {
	store, err := storage.OpenExisting(filepath.Join(dir, "recording.db"))
	if err != nil {
		return nil, fmt.Errorf("capture: open session db: %w", err)
	}
	return &CaptureSession{dir: dir, recordingID: recordingID, store: store}, nil
}

// Close releases the underlying database handle.
func (s *CaptureSession) Close() error { return s.store.Close() }

// VideoPath returns the absolute path to the recording's MP4 container.
// The path is returned whether or not video was recorded; the file exists
// only when it was.
func (s *CaptureSession) VideoPath() string {
	return filepath.Join(s.dir, "video.mp4")
}

// AudioPath returns the path <dir>/audio.flac. Nothing in this package
// writes that file: the recorded FLAC data is stored only in the
// audio_info.flac_data column of the database.
func (s *CaptureSession) AudioPath() string {
	return filepath.Join(s.dir, "audio.flac")
}

// ProfilingPath returns the absolute path to the recording's
// profiling.json summary.
func (s *CaptureSession) ProfilingPath() string {
	return filepath.Join(s.dir, "profiling.json")
}

// Actions returns the recording's merged action events: clicks, drags,
// typed text, scrolls. RawEvents returns the unmerged primitives backing
// them. Both are ordered by timestamp.
func (s *CaptureSession) Actions(doubleClickInterval, doubleClickDistance float64) ([]*ActionEvent, error) {
	raw, err := s.RawEvents()
	if err != nil {
		return nil, err
	}
	return MergeEvents(raw, doubleClickInterval, doubleClickDistance), nil
}

// RawEvents loads every stored action_event row, reconstructed as
// ActionEvent values (children are not reconstructed; they only exist
// in-memory during an active MergeEvents pass).
func (s *CaptureSession) RawEvents() ([]*ActionEvent, error) {
	rows, err := s.store.ActionEvents(s.recordingID)
	if err != nil {
		return nil, err
	}
	out := make([]*ActionEvent, 0, len(rows))
	for _, row := range rows {
		e := NewActionEvent(EventKind(row.Name), row.Timestamp)
		e.MouseX, e.MouseY = row.MouseX, row.MouseY
		e.MouseDX, e.MouseDY = row.MouseDX, row.MouseDY
		e.Button = MouseButton(row.MouseButtonName)
		e.Pressed = row.MousePressed
		e.Key = Key{Name: row.KeyName, Char: row.KeyChar}
		e.Canonical = Key{Name: row.CanonicalKeyName, Char: row.CanonicalKeyChar}
		e.Disabled = row.Disabled
		out = append(out, e)
	}
	return out, nil
}

// Duration returns the recording's wall-clock length, taken as the
// timestamp of its last action event.
func (s *CaptureSession) Duration() (float64, error) {
	return s.store.LastActionEventTimestamp(s.recordingID)
}

// FrameAt returns the encoded H.264 sample (NAL units, Annex-B-less,
// length-prefixed as muxed) whose presentation time is closest to ts. It
// does not decode the sample to pixels — callers needing a displayable
// image are expected to feed the sample into their own H.264 decoder
// alongside the container's avcC record (VideoPath) rather than
// have every CaptureSession consumer link one in.
func (s *CaptureSession) FrameAt(ts float64) ([]byte, error) {
	f, err := os.Open(s.VideoPath())
	if err != nil {
		return nil, fmt.Errorf("capture: open video: %w", err)
	}
	defer f.Close()

	parsed, err := mp4.DecodeFile(f)
	if err != nil {
		return nil, fmt.Errorf("capture: parse mp4: %w", err)
	}
	if parsed.Moov == nil || len(parsed.Moov.Traks) == 0 {
		return nil, fmt.Errorf("capture: video container has no video track")
	}
	trak := parsed.Moov.Traks[0]
	timescale := trak.Mdia.Mdhd.Timescale

	targetTime := uint64(ts * float64(timescale))

	stts := trak.Mdia.Minf.Stbl.Stts
	stco := trak.Mdia.Minf.Stbl.Stco
	stsz := trak.Mdia.Minf.Stbl.Stsz

	var accTime uint64
	sampleIdx := 0
	for i := 0; i < int(stts.GetTotalSampleCount()) && i < len(stco.ChunkOffset); i++ {
		dur := stts.GetDur(uint32(i))
		if accTime+uint64(dur) > targetTime || i == int(stts.GetTotalSampleCount())-1 {
			sampleIdx = i
			break
		}
		accTime += uint64(dur)
	}

	if sampleIdx >= len(stco.ChunkOffset) {
		return nil, fmt.Errorf("capture: no sample near timestamp %v", ts)
	}
	offset := stco.ChunkOffset[sampleIdx]
	size := stsz.GetSampleSize(uint32(sampleIdx + 1))

	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("capture: read sample: %w", err)
	}
	return buf, nil
}

// EndedAt returns the recording's absolute wall-clock end time.
func (s *CaptureSession) EndedAt() (float64, error) {
	rec, err := s.store.GetRecording(s.recordingID)
	if err != nil {
		return 0, err
	}
	dur, err := s.Duration()
	if err != nil {
		return 0, err
	}
	return rec.Timestamp + dur, nil
}
