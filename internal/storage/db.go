package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// ErrAlreadyExists is returned by Create when path already names a non-empty
// database file — a recording directory is created once per session and
// never reused.
var ErrAlreadyExists = errors.New("storage: database already exists")

// ErrMissingRecording is returned by Open when path has a valid schema but
// no recording row has been inserted yet — every read/join path requires a
// recording to already exist; only Create starts one.
var ErrMissingRecording = errors.New("storage: no recording found")

// Store wraps a single SQLite connection. The recorder's writers all share
// one Store; maxOpen(1) means database/sql serializes their statements on
// that one connection without an in-process mutex of its own.
type Store struct {
	db *sql.DB
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return db, nil
}

// Create builds the schema at path and returns a Store connected to it.
// Fails with ErrAlreadyExists if a non-empty database already exists at
// path — a recording owns its database file for its entire lifetime, so
// Create is only ever called once per recording.
func Create(path string) (*Store, error) {
	if path != ":memory:" {
		if info, err := os.Stat(path); err == nil {
			if info.Size() > 0 {
				return nil, ErrAlreadyExists
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("storage: stat %s: %w", path, err)
		}
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Open connects to an already-initialized database file without
// re-applying the schema's CREATE TABLE statements beyond their natural
// idempotency (IF NOT EXISTS). Fails with ErrMissingRecording if no
// recording row exists yet — Open is for readers and writer goroutines
// joining a recording already started by Create, never for starting one.
func Open(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM recording`).Scan(&count); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: check recording table: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, ErrMissingRecording
	}
	return &Store{db: db}, nil
}

// OpenExisting is Open under the name used by call sites that are
// specifically rejoining a recording already in progress (a writer
// goroutine, a read-only CaptureSession), for readability at the call site.
func OpenExisting(path string) (*Store, error) {
	return Open(path)
}

func (s *Store) Close() error { return s.db.Close() }

// Recording is the top-level row every other table's rows reference.
type Recording struct {
	ID                         int64
	Timestamp                  float64
	MonitorWidth               int
	MonitorHeight              int
	DoubleClickIntervalSeconds float64
	DoubleClickDistancePixels  float64
	Platform                   string
	TaskDescription            string
	VideoStartTime             float64
	Config                     map[string]any
	OriginalRecordingID        *int64
}

// InsertRecording creates the recording row and returns its assigned id.
func (s *Store) InsertRecording(r *Recording) (int64, error) {
	cfgJSON, err := json.Marshal(r.Config)
	if err != nil {
		return 0, fmt.Errorf("storage: marshal recording config: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO recording (timestamp, monitor_width, monitor_height,
			double_click_interval_seconds, double_click_distance_pixels,
			platform, task_description, video_start_time, config, original_recording_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp, r.MonitorWidth, r.MonitorHeight,
		r.DoubleClickIntervalSeconds, r.DoubleClickDistancePixels,
		r.Platform, r.TaskDescription, r.VideoStartTime, string(cfgJSON), r.OriginalRecordingID,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: insert recording: %w", err)
	}
	return res.LastInsertId()
}

// SetVideoStartTime backfills video_start_time once the encoder has
// written its first frame (the recording row is created before the
// encoder opens its container).
func (s *Store) SetVideoStartTime(recordingID int64, ts float64) error {
	_, err := s.db.Exec(`UPDATE recording SET video_start_time = ? WHERE id = ?`, ts, recordingID)
	return err
}

// ActionEventRow is the flattened, nullable-aware row shape written for
// every mouse/keyboard primitive and merged action.
type ActionEventRow struct {
	RecordingID           int64
	Name                  string
	Timestamp             float64
	RecordingTimestamp    float64
	HasScreenshotTS        bool
	ScreenshotTimestamp    float64
	HasWindowEventTS       bool
	WindowEventTimestamp   float64
	MouseX, MouseY         float64
	HasMouse               bool
	MouseDX, MouseDY       float64
	MouseButtonName        string
	MousePressed           bool
	HasMousePressed        bool
	KeyName, KeyChar, KeyVK string
	CanonicalKeyName        string
	CanonicalKeyChar        string
	CanonicalKeyVK          string
	ParentID                *int64
	ElementState            []byte
	Disabled                bool
}

// InsertActionEvent writes one action_event row and returns its id.
func (s *Store) InsertActionEvent(row *ActionEventRow) (int64, error) {
	var elementState any
	if len(row.ElementState) > 0 {
		elementState = row.ElementState
	}

	res, err := s.db.Exec(
		`INSERT INTO action_event (name, timestamp, recording_timestamp, recording_id,
			screenshot_timestamp, window_event_timestamp,
			mouse_x, mouse_y, mouse_dx, mouse_dy, mouse_button_name, mouse_pressed,
			key_name, key_char, key_vk, canonical_key_name, canonical_key_char, canonical_key_vk,
			parent_id, element_state, disabled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.Name, row.Timestamp, row.RecordingTimestamp, row.RecordingID,
		nullableFloat(row.HasScreenshotTS, row.ScreenshotTimestamp),
		nullableFloat(row.HasWindowEventTS, row.WindowEventTimestamp),
		nullableFloat(row.HasMouse, row.MouseX), nullableFloat(row.HasMouse, row.MouseY),
		nullableFloat(row.HasMouse, row.MouseDX), nullableFloat(row.HasMouse, row.MouseDY),
		nullableString(row.MouseButtonName), nullableBool(row.HasMousePressed, row.MousePressed),
		nullableString(row.KeyName), nullableString(row.KeyChar), nullableString(row.KeyVK),
		nullableString(row.CanonicalKeyName), nullableString(row.CanonicalKeyChar), nullableString(row.CanonicalKeyVK),
		row.ParentID, elementState, row.Disabled,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: insert action_event: %w", err)
	}
	return res.LastInsertId()
}

// LinkActionEventScreenshot backfills screenshot_id/browser_event_id once the
// corresponding screenshot/browser row has been written (the action event
// is written with only the timestamp known, ahead of the later PostProcess
// pass that resolves ids).
func (s *Store) LinkActionEventScreenshot(actionEventID, screenshotID int64) error {
	_, err := s.db.Exec(`UPDATE action_event SET screenshot_id = ? WHERE id = ?`, screenshotID, actionEventID)
	return err
}

func (s *Store) LinkActionEventWindow(actionEventID, windowEventID int64) error {
	_, err := s.db.Exec(`UPDATE action_event SET window_event_id = ? WHERE id = ?`, windowEventID, actionEventID)
	return err
}

func (s *Store) LinkActionEventBrowser(actionEventID, browserEventID int64) error {
	_, err := s.db.Exec(`UPDATE action_event SET browser_event_id = ? WHERE id = ?`, browserEventID, actionEventID)
	return err
}

// WindowEventRow is a window_event table row.
type WindowEventRow struct {
	RecordingID        int64
	RecordingTimestamp float64
	Timestamp          float64
	State              []byte
	Title              string
	Left, Top          int
	Width, Height      int
	WindowID           string
}

func (s *Store) InsertWindowEvent(row *WindowEventRow) (int64, error) {
	var state any
	if len(row.State) > 0 {
		state = row.State
	}
	res, err := s.db.Exec(
		`INSERT INTO window_event (recording_timestamp, recording_id, timestamp, state, title, left, top, width, height, window_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.RecordingTimestamp, row.RecordingID, row.Timestamp, state,
		row.Title, row.Left, row.Top, row.Width, row.Height, row.WindowID,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: insert window_event: %w", err)
	}
	return res.LastInsertId()
}

// WindowEvents returns every window_event row for a recording, ordered by
// timestamp.
func (s *Store) WindowEvents(recordingID int64) ([]WindowEventRow, error) {
	rows, err := s.db.Query(
		`SELECT timestamp, title, left, top, width, height, window_id
		 FROM window_event WHERE recording_id = ? ORDER BY timestamp ASC`,
		recordingID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: query window_event: %w", err)
	}
	defer rows.Close()

	var out []WindowEventRow
	for rows.Next() {
		var row WindowEventRow
		row.RecordingID = recordingID
		if err := rows.Scan(&row.Timestamp, &row.Title, &row.Left, &row.Top, &row.Width, &row.Height, &row.WindowID); err != nil {
			return nil, fmt.Errorf("storage: scan window_event: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// BrowserEventRow is a browser_event table row.
type BrowserEventRow struct {
	RecordingID        int64
	RecordingTimestamp float64
	Timestamp          float64
	Message            []byte
}

func (s *Store) InsertBrowserEvent(row *BrowserEventRow) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO browser_event (recording_timestamp, recording_id, message, timestamp) VALUES (?, ?, ?, ?)`,
		row.RecordingTimestamp, row.RecordingID, row.Message, row.Timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: insert browser_event: %w", err)
	}
	return res.LastInsertId()
}

// ScreenshotRow is a screenshot table row.
type ScreenshotRow struct {
	RecordingID        int64
	RecordingTimestamp float64
	Timestamp          float64
	PNGData            []byte
	PNGDiffData        []byte
	PNGDiffMaskData    []byte
}

func (s *Store) InsertScreenshot(row *ScreenshotRow) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO screenshot (recording_timestamp, recording_id, timestamp, png_data, png_diff_data, png_diff_mask_data)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		row.RecordingTimestamp, row.RecordingID, row.Timestamp,
		row.PNGData, nullableBlob(row.PNGDiffData), nullableBlob(row.PNGDiffMaskData),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: insert screenshot: %w", err)
	}
	return res.LastInsertId()
}

// Screenshots returns every screenshot row for a recording, ordered by
// timestamp. PNGData/PNGDiffData/PNGDiffMaskData are nil when RecordImages
// was disabled at capture time (the row was still persisted; only the
// pixel data was withheld).
func (s *Store) Screenshots(recordingID int64) ([]ScreenshotRow, error) {
	rows, err := s.db.Query(
		`SELECT timestamp, png_data, png_diff_data, png_diff_mask_data
		 FROM screenshot WHERE recording_id = ? ORDER BY timestamp ASC`,
		recordingID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: query screenshot: %w", err)
	}
	defer rows.Close()

	var out []ScreenshotRow
	for rows.Next() {
		var row ScreenshotRow
		var diff, mask []byte
		row.RecordingID = recordingID
		if err := rows.Scan(&row.Timestamp, &row.PNGData, &diff, &mask); err != nil {
			return nil, fmt.Errorf("storage: scan screenshot: %w", err)
		}
		row.PNGDiffData, row.PNGDiffMaskData = diff, mask
		out = append(out, row)
	}
	return out, rows.Err()
}

// AudioInfoRow is an audio_info table row.
type AudioInfoRow struct {
	RecordingID         int64
	RecordingTimestamp  float64
	Timestamp           float64
	FLACData            []byte
	TranscribedText     string
	SampleRate          int
	WordsWithTimestamps string
}

func (s *Store) InsertAudioInfo(row *AudioInfoRow) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO audio_info (timestamp, flac_data, transcribed_text, recording_timestamp, recording_id, sample_rate, words_with_timestamps)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.Timestamp, row.FLACData, nullableString(row.TranscribedText),
		row.RecordingTimestamp, row.RecordingID, row.SampleRate, nullableString(row.WordsWithTimestamps),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: insert audio_info: %w", err)
	}
	return res.LastInsertId()
}

// PerformanceStatRow is a performance_stat table row.
type PerformanceStatRow struct {
	RecordingID        int64
	RecordingTimestamp float64
	EventType          string
	StartTimeNanos     int64
	EndTimeNanos       int64
	WindowID           string
}

func (s *Store) InsertPerformanceStat(row *PerformanceStatRow) error {
	_, err := s.db.Exec(
		`INSERT INTO performance_stat (recording_timestamp, recording_id, event_type, start_time, end_time, window_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		row.RecordingTimestamp, row.RecordingID, row.EventType, row.StartTimeNanos, row.EndTimeNanos, nullableString(row.WindowID),
	)
	if err != nil {
		return fmt.Errorf("storage: insert performance_stat: %w", err)
	}
	return nil
}

// MemoryStatRow is a memory_stat table row.
type MemoryStatRow struct {
	RecordingID        int64
	RecordingTimestamp float64
	MemoryUsageBytes   float64
	Timestamp          float64
}

func (s *Store) InsertMemoryStat(row *MemoryStatRow) error {
	_, err := s.db.Exec(
		`INSERT INTO memory_stat (recording_timestamp, recording_id, memory_usage_bytes, timestamp)
		 VALUES (?, ?, ?, ?)`,
		row.RecordingTimestamp, row.RecordingID, row.MemoryUsageBytes, row.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("storage: insert memory_stat: %w", err)
	}
	return nil
}

// PerformanceStats returns every performance_stat row for a recording,
// ordered by start time, for offline profiling/plotting.
func (s *Store) PerformanceStats(recordingID int64) ([]PerformanceStatRow, error) {
	rows, err := s.db.Query(
		`SELECT event_type, start_time, end_time, IFNULL(window_id, '')
		 FROM performance_stat WHERE recording_id = ? ORDER BY start_time ASC`,
		recordingID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: query performance_stat: %w", err)
	}
	defer rows.Close()

	var out []PerformanceStatRow
	for rows.Next() {
		var row PerformanceStatRow
		row.RecordingID = recordingID
		if err := rows.Scan(&row.EventType, &row.StartTimeNanos, &row.EndTimeNanos, &row.WindowID); err != nil {
			return nil, fmt.Errorf("storage: scan performance_stat: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MemoryStats returns every memory_stat row for a recording, ordered by
// timestamp, for offline profiling/plotting.
func (s *Store) MemoryStats(recordingID int64) ([]MemoryStatRow, error) {
	rows, err := s.db.Query(
		`SELECT memory_usage_bytes, timestamp FROM memory_stat
		 WHERE recording_id = ? ORDER BY timestamp ASC`,
		recordingID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: query memory_stat: %w", err)
	}
	defer rows.Close()

	var out []MemoryStatRow
	for rows.Next() {
		var row MemoryStatRow
		row.RecordingID = recordingID
		if err := rows.Scan(&row.MemoryUsageBytes, &row.Timestamp); err != nil {
			return nil, fmt.Errorf("storage: scan memory_stat: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetRecording loads the recording row by id.
func (s *Store) GetRecording(id int64) (*Recording, error) {
	r := &Recording{ID: id}
	var cfgJSON string
	var originalID sql.NullInt64
	err := s.db.QueryRow(
		`SELECT timestamp, monitor_width, monitor_height, double_click_interval_seconds,
			double_click_distance_pixels, platform, task_description, video_start_time, config, original_recording_id
		 FROM recording WHERE id = ?`, id,
	).Scan(&r.Timestamp, &r.MonitorWidth, &r.MonitorHeight, &r.DoubleClickIntervalSeconds,
		&r.DoubleClickDistancePixels, &r.Platform, &r.TaskDescription, &r.VideoStartTime, &cfgJSON, &originalID)
	if err != nil {
		return nil, fmt.Errorf("storage: get recording %d: %w", id, err)
	}
	if originalID.Valid {
		r.OriginalRecordingID = &originalID.Int64
	}
	if cfgJSON != "" {
		_ = json.Unmarshal([]byte(cfgJSON), &r.Config)
	}
	return r, nil
}

// ActionEvents returns every action_event row for a recording, ordered by
// timestamp, as the merge engine and read API both expect.
func (s *Store) ActionEvents(recordingID int64) ([]ActionEventRow, error) {
	rows, err := s.db.Query(
		`SELECT name, timestamp, mouse_x, mouse_y, mouse_dx, mouse_dy, mouse_button_name, mouse_pressed,
			key_name, key_char, canonical_key_name, canonical_key_char, disabled
		 FROM action_event WHERE recording_id = ? ORDER BY timestamp`, recordingID)
	if err != nil {
		return nil, fmt.Errorf("storage: list action_event: %w", err)
	}
	defer rows.Close()

	var out []ActionEventRow
	for rows.Next() {
		var row ActionEventRow
		var mx, my, mdx, mdy sql.NullFloat64
		var btn, keyName, keyChar, canName, canChar sql.NullString
		var pressed sql.NullBool
		if err := rows.Scan(&row.Name, &row.Timestamp, &mx, &my, &mdx, &mdy, &btn, &pressed,
			&keyName, &keyChar, &canName, &canChar, &row.Disabled); err != nil {
			return nil, fmt.Errorf("storage: scan action_event: %w", err)
		}
		row.RecordingID = recordingID
		row.HasMouse = mx.Valid
		row.MouseX, row.MouseY, row.MouseDX, row.MouseDY = mx.Float64, my.Float64, mdx.Float64, mdy.Float64
		row.MouseButtonName = btn.String
		row.HasMousePressed = pressed.Valid
		row.MousePressed = pressed.Bool
		row.KeyName, row.KeyChar = keyName.String, keyChar.String
		row.CanonicalKeyName, row.CanonicalKeyChar = canName.String, canChar.String
		out = append(out, row)
	}
	return out, rows.Err()
}

// LastActionEventTimestamp returns the timestamp of the last recorded
// action, used by read-API callers to compute a recording's Duration.
func (s *Store) LastActionEventTimestamp(recordingID int64) (float64, error) {
	var ts float64
	err := s.db.QueryRow(`SELECT MAX(timestamp) FROM action_event WHERE recording_id = ?`, recordingID).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("storage: last action timestamp: %w", err)
	}
	return ts, nil
}

func nullableFloat(has bool, v float64) any {
	if !has {
		return nil
	}
	return v
}

func nullableBool(has bool, v bool) any {
	if !has {
		return nil
	}
	return v
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableBlob(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
