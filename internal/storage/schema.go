// Package storage is the SQLite persistence layer. A Store opens one *sql.DB
// with maxOpenConns(1); the recorder's writer goroutines share that Store,
// so their inserts are serialized on its single connection without a
// cross-goroutine mutex.
package storage

const schema = `
CREATE TABLE IF NOT EXISTS recording (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp REAL,
	monitor_width INTEGER,
	monitor_height INTEGER,
	double_click_interval_seconds REAL,
	double_click_distance_pixels REAL,
	platform TEXT,
	task_description TEXT,
	video_start_time REAL,
	config TEXT,
	original_recording_id INTEGER REFERENCES recording(id)
);

CREATE TABLE IF NOT EXISTS action_event (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT,
	timestamp REAL,
	recording_timestamp REAL,
	recording_id INTEGER REFERENCES recording(id),
	screenshot_timestamp REAL,
	screenshot_id INTEGER REFERENCES screenshot(id),
	window_event_timestamp REAL,
	window_event_id INTEGER REFERENCES window_event(id),
	browser_event_timestamp REAL,
	browser_event_id INTEGER REFERENCES browser_event(id),
	mouse_x REAL,
	mouse_y REAL,
	mouse_dx REAL,
	mouse_dy REAL,
	mouse_button_name TEXT,
	mouse_pressed INTEGER,
	key_name TEXT,
	key_char TEXT,
	key_vk TEXT,
	canonical_key_name TEXT,
	canonical_key_char TEXT,
	canonical_key_vk TEXT,
	parent_id INTEGER REFERENCES action_event(id),
	element_state TEXT,
	disabled INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS window_event (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recording_timestamp REAL,
	recording_id INTEGER REFERENCES recording(id),
	timestamp REAL,
	state TEXT,
	title TEXT,
	left INTEGER,
	top INTEGER,
	width INTEGER,
	height INTEGER,
	window_id TEXT
);

CREATE TABLE IF NOT EXISTS browser_event (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recording_timestamp REAL,
	recording_id INTEGER REFERENCES recording(id),
	message TEXT,
	timestamp REAL
);

CREATE TABLE IF NOT EXISTS screenshot (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recording_timestamp REAL,
	recording_id INTEGER REFERENCES recording(id),
	timestamp REAL,
	png_data BLOB,
	png_diff_data BLOB,
	png_diff_mask_data BLOB
);

CREATE TABLE IF NOT EXISTS audio_info (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp REAL,
	flac_data BLOB,
	transcribed_text TEXT,
	recording_timestamp REAL,
	recording_id INTEGER REFERENCES recording(id),
	sample_rate INTEGER,
	words_with_timestamps TEXT
);

CREATE TABLE IF NOT EXISTS performance_stat (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recording_timestamp REAL,
	recording_id INTEGER REFERENCES recording(id),
	event_type TEXT,
	start_time INTEGER,
	end_time INTEGER,
	window_id TEXT
);

CREATE TABLE IF NOT EXISTS memory_stat (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recording_timestamp REAL,
	recording_id INTEGER REFERENCES recording(id),
	memory_usage_bytes REAL,
	timestamp REAL
);

CREATE INDEX IF NOT EXISTS idx_action_event_recording ON action_event(recording_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_window_event_recording ON window_event(recording_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_browser_event_recording ON browser_event(recording_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_screenshot_recording ON screenshot(recording_id, timestamp);
`
