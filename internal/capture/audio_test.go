package capture

import (
	"bytes"
	"testing"
)

func TestEncodeFLACProducesValidStreamHeader(t *testing.T) {
	samples := make([]int16, audioSampleRate) // 1 second of a low-amplitude sawtooth
	for i := range samples {
		samples[i] = int16(i % 100)
	}

	data, err := EncodeFLAC(samples, audioSampleRate)
	if err != nil {
		t.Fatalf("encode flac: %v", err)
	}
	if len(data) < 4 || !bytes.Equal(data[:4], []byte("fLaC")) {
		t.Fatalf("expected output to start with the FLAC stream marker")
	}
}

func TestEncodeFLACHandlesEmptyInput(t *testing.T) {
	data, err := EncodeFLAC(nil, audioSampleRate)
	if err != nil {
		t.Fatalf("encode flac: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected a valid (if minimal) FLAC stream header even with no samples")
	}
}

func TestAudioWriterPersistsFLACAndTranscript(t *testing.T) {
	store, recID := newTestStore(t)
	w := NewAudioWriter(store, recID)

	if err := w.Write(10.0, []byte{1, 2, 3}, "hello world", `[{"word":"hello","start":0}]`, audioSampleRate); err != nil {
		t.Fatalf("write audio info: %v", err)
	}
}
