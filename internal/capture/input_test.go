package capture

import "testing"

func TestStopSequenceDetectorMatchesExactSequence(t *testing.T) {
	d := newStopSequenceDetector([][]string{{"ctrl", "shift", "q"}})

	if d.Feed(key("ctrl")) {
		t.Fatal("sequence should not match after first key")
	}
	if d.Feed(key("shift")) {
		t.Fatal("sequence should not match after second key")
	}
	if !d.Feed(key("q")) {
		t.Fatal("expected sequence to match after final key")
	}
}

func TestStopSequenceDetectorResetsOnMismatch(t *testing.T) {
	d := newStopSequenceDetector([][]string{{"a", "b", "c"}})

	d.Feed(key("a"))
	d.Feed(key("x")) // mismatch, resets progress to 0
	if d.Feed(key("b")) {
		t.Fatal("expected mismatch to reset progress, b alone should not match")
	}
}

func TestStopSequenceDetectorMismatchRestartsOnFirstKey(t *testing.T) {
	d := newStopSequenceDetector([][]string{{"a", "b", "c"}})

	d.Feed(key("a"))
	d.Feed(key("a")) // mismatches position 1 ("b" expected) but equals seq[0]
	if d.Feed(key("b")) {
		t.Fatal("sequence should not yet be complete")
	}
	if !d.Feed(key("c")) {
		t.Fatal("expected sequence to complete via restarted progress")
	}
}

func TestStopSequenceDetectorIsCaseInsensitive(t *testing.T) {
	d := newStopSequenceDetector([][]string{{"Ctrl", "Q"}})
	d.Feed(Key{Name: "ctrl"})
	if !d.Feed(Key{Name: "q"}) {
		t.Fatal("expected case-insensitive match")
	}
}

func TestStopSequenceDetectorTracksMultipleSequencesIndependently(t *testing.T) {
	d := newStopSequenceDetector([][]string{{"a", "b"}, {"x", "y"}})
	d.Feed(key("a"))
	d.Feed(key("x")) // mismatches seq0, but is seq1's first key
	if !d.Feed(key("y")) {
		t.Fatal("expected second sequence to complete independently of the first")
	}
}

func TestStopSequenceDetectorEmptyNeverMatches(t *testing.T) {
	d := newStopSequenceDetector(nil)
	if d.Feed(key("a")) {
		t.Fatal("empty sequence set must never match")
	}
}
