package capture

import "testing"

func TestSentinelIsSentinel(t *testing.T) {
	if !IsSentinel(Sentinel) {
		t.Fatal("expected Sentinel to report IsSentinel")
	}
	if IsSentinel(nil) {
		t.Fatal("nil event must not be a sentinel")
	}
	evt := NewActionEvent(KindMouseMove, 1.0)
	if IsSentinel(evt) {
		t.Fatal("ordinary action event must not be a sentinel")
	}
}

func TestWindowEventEqual(t *testing.T) {
	a := NewWindowEvent(1.0, "Editor", "w1", 0, 0, 800, 600)
	b := NewWindowEvent(2.0, "Editor", "w1", 0, 0, 800, 600)
	if !a.Equal(b) {
		t.Fatal("expected windows with identical geometry/title/id to be equal regardless of timestamp")
	}

	c := NewWindowEvent(1.0, "Editor", "w1", 0, 0, 801, 600)
	if a.Equal(c) {
		t.Fatal("expected differing width to break equality")
	}

	if a.Equal(nil) {
		t.Fatal("expected nil to never be equal")
	}
}

func TestNewActionEventCarriesKindAndTimestamp(t *testing.T) {
	evt := NewActionEvent(KindKeyDown, 42.5)
	if evt.Kind() != KindKeyDown {
		t.Fatalf("expected kind %q, got %q", KindKeyDown, evt.Kind())
	}
	if evt.Timestamp() != 42.5 {
		t.Fatalf("expected timestamp 42.5, got %v", evt.Timestamp())
	}
}
