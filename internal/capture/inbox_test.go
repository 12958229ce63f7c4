package capture

import (
	"testing"
	"time"
)

func TestInboxPushPopOrder(t *testing.T) {
	ib := NewInbox()
	ib.Push(NewActionEvent(KindMouseMove, 1))
	ib.Push(NewActionEvent(KindMouseMove, 2))

	e1, ok := ib.Pop()
	if !ok || e1.Timestamp() != 1 {
		t.Fatalf("expected first pushed event first, got %v ok=%v", e1, ok)
	}
	e2, ok := ib.Pop()
	if !ok || e2.Timestamp() != 2 {
		t.Fatalf("expected second pushed event second, got %v ok=%v", e2, ok)
	}
}

func TestInboxPopBlocksUntilPush(t *testing.T) {
	ib := NewInbox()
	done := make(chan Event, 1)

	go func() {
		e, ok := ib.Pop()
		if ok {
			done <- e
		} else {
			done <- nil
		}
	}()

	select {
	case <-done:
		t.Fatal("Pop returned before anything was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	ib.Push(NewActionEvent(KindMouseMove, 5))

	select {
	case e := <-done:
		if e == nil || e.Timestamp() != 5 {
			t.Fatalf("expected the pushed event, got %v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop never woke up after Push")
	}
}

func TestInboxCloseUnblocksPop(t *testing.T) {
	ib := NewInbox()
	done := make(chan bool, 1)

	go func() {
		_, ok := ib.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	ib.Close()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected Pop to report false after Close with nothing pending")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop never woke up after Close")
	}
}

func TestInboxDrainsPendingBeforeClosing(t *testing.T) {
	ib := NewInbox()
	ib.Push(NewActionEvent(KindMouseMove, 1))
	ib.Close()

	e, ok := ib.Pop()
	if !ok || e.Timestamp() != 1 {
		t.Fatalf("expected pending event to still be delivered after Close, got %v ok=%v", e, ok)
	}

	_, ok = ib.Pop()
	if ok {
		t.Fatal("expected Pop to report false once drained")
	}
}

func TestInboxPushAfterCloseIsNoop(t *testing.T) {
	ib := NewInbox()
	ib.Close()
	ib.Push(NewActionEvent(KindMouseMove, 1))

	if n := ib.Len(); n != 0 {
		t.Fatalf("expected push after close to be dropped, len=%d", n)
	}
}
