//go:build darwin && cgo

package capture

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation

#include <ApplicationServices/ApplicationServices.h>
#include <CoreFoundation/CoreFoundation.h>

extern CGEventRef goEventTapCallback(CGEventTapProxy, CGEventType, CGEventRef);

static CFMachPortRef g_tap = NULL;
static CFRunLoopSourceRef g_source = NULL;

static CGEventRef tapCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon) {
	return goEventTapCallback(proxy, type, event);
}

static int installTap() {
	CGEventMask mask = CGEventMaskBit(kCGEventMouseMoved) |
		CGEventMaskBit(kCGEventLeftMouseDown) | CGEventMaskBit(kCGEventLeftMouseUp) |
		CGEventMaskBit(kCGEventRightMouseDown) | CGEventMaskBit(kCGEventRightMouseUp) |
		CGEventMaskBit(kCGEventOtherMouseDown) | CGEventMaskBit(kCGEventOtherMouseUp) |
		CGEventMaskBit(kCGEventScrollWheel) |
		CGEventMaskBit(kCGEventKeyDown) | CGEventMaskBit(kCGEventKeyUp);

	g_tap = CGEventTapCreate(kCGSessionEventTap, kCGHeadInsertEventTap, 0, mask, tapCallback, NULL);
	if (!g_tap) return -1;

	g_source = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, g_tap, 0);
	CFRunLoopAddSource(CFRunLoopGetCurrent(), g_source, kCFRunLoopCommonModes);
	CGEventTapEnable(g_tap, true);
	return 0;
}

static void runLoop() {
	CFRunLoopRun();
}

static void removeTap() {
	if (g_tap) {
		CGEventTapEnable(g_tap, false);
		CFMachPortInvalidate(g_tap);
		CFRelease(g_tap);
		g_tap = NULL;
	}
	if (g_source) {
		CFRelease(g_source);
		g_source = NULL;
	}
	CFRunLoopStop(CFRunLoopGetCurrent());
}
*/
import "C"

import (
	"errors"
	"sync"
)

var (
	darwinHookMu     sync.Mutex
	darwinHookActive *darwinInputHook
)

type darwinInputHook struct {
	emit     func(*ActionEvent)
	lastX    float64
	lastY    float64
	haveLast bool
}

func newInputHook() InputHook { return &darwinInputHook{} }

func (h *darwinInputHook) Start(emit func(*ActionEvent)) error {
	darwinHookMu.Lock()
	h.emit = emit
	darwinHookActive = h
	darwinHookMu.Unlock()

	if rc := C.installTap(); rc != 0 {
		return errors.New("capture: CGEventTap install failed (needs Accessibility permission)")
	}
	C.runLoop()
	return nil
}

func (h *darwinInputHook) Stop() error {
	C.removeTap()
	darwinHookMu.Lock()
	darwinHookActive = nil
	darwinHookMu.Unlock()
	return nil
}

//export goEventTapCallback
func goEventTapCallback(proxy C.CGEventTapProxy, t C.CGEventType, event C.CGEventRef) C.CGEventRef {
	darwinHookMu.Lock()
	h := darwinHookActive
	darwinHookMu.Unlock()
	if h == nil || h.emit == nil {
		return event
	}

	loc := C.CGEventGetLocation(event)
	x, y := float64(loc.x), float64(loc.y)

	switch t {
	case C.kCGEventMouseMoved:
		evt := NewActionEvent(KindMouseMove, 0)
		evt.MouseX, evt.MouseY = x, y
		if h.haveLast {
			evt.MouseDX = x - h.lastX
			evt.MouseDY = y - h.lastY
		}
		h.lastX, h.lastY, h.haveLast = x, y, true
		h.emit(evt)
	case C.kCGEventLeftMouseDown, C.kCGEventRightMouseDown, C.kCGEventOtherMouseDown,
		C.kCGEventLeftMouseUp, C.kCGEventRightMouseUp, C.kCGEventOtherMouseUp:
		pressed := t == C.kCGEventLeftMouseDown || t == C.kCGEventRightMouseDown || t == C.kCGEventOtherMouseDown
		kind := KindMouseUp
		if pressed {
			kind = KindMouseDown
		}
		evt := NewActionEvent(kind, 0)
		evt.MouseX, evt.MouseY = x, y
		evt.Pressed = pressed
		switch t {
		case C.kCGEventRightMouseDown, C.kCGEventRightMouseUp:
			evt.Button = ButtonRight
		case C.kCGEventOtherMouseDown, C.kCGEventOtherMouseUp:
			evt.Button = ButtonMiddle
		default:
			evt.Button = ButtonLeft
		}
		h.emit(evt)
	case C.kCGEventScrollWheel:
		delta := float64(C.CGEventGetIntegerValueField(event, C.kCGScrollWheelEventDeltaAxis1))
		evt := NewActionEvent(KindMouseScroll, 0)
		evt.MouseX, evt.MouseY = x, y
		evt.DY = delta
		h.emit(evt)
	case C.kCGEventKeyDown, C.kCGEventKeyUp:
		vk := int(C.CGEventGetIntegerValueField(event, C.kCGKeyboardEventKeycode))
		kind := KindKeyUp
		if t == C.kCGEventKeyDown {
			kind = KindKeyDown
		}
		evt := NewActionEvent(kind, 0)
		evt.Key = Key{VK: vk}
		evt.Canonical = evt.Key
		h.emit(evt)
	}
	return event
}
