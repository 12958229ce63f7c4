//go:build linux && cgo

package capture

/*
#cgo LDFLAGS: -lX11 -lXtst -lXrecord
#include <X11/Xlib.h>
#include <X11/Xlibint.h>
#include <X11/extensions/record.h>
#include <X11/extensions/XTest.h>
#include <stdlib.h>

static Display *ctrlDisplay = NULL;
static Display *dataDisplay = NULL;
static XRecordContext recordCtx;

extern void goRecordCallback(XPointer, XRecordInterceptData *);

static void recordCallback(XPointer closure, XRecordInterceptData *data) {
	goRecordCallback(closure, data);
}

static int startRecording() {
	ctrlDisplay = XOpenDisplay(NULL);
	if (!ctrlDisplay) return -1;
	dataDisplay = XOpenDisplay(NULL);
	if (!dataDisplay) return -1;

	XRecordRange *range = XRecordAllocRange();
	range->device_events.first = KeyPress;
	range->device_events.last = MotionNotify;

	XRecordClientSpec clients = XRecordAllClients;
	recordCtx = XRecordCreateContext(ctrlDisplay, 0, &clients, 1, &range, 1);
	XFree(range);
	if (!recordCtx) return -2;

	if (!XRecordEnableContextAsync(dataDisplay, recordCtx, recordCallback, NULL)) {
		return -3;
	}
	return 0;
}

static void pumpRecording() {
	while (dataDisplay != NULL) {
		XRecordProcessReplies(dataDisplay);
	}
}

static void stopRecording() {
	if (ctrlDisplay && recordCtx) {
		XRecordDisableContext(ctrlDisplay, recordCtx);
		XRecordFreeContext(ctrlDisplay, recordCtx);
	}
	if (ctrlDisplay) XCloseDisplay(ctrlDisplay);
	if (dataDisplay) XCloseDisplay(dataDisplay);
	ctrlDisplay = NULL;
	dataDisplay = NULL;
}
*/
import "C"

import (
	"errors"
	"sync"
	"unsafe"
)

var (
	linuxHookMu     sync.Mutex
	linuxHookActive *linuxInputHook
)

type linuxInputHook struct {
	emit     func(*ActionEvent)
	lastX    float64
	lastY    float64
	haveLast bool
}

func newInputHook() InputHook { return &linuxInputHook{} }

func (h *linuxInputHook) Start(emit func(*ActionEvent)) error {
	linuxHookMu.Lock()
	h.emit = emit
	linuxHookActive = h
	linuxHookMu.Unlock()

	if rc := C.startRecording(); rc != 0 {
		return errors.New("capture: XRecord context setup failed")
	}
	C.pumpRecording()
	return nil
}

func (h *linuxInputHook) Stop() error {
	C.stopRecording()
	linuxHookMu.Lock()
	linuxHookActive = nil
	linuxHookMu.Unlock()
	return nil
}

//export goRecordCallback
func goRecordCallback(closure C.XPointer, data *C.XRecordInterceptData) {
	defer C.XRecordFreeData(data)

	linuxHookMu.Lock()
	h := linuxHookActive
	linuxHookMu.Unlock()
	if h == nil || h.emit == nil {
		return
	}
	if data.category != C.XRecordFromServer {
		return
	}

	raw := (*[32]byte)(unsafe.Pointer(data.data))
	code := raw[0]

	switch code {
	case C.KeyPress, C.KeyRelease:
		kind := KindKeyUp
		if code == C.KeyPress {
			kind = KindKeyDown
		}
		evt := NewActionEvent(kind, 0)
		evt.Key = Key{VK: int(raw[1])}
		evt.Canonical = evt.Key
		h.emit(evt)
	case C.MotionNotify:
		x := int16(uint16(raw[24]) | uint16(raw[25])<<8)
		y := int16(uint16(raw[26]) | uint16(raw[27])<<8)
		evt := NewActionEvent(KindMouseMove, 0)
		evt.MouseX, evt.MouseY = float64(x), float64(y)
		if h.haveLast {
			evt.MouseDX = evt.MouseX - h.lastX
			evt.MouseDY = evt.MouseY - h.lastY
		}
		h.lastX, h.lastY, h.haveLast = evt.MouseX, evt.MouseY, true
		h.emit(evt)
	case C.ButtonPress, C.ButtonRelease:
		button := raw[1]
		evt := NewActionEvent(KindMouseUp, 0)
		pressed := code == C.ButtonPress
		if pressed {
			evt = NewActionEvent(KindMouseDown, 0)
		}
		evt.Pressed = pressed
		switch button {
		case 3:
			evt.Button = ButtonRight
		case 2:
			evt.Button = ButtonMiddle
		default:
			evt.Button = ButtonLeft
		}
		h.emit(evt)
	}
}
