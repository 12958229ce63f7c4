//go:build windows

package capture

import (
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"
)

var (
	user32               = syscall.NewLazyDLL("user32.dll")
	kernel32             = syscall.NewLazyDLL("kernel32.dll")
	procSetWindowsHookEx = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx   = user32.NewProc("CallNextHookEx")
	procUnhookWindowsEx  = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage       = user32.NewProc("GetMessageW")
	procPostThreadMsg    = user32.NewProc("PostThreadMessageW")
	procGetModuleHandle  = kernel32.NewProc("GetModuleHandleW")
	procGetCurrentThread = kernel32.NewProc("GetCurrentThreadId")
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14

	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105

	wmMouseMove  = 0x0200
	wmLButtonDn  = 0x0201
	wmLButtonUp  = 0x0202
	wmRButtonDn  = 0x0204
	wmRButtonUp  = 0x0205
	wmMButtonDn  = 0x0207
	wmMButtonUp  = 0x0208
	wmMouseWheel = 0x020A

	wmQuit = 0x0012
)

type kbdllhookstruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msllhookstruct struct {
	Pt          struct{ X, Y int32 }
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type windowsInputHook struct {
	mu         sync.Mutex
	emit       func(*ActionEvent)
	threadID   uintptr
	kbHook     uintptr
	msHook     uintptr
	lastX      int32
	lastY      int32
	haveLast   bool
	running    atomic.Bool
}

func newInputHook() InputHook { return &windowsInputHook{} }

func (h *windowsInputHook) Start(emit func(*ActionEvent)) error {
	h.mu.Lock()
	h.emit = emit
	h.mu.Unlock()
	h.running.Store(true)

	tid, _, _ := procGetCurrentThread.Call()
	h.threadID = tid

	mod, _, _ := procGetModuleHandle.Call(0)

	kbHook, _, _ := procSetWindowsHookEx.Call(
		uintptr(whKeyboardLL),
		syscall.NewCallback(h.keyboardProc),
		mod, 0,
	)
	h.kbHook = kbHook

	msHook, _, _ := procSetWindowsHookEx.Call(
		uintptr(whMouseLL),
		syscall.NewCallback(h.mouseProc),
		mod, 0,
	)
	h.msHook = msHook

	var msg [28]byte
	for h.running.Load() {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&msg[0])), 0, 0, 0)
		if ret == 0 {
			break
		}
	}
	return nil
}

func (h *windowsInputHook) Stop() error {
	h.running.Store(false)
	if h.kbHook != 0 {
		procUnhookWindowsEx.Call(h.kbHook)
	}
	if h.msHook != 0 {
		procUnhookWindowsEx.Call(h.msHook)
	}
	if h.threadID != 0 {
		procPostThreadMsg.Call(h.threadID, wmQuit, 0, 0)
	}
	return nil
}

func (h *windowsInputHook) keyboardProc(nCode int32, wParam uintptr, lParam uintptr) uintptr {
	if nCode >= 0 {
		info := (*kbdllhookstruct)(unsafe.Pointer(lParam))
		name := vkName(info.VkCode)
		down := wParam == wmKeyDown || wParam == wmSysKeyDown
		kind := KindKeyUp
		if down {
			kind = KindKeyDown
		}
		evt := NewActionEvent(kind, 0)
		evt.Key = Key{Name: name, VK: int(info.VkCode)}
		evt.Canonical = evt.Key
		if h.emit != nil {
			h.emit(evt)
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func (h *windowsInputHook) mouseProc(nCode int32, wParam uintptr, lParam uintptr) uintptr {
	if nCode >= 0 {
		info := (*msllhookstruct)(unsafe.Pointer(lParam))
		x, y := info.Pt.X, info.Pt.Y

		switch wParam {
		case wmMouseMove:
			evt := NewActionEvent(KindMouseMove, 0)
			evt.MouseX, evt.MouseY = float64(x), float64(y)
			if h.haveLast {
				evt.MouseDX = float64(x - h.lastX)
				evt.MouseDY = float64(y - h.lastY)
			}
			h.lastX, h.lastY, h.haveLast = x, y, true
			if h.emit != nil {
				h.emit(evt)
			}
		case wmLButtonDn, wmLButtonUp, wmRButtonDn, wmRButtonUp, wmMButtonDn, wmMButtonUp:
			pressed := wParam == wmLButtonDn || wParam == wmRButtonDn || wParam == wmMButtonDn
			kind := KindMouseUp
			if pressed {
				kind = KindMouseDown
			}
			evt := NewActionEvent(kind, 0)
			evt.MouseX, evt.MouseY = float64(x), float64(y)
			evt.Button = buttonFor(wParam)
			evt.Pressed = pressed
			if h.emit != nil {
				h.emit(evt)
			}
		case wmMouseWheel:
			delta := int16(info.MouseData >> 16)
			evt := NewActionEvent(KindMouseScroll, 0)
			evt.MouseX, evt.MouseY = float64(x), float64(y)
			evt.DY = float64(delta) / 120.0
			if h.emit != nil {
				h.emit(evt)
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func buttonFor(wParam uintptr) MouseButton {
	switch wParam {
	case wmRButtonDn, wmRButtonUp:
		return ButtonRight
	case wmMButtonDn, wmMButtonUp:
		return ButtonMiddle
	default:
		return ButtonLeft
	}
}

// vkName maps a small set of common virtual-key codes to canonical names;
// anything else falls back to a generic vk<N> token. A full VK table is not
// needed: the merge engine and stop-sequence matcher only care about
// printable keys and a handful of modifiers.
func vkName(vk uint32) string {
	switch {
	case vk >= 0x30 && vk <= 0x39:
		return string(rune('0' + (vk - 0x30)))
	case vk >= 0x41 && vk <= 0x5A:
		return string(rune('a' + (vk - 0x41)))
	}
	switch vk {
	case 0x11:
		return "ctrl"
	case 0x10:
		return "shift"
	case 0x12:
		return "alt"
	case 0x5B, 0x5C:
		return "cmd"
	case 0x0D:
		return "enter"
	case 0x1B:
		return "esc"
	case 0x20:
		return "space"
	case 0x09:
		return "tab"
	case 0x08:
		return "backspace"
	case 0xBE:
		return "."
	}
	return "vk" + itoa(int(vk))
}
