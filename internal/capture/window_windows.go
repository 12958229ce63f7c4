//go:build windows

package capture

import (
	"unicode/utf16"
	"unsafe"
)

var (
	procGetForegroundWindow = user32.NewProc("GetForegroundWindow")
	procGetWindowTextW      = user32.NewProc("GetWindowTextW")
	procGetWindowRect       = user32.NewProc("GetWindowRect")
)

type windowsRect struct{ Left, Top, Right, Bottom int32 }

type windowsWindowReader struct{}

func newWindowReader() WindowReader { return windowsWindowReader{} }

func (windowsWindowReader) ActiveWindow() (*WindowEvent, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return nil, ErrNotSupported
	}

	buf := make([]uint16, 512)
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	title := string(utf16.Decode(buf[:n]))

	var rect windowsRect
	procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&rect)))

	return NewWindowEvent(0, title, itoa(int(hwnd)),
		int(rect.Left), int(rect.Top),
		int(rect.Right-rect.Left), int(rect.Bottom-rect.Top)), nil
}
