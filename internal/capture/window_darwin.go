//go:build darwin && cgo

package capture

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework AppKit -framework CoreFoundation

#include <ApplicationServices/ApplicationServices.h>
#include <AppKit/AppKit.h>

typedef struct {
	int pid;
	int x, y, width, height;
	int ok;
} FrontWindowInfo;

static FrontWindowInfo frontWindowInfo() {
	FrontWindowInfo info = {0};
	NSRunningApplication *app = [[NSWorkspace sharedWorkspace] frontmostApplication];
	if (!app) return info;
	info.pid = app.processIdentifier;

	CFArrayRef windows = CGWindowListCopyWindowInfo(kCGWindowListOptionOnScreenOnly, kCGNullWindowID);
	for (CFIndex i = 0; i < CFArrayGetCount(windows); i++) {
		CFDictionaryRef w = CFArrayGetValueAtIndex(windows, i);
		CFNumberRef ownerPid = CFDictionaryGetValue(w, kCGWindowOwnerPID);
		int pid = 0;
		CFNumberGetValue(ownerPid, kCFNumberIntType, &pid);
		if (pid != info.pid) continue;

		CFDictionaryRef bounds = CFDictionaryGetValue(w, kCGWindowBounds);
		CGRect rect;
		CGRectMakeWithDictionaryRepresentation(bounds, &rect);
		info.x = (int)rect.origin.x;
		info.y = (int)rect.origin.y;
		info.width = (int)rect.size.width;
		info.height = (int)rect.size.height;
		info.ok = 1;
		break;
	}
	CFRelease(windows);
	return info;
}

static const char *frontWindowAppName() {
	NSRunningApplication *app = [[NSWorkspace sharedWorkspace] frontmostApplication];
	if (!app || !app.localizedName) return "";
	return [app.localizedName UTF8String];
}
*/
import "C"

type darwinWindowReader struct{}

func newWindowReader() WindowReader { return darwinWindowReader{} }

func (darwinWindowReader) ActiveWindow() (*WindowEvent, error) {
	info := C.frontWindowInfo()
	if info.ok == 0 {
		return nil, ErrNotSupported
	}
	name := C.GoString(C.frontWindowAppName())

	return NewWindowEvent(0, name, itoa(int(info.pid)),
		int(info.x), int(info.y), int(info.width), int(info.height)), nil
}
