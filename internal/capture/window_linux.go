//go:build linux && cgo

package capture

/*
#cgo LDFLAGS: -lX11
#include <X11/Xlib.h>
#include <X11/Xatom.h>
#include <stdlib.h>

static Display *winDisplay = NULL;

static Window activeWindow(int *ok) {
	if (!winDisplay) winDisplay = XOpenDisplay(NULL);
	if (!winDisplay) { *ok = 0; return 0; }

	Atom netActive = XInternAtom(winDisplay, "_NET_ACTIVE_WINDOW", True);
	if (netActive == None) { *ok = 0; return 0; }

	Atom actualType;
	int actualFormat;
	unsigned long nitems, bytesAfter;
	unsigned char *prop = NULL;
	Window root = DefaultRootWindow(winDisplay);

	if (XGetWindowProperty(winDisplay, root, netActive, 0, 1, False, XA_WINDOW,
			&actualType, &actualFormat, &nitems, &bytesAfter, &prop) != Success || !prop) {
		*ok = 0;
		return 0;
	}
	Window w = *(Window *)prop;
	XFree(prop);
	*ok = 1;
	return w;
}

static char *windowName(Window w) {
	Atom netName = XInternAtom(winDisplay, "_NET_WM_NAME", True);
	Atom utf8 = XInternAtom(winDisplay, "UTF8_STRING", True);
	Atom actualType;
	int actualFormat;
	unsigned long nitems, bytesAfter;
	unsigned char *prop = NULL;

	if (XGetWindowProperty(winDisplay, w, netName, 0, 1024, False, utf8,
			&actualType, &actualFormat, &nitems, &bytesAfter, &prop) == Success && prop) {
		return (char *)prop;
	}
	return NULL;
}

static void windowGeometry(Window w, int *x, int *y, int *width, int *height) {
	Window root;
	int xp, yp;
	unsigned int wp, hp, border, depth;
	XGetGeometry(winDisplay, w, &root, &xp, &yp, &wp, &hp, &border, &depth);
	XTranslateCoordinates(winDisplay, w, DefaultRootWindow(winDisplay), 0, 0, x, y, &root);
	*width = wp;
	*height = hp;
}
*/
import "C"

import "unsafe"

type linuxWindowReader struct{}

func newWindowReader() WindowReader { return linuxWindowReader{} }

func (linuxWindowReader) ActiveWindow() (*WindowEvent, error) {
	var ok C.int
	w := C.activeWindow(&ok)
	if ok == 0 {
		return nil, ErrNotSupported
	}

	title := ""
	if cname := C.windowName(w); cname != nil {
		title = C.GoString(cname)
		C.XFree(unsafe.Pointer(cname))
	}

	var x, y, width, height C.int
	C.windowGeometry(w, &x, &y, &width, &height)

	return NewWindowEvent(0, title, itoa(int(w)), int(x), int(y), int(width), int(height)), nil
}
