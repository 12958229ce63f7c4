//go:build linux && !cgo

package capture

func newWindowReader() WindowReader { return notSupportedWindowReader{} }
