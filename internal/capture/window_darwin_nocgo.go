//go:build darwin && !cgo

package capture

func newWindowReader() WindowReader { return notSupportedWindowReader{} }
