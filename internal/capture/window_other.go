//go:build !windows && !linux && !darwin

package capture

func newWindowReader() WindowReader { return notSupportedWindowReader{} }
