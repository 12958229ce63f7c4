//go:build linux && !cgo

package capture

// newInputHook returns a hook that always fails on Linux builds without
// CGO, since global input capture requires the X11 record extension via
// CGO.
func newInputHook() InputHook { return notSupportedHook{} }
