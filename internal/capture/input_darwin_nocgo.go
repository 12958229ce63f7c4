//go:build darwin && !cgo

package capture

// newInputHook returns a hook that always fails on macOS builds without
// CGO, since global input capture requires CGEventTap via CGO.
func newInputHook() InputHook { return notSupportedHook{} }
