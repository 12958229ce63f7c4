//go:build !windows && !linux && !darwin

package capture

func newInputHook() InputHook { return notSupportedHook{} }
