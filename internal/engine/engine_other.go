//go:build !windows

package engine

type unsupported struct{}

// Default returns the platform backend.
func Default() Backend {
	return unsupported{}
}

func (unsupported) Initialize(bool) error {
	return ErrUnsupportedPlatform
}

func (unsupported) Uninitialize() {}

func (unsupported) Enumerator() (Enumerator, error) {
	return nil, ErrUnsupportedPlatform
}

func (unsupported) NewEvent() (Event, error) {
	return nil, ErrUnsupportedPlatform
}

func (unsupported) ActivateProcessLoopback(uint32, bool) (Client, error) {
	return nil, ErrUnsupportedPlatform
}
