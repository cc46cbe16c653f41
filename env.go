package wasapi

import (
	"runtime"

	"github.com/gen2brain/wasapi/internal/engine"
)

// backend is the audio engine behind every constructor of this package.
var backend engine.Backend = engine.Default()

// InitializeMTA initializes COM for the calling thread in the multithreaded apartment.
// It must be called before any other function of this package is used on that thread.
func InitializeMTA() error {
	return backend.Initialize(true)
}

// InitializeSTA initializes COM for the calling thread in a single-threaded apartment.
// The calling goroutine is locked to its OS thread until Deinitialize is called.
func InitializeSTA() error {
	runtime.LockOSThread()
	if err := backend.Initialize(false); err != nil {
		runtime.UnlockOSThread()

		return err
	}

	return nil
}

// Deinitialize undoes InitializeMTA or InitializeSTA on the calling thread.
func Deinitialize() {
	backend.Uninitialize()
	runtime.UnlockOSThread()
}
