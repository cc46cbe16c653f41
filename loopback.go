package wasapi

import "fmt"

// NewApplicationLoopbackClient activates a client that captures the audio rendered by the
// process pid and, if includeTree is set, its child processes. With includeTree unset, the
// process tree is excluded instead and everything else is captured.
//
// The call blocks until the asynchronous activation completed. The client behaves like a render
// device in shared mode: initialize it for Capture with a Shared mode and an explicit format,
// since the engine does not report a mix format for it. Buffer size and padding reported by
// such a client are not reliable.
func NewApplicationLoopbackClient(pid uint32, includeTree bool) (*AudioClient, error) {
	c, err := backend.ActivateProcessLoopback(pid, includeTree)
	if err != nil {
		return nil, fmt.Errorf("failed to activate process loopback for pid %d: %w", pid, err)
	}

	client := newAudioClient(c, Render, true)
	client.log.Debug().Uint32("pid", pid).Bool("include_tree", includeTree).Msg("activated process loopback client")

	return client, nil
}
