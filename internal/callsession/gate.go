package callsession

import (
	"context"
	"errors"
)

// ErrPermissionDenied is returned by an AudioGate when the caller's audio
// capture cannot be used.
var ErrPermissionDenied = errors.New("audio permission denied")

// AudioGate guards access to the caller's audio path. A call may only start
// once the gate grants; denial puts the session in the errored state without
// ever touching the voice platform.
type AudioGate interface {
	Acquire(ctx context.Context) error
	Release()
}

// OpenGate always grants. Used when the media path is negotiated elsewhere
// and there is nothing to deny server-side.
type OpenGate struct{}

func (OpenGate) Acquire(ctx context.Context) error { return nil }
func (OpenGate) Release()                          {}
