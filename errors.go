package treepush

import (
	"github.com/aweris/treepush/internal/push"
	"github.com/aweris/treepush/internal/treehub"
)

// Sentinel errors, re-exported for errors.Is at the API boundary.
var (
	// ErrObjectMissing: the source repository lacks a referenced object.
	ErrObjectMissing = push.ErrObjectMissing

	// ErrAuthFailed: credentials could not produce a usable endpoint.
	ErrAuthFailed = treehub.ErrAuthFailed

	// ErrParse: an object payload could not be decoded during discovery.
	ErrParse = push.ErrParse
)
