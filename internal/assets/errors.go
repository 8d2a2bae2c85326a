package assets

import (
	"errors"
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
)

var (
	// ErrNoEntryPoints indicates the pipeline was configured without entries
	ErrNoEntryPoints = errors.New("no entry points found")
	// ErrEntryNotFound indicates an entry point does not exist on disk
	ErrEntryNotFound = errors.New("entry point not found")
	// ErrBuildFailed indicates esbuild reported errors
	ErrBuildFailed = errors.New("esbuild failed with errors")
	// ErrNotBuilt indicates metadata was requested before a successful build
	ErrNotBuilt = errors.New("assets not built yet, call Build() first")
)

// BuildError carries the messages esbuild reported for a failed build.
type BuildError struct {
	Messages []api.Message
}

func (e *BuildError) Error() string {
	if len(e.Messages) == 0 {
		return ErrBuildFailed.Error()
	}
	msg := e.Messages[0]
	text := msg.Text
	if msg.Location != nil {
		text = fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
	}
	if len(e.Messages) == 1 {
		return fmt.Sprintf("%s: %s", ErrBuildFailed, text)
	}
	return fmt.Sprintf("%s: %s (and %d more)", ErrBuildFailed, text, len(e.Messages)-1)
}

func (e *BuildError) Unwrap() error {
	return ErrBuildFailed
}
