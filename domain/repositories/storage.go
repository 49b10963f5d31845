package repositories

import (
	"context"
	"io"

	"github.com/satriahrh/lingua/domain/entities"
)

// AudioStore hands out per-invocation audio workspaces
type AudioStore interface {
	// Open creates a new scope with a unique namespace
	Open(ctx context.Context) (AudioScope, error)
}

// AudioScope owns every AudioResource created for one invocation. Close
// releases whatever is still held and removes the namespace.
type AudioScope interface {
	ID() string
	// Allocate reserves an empty resource with the given file extension
	Allocate(ext string) (*entities.AudioResource, error)
	// Import copies r into a new resource. filename is only used for its extension.
	Import(r io.Reader, filename string) (*entities.AudioResource, error)
	Close() error
}
