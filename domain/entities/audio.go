package entities

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrAudioReleased is returned when a released AudioResource is touched again
var ErrAudioReleased = errors.New("audio resource already released")

// AudioState represents the lifecycle of an AudioResource
type AudioState string

const (
	AudioStateCreated  AudioState = "created"
	AudioStateInUse    AudioState = "in_use"
	AudioStateReleased AudioState = "released"
)

// DefaultAudioContentType is the content type of synthesized audio
const DefaultAudioContentType = "audio/mp3"

// AudioResource is an ephemeral handle to audio stored as a file. It belongs
// to exactly one pipeline invocation and is released exactly once.
type AudioResource struct {
	ID           string
	Path         string
	Extension    string
	ContentType  string
	InvocationID string

	mu      sync.Mutex
	state   AudioState
	release func(*AudioResource) error
}

// NewAudioResource creates a handle in the Created state. release is called
// once, on the first call to Release.
func NewAudioResource(id, path, invocationID string, release func(*AudioResource) error) *AudioResource {
	return &AudioResource{
		ID:           id,
		Path:         path,
		InvocationID: invocationID,
		ContentType:  DefaultAudioContentType,
		state:        AudioStateCreated,
		release:      release,
	}
}

// State returns the current lifecycle state
func (a *AudioResource) State() AudioState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Acquire moves the resource to InUse. It fails once the resource is released.
func (a *AudioResource) Acquire() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == AudioStateReleased {
		return fmt.Errorf("%w: %s", ErrAudioReleased, a.ID)
	}
	a.state = AudioStateInUse
	return nil
}

// Open acquires the resource and opens it for reading
func (a *AudioResource) Open() (*os.File, error) {
	if err := a.Acquire(); err != nil {
		return nil, err
	}
	return os.Open(a.Path)
}

// Create acquires the resource and opens it for writing, truncating any content
func (a *AudioResource) Create() (*os.File, error) {
	if err := a.Acquire(); err != nil {
		return nil, err
	}
	return os.OpenFile(a.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
}

// Size returns the stored size in bytes
func (a *AudioResource) Size() (int64, error) {
	info, err := os.Stat(a.Path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Release removes the backing file. Only the first call has an effect;
// later calls return nil.
func (a *AudioResource) Release() error {
	a.mu.Lock()
	if a.state == AudioStateReleased {
		a.mu.Unlock()
		return nil
	}
	a.state = AudioStateReleased
	release := a.release
	a.mu.Unlock()

	if release == nil {
		return nil
	}
	return release(a)
}
