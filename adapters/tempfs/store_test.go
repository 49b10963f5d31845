package tempfs

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/lingua/domain/entities"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Config{Root: t.TempDir()}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return store
}

func TestStore_OpenUsesUniqueNamespaces(t *testing.T) {
	store := newTestStore(t)

	a, err := store.Open(context.Background())
	require.NoError(t, err)
	b, err := store.Open(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEqual(t, a.(*Scope).Dir(), b.(*Scope).Dir())
	assert.DirExists(t, a.(*Scope).Dir())

	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
}

func TestStore_OpenCancelledContext(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Open(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScope_ImportKeepsOnlyExtension(t *testing.T) {
	store := newTestStore(t)
	scope, err := store.Open(context.Background())
	require.NoError(t, err)
	defer scope.Close()

	audio, err := scope.Import(strings.NewReader("RIFF...."), "../../etc/clip.WAV")
	require.NoError(t, err)

	assert.Equal(t, ".wav", audio.Extension)
	assert.Equal(t, "audio/wav", audio.ContentType)
	assert.Equal(t, scope.ID(), audio.InvocationID)
	assert.True(t, strings.HasPrefix(audio.Path, scope.(*Scope).Dir()))
	assert.NotContains(t, audio.Path, "clip")

	data, err := os.ReadFile(audio.Path)
	require.NoError(t, err)
	assert.Equal(t, "RIFF....", string(data))
}

func TestScope_ImportRejectsOddExtensions(t *testing.T) {
	store := newTestStore(t)
	scope, err := store.Open(context.Background())
	require.NoError(t, err)
	defer scope.Close()

	audio, err := scope.Import(strings.NewReader("x"), "clip.we$bm")
	require.NoError(t, err)
	assert.Equal(t, "", audio.Extension)
	assert.Equal(t, entities.DefaultAudioContentType, audio.ContentType)
}

func TestScope_CloseReleasesEverythingOnce(t *testing.T) {
	store := newTestStore(t)
	scope, err := store.Open(context.Background())
	require.NoError(t, err)

	upload, err := scope.Import(strings.NewReader("audio"), "audio.webm")
	require.NoError(t, err)
	output, err := scope.Allocate(".mp3")
	require.NoError(t, err)

	// Released early by its consumer; Close must not count it twice.
	require.NoError(t, upload.Release())

	require.NoError(t, scope.Close())
	require.NoError(t, scope.Close())

	created, released := scope.(*Scope).Stats()
	assert.Equal(t, 2, created)
	assert.Equal(t, 2, released)
	assert.Equal(t, entities.AudioStateReleased, upload.State())
	assert.Equal(t, entities.AudioStateReleased, output.State())
	assert.NoDirExists(t, scope.(*Scope).Dir())

	_, err = scope.Allocate(".mp3")
	assert.Error(t, err)
}
