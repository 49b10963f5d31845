package tempfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/lingua/domain/entities"
	"github.com/satriahrh/lingua/domain/repositories"
)

const defaultDirName = "lingua"

// Config holds configuration for the temp file audio store
type Config struct {
	// Root is the parent directory of every invocation namespace.
	// Defaults to <os.TempDir()>/lingua.
	Root string
}

// Store is a filesystem AudioStore. Every scope gets its own uuid-named
// directory under the root so concurrent invocations never share paths.
type Store struct {
	root   string
	logger *zap.Logger
}

var _ repositories.AudioStore = (*Store)(nil)

// NewStore creates the root directory if needed
func NewStore(config Config, logger *zap.Logger) (*Store, error) {
	root := strings.TrimSpace(config.Root)
	if root == "" {
		root = filepath.Join(os.TempDir(), defaultDirName)
		logger.Info("Using default temp directory", zap.String("root", root))
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create temp audio root: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the directory holding every scope
func (s *Store) Root() string {
	return s.root
}

// Open creates a new invocation namespace
func (s *Store) Open(ctx context.Context) (repositories.AudioScope, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	id := uuid.NewString()
	dir := filepath.Join(s.root, id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create invocation directory: %w", err)
	}

	s.logger.Debug("Audio scope opened", zap.String("invocationID", id), zap.String("dir", dir))
	return &Scope{id: id, dir: dir, logger: s.logger}, nil
}

// Scope is the set of audio resources owned by one invocation
type Scope struct {
	id     string
	dir    string
	logger *zap.Logger

	mu        sync.Mutex
	resources []*entities.AudioResource
	created   int
	released  int
	closed    bool
}

var _ repositories.AudioScope = (*Scope)(nil)

func (s *Scope) ID() string {
	return s.id
}

// Dir returns the namespace directory
func (s *Scope) Dir() string {
	return s.dir
}

// Allocate reserves a new, empty resource path inside the namespace
func (s *Scope) Allocate(ext string) (*entities.AudioResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("audio scope %s is closed", s.id)
	}

	ext = normalizeExtension(ext)
	id := uuid.NewString()
	audio := entities.NewAudioResource(id, filepath.Join(s.dir, id+ext), s.id, s.releaseResource)
	audio.Extension = ext

	s.resources = append(s.resources, audio)
	s.created++
	return audio, nil
}

// Import stores the contents of r as a new resource. Only the extension of
// filename is kept.
func (s *Scope) Import(r io.Reader, filename string) (*entities.AudioResource, error) {
	audio, err := s.Allocate(filepath.Ext(safeBaseName(filename)))
	if err != nil {
		return nil, err
	}

	f, err := audio.Create()
	if err != nil {
		return nil, fmt.Errorf("create audio file: %w", err)
	}
	written, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close audio file: %w", err)
	}

	audio.ContentType = contentTypeFor(audio.Extension)
	s.logger.Debug("Audio imported",
		zap.String("invocationID", s.id),
		zap.String("resourceID", audio.ID),
		zap.Int64("bytes", written))
	return audio, nil
}

// Close releases every resource still held and removes the namespace. It is
// safe to call more than once.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	resources := s.resources
	s.resources = nil
	s.mu.Unlock()

	var errs []error
	for _, audio := range resources {
		if err := audio.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := os.RemoveAll(s.dir); err != nil {
		errs = append(errs, fmt.Errorf("remove invocation directory: %w", err))
	}

	created, released := s.Stats()
	s.logger.Debug("Audio scope closed",
		zap.String("invocationID", s.id),
		zap.Int("created", created),
		zap.Int("released", released))

	return errors.Join(errs...)
}

// Stats returns how many resources were created and released in this scope
func (s *Scope) Stats() (created, released int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created, s.released
}

func (s *Scope) releaseResource(audio *entities.AudioResource) error {
	s.mu.Lock()
	s.released++
	s.mu.Unlock()

	if err := os.Remove(audio.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove audio %s: %w", audio.ID, err)
	}
	return nil
}

func safeBaseName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".wav":
		return "audio/wav"
	case ".webm":
		return "audio/webm"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".m4a", ".mp4":
		return "audio/mp4"
	default:
		return entities.DefaultAudioContentType
	}
}
