// Package storage persists JSON records on the local filesystem. A record is
// addressed by a namespace and a logical key; the physical file name is the
// namespace followed by the digest of the logical key, so callers can use keys
// that are too long or unsafe to appear in a path.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"
)

const (
	defaultDirPerm = 0o700
	defaultRootDir = ".componentcache"
	fileExt        = ".json"
)

// Namespace partitions records. It is used verbatim as a file name prefix and
// must therefore be filesystem safe.
type Namespace string

const (
	NamespaceCache    Namespace = "CACHE"
	NamespaceSessions Namespace = "SESSIONS"
)

// Record is the unit persisted for one logical key.
type Record[T any] struct {
	Filename string `json:"filename"`
	Content  T      `json:"content"`
}

// Entry describes a record found on disk by List.
type Entry struct {
	Filename string
	Path     string
	ModTime  time.Time
}

// Store is a directory of content-addressed JSON records. It holds no locks:
// concurrent writers to the same record race and the last rename wins.
type Store struct {
	root    string
	repair  bool
	dirPerm os.FileMode
}

// Option configures a Store.
type Option func(*Store)

// WithRepair makes the store delete and recreate its root when the root path
// exists but is not a directory. Disabled by default: the store fails with
// ErrRootNotDirectory instead.
func WithRepair(enabled bool) Option {
	return func(s *Store) {
		s.repair = enabled
	}
}

// WithDirPerm sets the permissions used when creating the root directory.
func WithDirPerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = mode
	}
}

// New creates a store rooted at root. The directory is created lazily on the
// first read or write.
func New(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, errors.New("storage root is empty")
	}
	s := &Store{
		root:    root,
		dirPerm: defaultDirPerm,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DefaultRoot returns the user-scoped root directory, ~/.componentcache.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, defaultRootDir), nil
}

// Root returns the directory holding the store's files.
func (s *Store) Root() string {
	return s.root
}

// Path returns the physical file path of a logical key:
// {root}/{namespace}-{digest(logicalKey)}.json
func (s *Store) Path(ns Namespace, logicalKey string) (string, error) {
	if err := validateNamespace(ns); err != nil {
		return "", err
	}
	if logicalKey == "" {
		return "", errors.New("logical key is empty")
	}
	name := string(ns) + "-" + digest.FromString(logicalKey).Encoded() + fileExt
	return filepath.Join(s.root, name), nil
}

// Read loads the record stored for logicalKey in ns.
func Read[T any](ctx context.Context, s *Store, ns Namespace, logicalKey string) (Record[T], error) {
	var rec Record[T]

	path, raw, err := s.readFile(ctx, ns, logicalKey)
	if err != nil {
		return rec, err
	}

	var stored struct {
		Filename string          `json:"filename"`
		Content  json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return rec, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}
	if stored.Filename == "" || stored.Content == nil {
		return rec, fmt.Errorf("%w: %s: missing filename or content", ErrCorrupt, path)
	}
	if stored.Filename != logicalKey {
		return rec, fmt.Errorf("%w: %s: holds %q, want %q", ErrCorrupt, path, stored.Filename, logicalKey)
	}
	if err := json.Unmarshal(stored.Content, &rec.Content); err != nil {
		return rec, fmt.Errorf("%w: %s: decoding content: %w", ErrCorrupt, path, err)
	}
	rec.Filename = stored.Filename

	return rec, nil
}

// Write serializes rec as indented JSON and replaces the file for
// rec.Filename in ns.
func Write[T any](ctx context.Context, s *Store, ns Namespace, rec Record[T]) error {
	if rec.Filename == "" {
		return errors.New("record filename is empty")
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record %q: %w", rec.Filename, err)
	}
	return s.writeFile(ctx, ns, rec.Filename, data)
}

// Remove deletes the record for logicalKey. It is an operator action; nothing
// in the cache layer deletes records. Removing a missing record returns
// ErrNotFound.
func (s *Store) Remove(ctx context.Context, ns Namespace, logicalKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(ns, logicalKey)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, logicalKey)
		}
		return fmt.Errorf("%w: removing %s: %w", ErrIO, path, err)
	}
	logrus.Debugf("Removed record %s (%s)", logicalKey, path)
	return nil
}

// List returns the records stored in ns, sorted by logical key. Files that
// cannot be decoded are skipped with a warning.
func (s *Store) List(ctx context.Context, ns Namespace) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateNamespace(ns); err != nil {
		return nil, err
	}
	if err := s.ensureRoot(); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %w", ErrIO, s.root, err)
	}

	prefix := string(ns) + "-"
	var entries []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !isRecordName(name, prefix) {
			continue
		}
		path := filepath.Join(s.root, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", ErrIO, path, err)
		}
		var stored struct {
			Filename string `json:"filename"`
		}
		if err := json.Unmarshal(raw, &stored); err != nil || stored.Filename == "" {
			logrus.Warnf("Skipping unreadable record %s", path)
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
		}
		entries = append(entries, Entry{
			Filename: stored.Filename,
			Path:     path,
			ModTime:  info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Filename < entries[j].Filename
	})
	return entries, nil
}

func (s *Store) readFile(ctx context.Context, ns Namespace, logicalKey string) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	path, err := s.Path(ns, logicalKey)
	if err != nil {
		return "", nil, err
	}
	if err := s.ensureRoot(); err != nil {
		return "", nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil, fmt.Errorf("%w: %s", ErrNotFound, logicalKey)
		}
		return path, nil, fmt.Errorf("%w: reading %s: %w", ErrIO, path, err)
	}
	return path, raw, nil
}

// writeFile writes data next to its target and renames it into place.
func (s *Store) writeFile(ctx context.Context, ns Namespace, logicalKey string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(ns, logicalKey)
	if err != nil {
		return err
	}
	if err := s.ensureRoot(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", ErrIO, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: writing %s: %w", ErrIO, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: closing %s: %w", ErrIO, tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: replacing %s: %w", ErrIO, path, err)
	}

	logrus.Debugf("Stored record %s: %s", logicalKey, path)
	return nil
}

// ensureRoot makes sure the root exists and is a directory.
func (s *Store) ensureRoot() error {
	info, err := os.Stat(s.root)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		if !s.repair {
			return fmt.Errorf("%w: %w: %s", ErrIO, ErrRootNotDirectory, s.root)
		}
		logrus.Warnf("Storage root %s is not a directory, recreating it", s.root)
		if err := os.RemoveAll(s.root); err != nil {
			return fmt.Errorf("%w: removing %s: %w", ErrIO, s.root, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: stat %s: %w", ErrIO, s.root, err)
	}

	if err := os.MkdirAll(s.root, s.dirPerm); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrIO, s.root, err)
	}
	return nil
}

func validateNamespace(ns Namespace) error {
	if ns == "" || ns == "." || ns == ".." || strings.ContainsAny(string(ns), `/\`) {
		return fmt.Errorf("invalid namespace %q", ns)
	}
	return nil
}

// isRecordName reports whether name is {prefix}{hex digest}.json. Checking the
// digest length keeps namespace "A" from listing the files of namespace "A-B".
func isRecordName(name, prefix string) bool {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, fileExt) {
		return false
	}
	encoded := strings.TrimSuffix(strings.TrimPrefix(name, prefix), fileExt)
	return digest.Canonical.Validate(encoded) == nil
}
