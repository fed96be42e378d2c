package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jamesainslie/stamp/pkg/stamp/logging"
)

var logger = logging.Get("manifest")

// DefaultFilename is the manifest file name inside the scan root.
const DefaultFilename = "install_manifest.json"

// indent matches the layout the package installer has always produced.
const indent = "    "

var (
	// ErrManifestMissing is returned by Load when the manifest file does not exist.
	ErrManifestMissing = errors.New("manifest not found")

	// ErrManifestExists is returned by Init when a manifest is already present.
	ErrManifestExists = errors.New("manifest already exists")
)

// Store reads and writes one manifest file.
type Store struct {
	path string
}

// NewStore returns a Store for the manifest at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("manifest path cannot be empty")
	}
	return &Store{path: path}, nil
}

// Path returns the manifest file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the manifest file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the whole document. A missing file returns ErrManifestMissing.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestMissing, s.path)
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", s.path, err)
	}

	logger.Debug("manifest loaded", "path", s.path, "components", len(doc.Files))
	return doc, nil
}

// Save replaces the manifest with doc. The document is written to a
// temporary file in the same directory, synced, and renamed over the
// target, so readers never see a partial manifest.
func (s *Store) Save(doc *Document) error {
	if doc == nil {
		return errors.New("cannot save nil manifest")
	}

	data, err := json.MarshalIndent(doc, "", indent)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	data = append(data, '\n')

	if err := writeAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}

	logger.Debug("manifest saved", "path", s.path, "components", len(doc.Files), "bytes", len(data))
	return nil
}

// Init writes an empty manifest. It fails with ErrManifestExists rather
// than overwrite an existing one.
func (s *Store) Init() error {
	if s.Exists() {
		return fmt.Errorf("%w: %s", ErrManifestExists, s.path)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}
	return s.Save(NewDocument())
}

// writeAtomic writes data to path via a synced temp file and rename.
// The temp file is removed on any failure.
func writeAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmpPath := path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
