package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// linkMarker is the on-disk representation of a Link call when the
// host filesystem's native symlink cannot be used. Kept as a plain
// JSON record rather than a real symlink so that callers who read the
// path without dereferencing see a small, self-describing file instead
// of garbage, and so Windows filesystems without symlink privilege
// still work. #nosec G101 - not a credential
const linkMarkerSuffix = ".detentlink"

type linkMarker struct {
	Target string `json:"$link"`
}

// FS is a Backend rooted at a directory on the host filesystem.
type FS struct {
	root string
}

// NewFS constructs a filesystem-backed Backend rooted at root. The
// root directory is created if it does not already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	// #nosec G301 - session trees are per-user working state, not secrets
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &FS{root: abs}, nil
}

func (f *FS) resolve(path string) string {
	clean := filepath.Clean("/" + strings.Trim(path, "/"))
	return filepath.Join(f.root, clean)
}

// Write implements Backend.
func (f *FS) Write(path string, data []byte) error {
	full := f.resolve(path)
	// #nosec G301 - session trees are per-user working state, not secrets
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	tmp := full + ".tmp"
	// #nosec G306 - session artifacts are per-user working state, not secrets
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, full)
}

// Read implements Backend.
func (f *FS) Read(path string) ([]byte, error) {
	full := f.resolve(path)
	data, err := os.ReadFile(full) // #nosec G304 - path is engine-constructed from validated stage ids
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Exists implements Backend.
func (f *FS) Exists(path string) bool {
	_, err := os.Stat(f.resolve(path))
	return err == nil
}

// ListChildren implements Backend.
func (f *FS) ListChildren(path string) ([]string, error) {
	full := f.resolve(path)
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrNotDirectory
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), linkMarkerSuffix))
	}
	return names, nil
}

// MakeDir implements Backend.
func (f *FS) MakeDir(path string) error {
	// #nosec G301 - session trees are per-user working state, not secrets
	return os.MkdirAll(f.resolve(path), 0o755)
}

// Link implements Backend.
func (f *FS) Link(source, target string) error {
	full := f.resolve(source)
	// #nosec G301 - session trees are per-user working state, not secrets
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	if err := os.Symlink(f.resolve(target), full); err == nil {
		return nil
	}
	// Symlink unavailable (common on restricted Windows setups): fall
	// back to a reference record.
	marker, err := json.Marshal(linkMarker{Target: target})
	if err != nil {
		return err
	}
	return os.WriteFile(full+linkMarkerSuffix, marker, 0o644) // #nosec G306
}

// ReadLink implements Backend.
func (f *FS) ReadLink(source string) (string, bool, error) {
	full := f.resolve(source)
	if target, err := os.Readlink(full); err == nil {
		rel, relErr := filepath.Rel(f.root, target)
		if relErr != nil {
			return target, true, nil
		}
		return filepath.ToSlash(rel), true, nil
	}

	data, err := os.ReadFile(full + linkMarkerSuffix) // #nosec G304
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	var marker linkMarker
	if err := json.Unmarshal(data, &marker); err != nil {
		return "", false, err
	}
	return marker.Target, true, nil
}
