package profile

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"t0ast.cc/ffprofile/internal/platform"
	"t0ast.cc/ffprofile/internal/registry"
)

// Finder resolves profile names through a profiles.ini registry. The
// registry is read at most once per Finder after a successful read.
type Finder struct {
	dir string

	mu      sync.Mutex
	entries []registry.Entry
	loaded  bool
}

// NewFinder returns a Finder for the registry in dir. An empty dir
// selects the platform's Firefox user directory.
func NewFinder(dir string) (*Finder, error) {
	if dir == "" {
		userDir, err := platform.UserDirectory()
		if err != nil {
			return nil, newError(ErrNotFound, "locate Firefox user directory", "", err)
		}
		dir = userDir
	}
	return &Finder{dir: dir}, nil
}

// Dir returns the directory containing profiles.ini.
func (f *Finder) Dir() string {
	return f.dir
}

// Profiles returns all registry entries.
func (f *Finder) Profiles() ([]registry.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loaded {
		return f.entries, nil
	}
	path := filepath.Join(f.dir, registry.FileName)
	entries, err := registry.ReadFile(path)
	if err != nil {
		return nil, newError(ErrIO, "read profile registry", path, err)
	}
	f.entries = entries
	f.loaded = true
	return entries, nil
}

// Names returns the names of all registered profiles.
func (f *Finder) Names() ([]string, error) {
	entries, err := f.Profiles()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names, nil
}

// Path returns the directory of the profile called name.
func (f *Finder) Path(name string) (string, error) {
	entries, err := f.Profiles()
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.Name == name {
			return e.ResolvePath(f.dir), nil
		}
	}
	return "", newError(ErrNotFound, "find profile", name, fmt.Errorf("no profile named %q in %s", name, filepath.Join(f.dir, registry.FileName)))
}

// CopyFromUserProfileOptions configures CopyFromUserProfile.
type CopyFromUserProfileOptions struct {
	// Options.SourceDirectory is ignored.
	Options

	// Name is the profile name as listed in profiles.ini.
	Name string
	// UserProfilePath is the directory containing profiles.ini. It
	// defaults to the platform's Firefox user directory.
	UserProfilePath string
	// Finder overrides UserProfilePath, e.g. to share a cached
	// registry between calls.
	Finder *Finder
}

// CopyFromUserProfile creates a profile from a copy of a named
// profile of the local Firefox installation.
func CopyFromUserProfile(opts CopyFromUserProfileOptions) (*Profile, error) {
	if opts.Name == "" {
		return nil, newError(ErrValidation, "copy user profile", "", errors.New("missing profile name"))
	}

	finder := opts.Finder
	if finder == nil {
		var err error
		finder, err = NewFinder(opts.UserProfilePath)
		if err != nil {
			return nil, err
		}
	}

	source, err := finder.Path(opts.Name)
	if err != nil {
		return nil, err
	}

	copyOpts := opts.Options
	copyOpts.SourceDirectory = source
	return Copy(copyOpts)
}
