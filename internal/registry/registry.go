// Package registry reads Firefox's profiles.ini.
package registry

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	uerror "t0ast.cc/ffprofile/util/error"
)

// FileName is the name of the registry file inside the Firefox user
// directory.
const FileName = "profiles.ini"

// Entry is one [Profile*] section.
type Entry struct {
	Section    string
	Name       string
	Path       string
	IsRelative bool
	IsDefault  bool
}

// ResolvePath returns the absolute profile directory, joining relative
// paths with dir.
func (e Entry) ResolvePath(dir string) string {
	path := filepath.FromSlash(e.Path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// ReadFile parses the registry file at path.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, uerror.WithStackTrace(err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse returns all [Profile*] sections in declaration order. Other
// sections ([General], [Install*]) and malformed lines are skipped.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	var current *Entry

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			if current != nil {
				entries = append(entries, *current)
				current = nil
			}
			section := line[1 : len(line)-1]
			if strings.HasPrefix(section, "Profile") {
				current = &Entry{Section: section}
			}
			continue
		}

		if current == nil {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		switch key {
		case "Name":
			current.Name = value
		case "Path":
			current.Path = value
		case "IsRelative":
			current.IsRelative = value == "1"
		case "Default":
			current.IsDefault = value == "1"
		}
	}

	if current != nil {
		entries = append(entries, *current)
	}

	if err := sc.Err(); err != nil {
		return nil, uerror.WithStackTrace(err)
	}
	return entries, nil
}
