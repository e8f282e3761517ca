// Package manifest reads the identity of a Firefox extension package,
// either an unpacked directory or an .xpi archive.
//
// WebExtensions declare their ID in manifest.json under
// browser_specific_settings.gecko.id (or the older applications.gecko.id);
// legacy extensions declare it in install.rdf. When both files exist,
// manifest.json wins.
package manifest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/tidwall/gjson"
)

const (
	WebExtensionFile = "manifest.json"
	LegacyFile       = "install.rdf"

	emNamespace = "http://www.mozilla.org/2004/em-rdf#"
)

var (
	ErrNoManifest = errors.New("no manifest.json or install.rdf found")
	ErrNoID       = errors.New("manifest does not declare an extension ID")
	ErrInvalid    = errors.New("manifest is malformed")
)

// Details is what the installer needs to know about an extension.
type Details struct {
	ID       string
	Name     string
	Version  string
	Unpack   bool
	IsNative bool
}

// Read returns the details of the extension at path. Errors wrap
// ErrNoManifest, ErrNoID or ErrInvalid when the package itself is at
// fault, or the underlying I/O error otherwise.
func Read(path string) (Details, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Details{}, err
	}
	if info.IsDir() {
		return readFS(os.DirFS(path))
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return Details{}, fmt.Errorf("%w: %s is not a zip archive: %v", ErrInvalid, filepath.Base(path), err)
	}
	defer r.Close()
	return readArchive(&r.Reader)
}

func readFS(fsys fs.FS) (Details, error) {
	data, err := fs.ReadFile(fsys, WebExtensionFile)
	if err == nil {
		return ParseWebExtension(data)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return Details{}, err
	}

	data, err = fs.ReadFile(fsys, LegacyFile)
	if err == nil {
		return ParseInstallRDF(data)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return Details{}, err
	}
	return Details{}, ErrNoManifest
}

func readArchive(r *zip.Reader) (Details, error) {
	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		files[strings.TrimPrefix(f.Name, "./")] = f
	}

	if f, ok := files[WebExtensionFile]; ok {
		data, err := readZipFile(f)
		if err != nil {
			return Details{}, err
		}
		return ParseWebExtension(data)
	}
	if f, ok := files[LegacyFile]; ok {
		data, err := readZipFile(f)
		if err != nil {
			return Details{}, err
		}
		return ParseInstallRDF(data)
	}
	return Details{}, ErrNoManifest
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return data, nil
}

// ParseWebExtension extracts details from a manifest.json document.
func ParseWebExtension(data []byte) (Details, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !gjson.ValidBytes(data) {
		return Details{}, fmt.Errorf("%w: %s is not valid JSON", ErrInvalid, WebExtensionFile)
	}

	id := gjson.GetBytes(data, "browser_specific_settings.gecko.id")
	if !id.Exists() {
		id = gjson.GetBytes(data, "applications.gecko.id")
	}
	if id.Type != gjson.String || strings.TrimSpace(id.String()) == "" {
		return Details{}, ErrNoID
	}

	return Details{
		ID:      strings.TrimSpace(id.String()),
		Name:    gjson.GetBytes(data, "name").String(),
		Version: gjson.GetBytes(data, "version").String(),
	}, nil
}

// ParseInstallRDF extracts details from a legacy install.rdf document.
// Values inside em:targetApplication describe the target browser, not
// the extension, and are ignored.
func ParseInstallRDF(data []byte) (Details, error) {
	var d Details
	seen := map[string]bool{}
	set := func(field, value string) {
		if seen[field] {
			return
		}
		seen[field] = true
		value = strings.TrimSpace(value)
		switch field {
		case "id":
			d.ID = value
		case "name":
			d.Name = value
		case "version":
			d.Version = value
		case "unpack":
			d.Unpack = value == "true"
		case "isNative":
			d.IsNative = value == "true"
		}
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	targetDepth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Details{}, fmt.Errorf("%w: %s: %v", ErrInvalid, LegacyFile, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if targetDepth > 0 {
				targetDepth++
				continue
			}
			if el.Name.Space == emNamespace && el.Name.Local == "targetApplication" {
				targetDepth = 1
				continue
			}
			for _, attr := range el.Attr {
				if attr.Name.Space == emNamespace {
					set(attr.Name.Local, attr.Value)
				}
			}
			if el.Name.Space == emNamespace && isDetailField(el.Name.Local) {
				var value string
				if err := dec.DecodeElement(&value, &el); err != nil {
					return Details{}, fmt.Errorf("%w: %s: %v", ErrInvalid, LegacyFile, err)
				}
				set(el.Name.Local, value)
			}
		case xml.EndElement:
			if targetDepth > 0 {
				targetDepth--
			}
		}
	}

	if d.ID == "" {
		return Details{}, ErrNoID
	}
	return d, nil
}

func isDetailField(local string) bool {
	switch local {
	case "id", "name", "version", "unpack", "isNative":
		return true
	}
	return false
}
