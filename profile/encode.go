package profile

import (
	"bytes"
	"encoding/base64"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/zip"

	uerror "t0ast.cc/ffprofile/util/error"
)

// Encoded writes pending preferences and returns the profile directory
// as a base64 encoded zip archive, the form WebDriver's
// moz:firefoxOptions expects. Lock files and symlinks are left out.
func (p *Profile) Encoded() (string, error) {
	if err := p.UpdatePreferences(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := p.WriteArchive(&buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// WriteArchive writes the profile directory to w as a zip archive.
func (p *Profile) WriteArchive(w io.Writer) error {
	zw := zip.NewWriter(w)
	err := filepath.WalkDir(p.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(p.dir, path)
		if err != nil || rel == "." {
			return err
		}
		if slices.Contains(lockFiles, d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.IsDir() && !info.Mode().IsRegular() {
			return nil
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			header.Name += "/"
			_, err := zw.CreateHeader(header)
			return err
		}
		header.Method = zip.Deflate

		fw, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(fw, f)
		return err
	})
	if err != nil {
		return newError(ErrDirectory, "archive", p.dir, err)
	}
	if err := zw.Close(); err != nil {
		return newError(ErrDirectory, "archive", p.dir, uerror.WithStackTrace(err))
	}
	return nil
}
