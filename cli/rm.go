package cli

import (
	"encoding/base64"
	"fmt"
	"path/filepath"

	"t0ast.cc/ffprofile/profile"
	uerror "t0ast.cc/ffprofile/util/error"
	uio "t0ast.cc/ffprofile/util/io"
)

type RmCmd struct {
	Dir string `arg:"" help:"The profile directory to delete" type:"existingdir"`
}

func (cmd *RmCmd) Run(common CommandContext) error {
	p, err := openExisting(common, cmd.Dir)
	if err != nil {
		return err
	}
	return p.Delete()
}

// openExisting opens a profile directory in place. Directories that do
// not look like a profile are refused, so a typo cannot delete or
// archive an arbitrary directory.
func openExisting(common CommandContext, dir string) (*profile.Profile, error) {
	isProfile := false
	for _, marker := range []string{profile.UserPrefsFileName, "prefs.js", "times.json"} {
		exists, err := uio.FileExists(filepath.Join(dir, marker))
		if err != nil {
			return nil, uerror.WithStackTrace(err)
		}
		isProfile = isProfile || exists
	}
	if !isProfile {
		return nil, uerror.WithExitCode(ExitUsage, uerror.StackTracef("%s does not look like a Firefox profile", dir))
	}

	opts := common.profileOptions()
	opts.DestinationDirectory = dir
	return profile.New(opts)
}

type EncodeCmd struct {
	Dir string `arg:"" help:"The profile directory to encode" type:"existingdir"`
}

// Run archives the directory as it is on disk; unlike Profile.Encoded
// it does not write the default preferences into it first.
func (cmd *EncodeCmd) Run(common CommandContext) error {
	p, err := openExisting(common, cmd.Dir)
	if err != nil {
		return err
	}

	enc := base64.NewEncoder(base64.StdEncoding, common.Stdout)
	if err := p.WriteArchive(enc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return uerror.WithStackTrace(err)
	}
	if _, err := fmt.Fprintln(common.Stdout); err != nil {
		return uerror.WithStackTrace(err)
	}
	return nil
}
