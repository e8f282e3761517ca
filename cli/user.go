package cli

import (
	"errors"
	"fmt"
	"strings"

	"t0ast.cc/ffprofile/gui"
	"t0ast.cc/ffprofile/profile"
	uerror "t0ast.cc/ffprofile/util/error"
)

type CopyUserCmd struct {
	ProfileFlags `embed:""`
	Name        string `arg:"" help:"The name of the profile as listed in profiles.ini (prompts if omitted)" optional:""`
	ProfilesDir string `help:"The Firefox user directory containing profiles.ini (default: platform specific)" type:"path"`
}

func (cmd *CopyUserCmd) Run(common CommandContext) error {
	finder, err := profile.NewFinder(cmd.ProfilesDir)
	if err != nil {
		return err
	}
	name, err := chooseProfile(common, finder, cmd.Name)
	if err != nil {
		return err
	}

	p, err := profile.CopyFromUserProfile(profile.CopyFromUserProfileOptions{
		Options: func() profile.Options {
			opts := common.profileOptions()
			opts.DestinationDirectory = cmd.Dest
			return opts
		}(),
		Name:   name,
		Finder: finder,
	})
	if err != nil {
		return err
	}
	return cmd.ProfileFlags.finish(common, p)
}

type LocateCmd struct {
	Name        string `arg:"" help:"The name of the profile as listed in profiles.ini (prompts if omitted)" optional:""`
	ProfilesDir string `help:"The Firefox user directory containing profiles.ini (default: platform specific)" type:"path"`
}

func (cmd *LocateCmd) Run(common CommandContext) error {
	finder, err := profile.NewFinder(cmd.ProfilesDir)
	if err != nil {
		return err
	}
	name, err := chooseProfile(common, finder, cmd.Name)
	if err != nil {
		return err
	}
	path, err := finder.Path(name)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(common.Stdout, path); err != nil {
		return uerror.WithStackTrace(err)
	}
	return nil
}

func chooseProfile(common CommandContext, finder *profile.Finder, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	names, err := finder.Names()
	if err != nil {
		return "", err
	}
	choice, err := gui.Prompt(common.Context, names, "Profile", true)
	if err != nil {
		return "", uerror.WithStackTrace(err)
	}
	if choice == nil || len(strings.TrimSpace(*choice)) == 0 {
		return "", uerror.WithExitCode(ExitUsage, uerror.WithStackTrace(errors.New("No profile selected")))
	}
	return *choice, nil
}
