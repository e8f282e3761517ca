package cli

import (
	"fmt"

	"go.uber.org/zap"

	"t0ast.cc/ffprofile/internal/config"
	"t0ast.cc/ffprofile/profile"
	uerror "t0ast.cc/ffprofile/util/error"
)

// ProfileFlags are shared by all commands that create a profile.
type ProfileFlags struct {
	Dest      string   `help:"Directory to create the profile in instead of a temporary directory" type:"path"`
	Wait      bool     `help:"Keep the profile until interrupted, then delete it (unless --dest is given)"`
	Pref      []string `help:"Set a preference, e.g. --pref browser.startup.page=0 (repeatable)" short:"p" sep:"none" placeholder:"KEY=VALUE"`
	Extension []string `help:"Install an extension directory or .xpi package (repeatable)" short:"e" sep:"none" type:"path"`
}

type CreateCmd struct {
	ProfileFlags `embed:""`
}

func (cmd *CreateCmd) Run(common CommandContext) error {
	opts := common.profileOptions()
	opts.DestinationDirectory = cmd.Dest
	p, err := profile.New(opts)
	if err != nil {
		return err
	}
	return cmd.ProfileFlags.finish(common, p)
}

type CopyCmd struct {
	ProfileFlags `embed:""`
	Source string `arg:"" help:"The profile directory to copy" type:"existingdir"`
}

func (cmd *CopyCmd) Run(common CommandContext) error {
	opts := common.profileOptions()
	opts.SourceDirectory = cmd.Source
	opts.DestinationDirectory = cmd.Dest
	p, err := profile.Copy(opts)
	if err != nil {
		return err
	}
	return cmd.ProfileFlags.finish(common, p)
}

// finish configures a new profile, prints its directory and either
// waits for the process to be interrupted or hands the profile over to
// the caller by keeping it on exit.
func (f ProfileFlags) finish(common CommandContext, p *profile.Profile) error {
	if err := f.configure(common, p); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(common.Stdout, p.Path()); err != nil {
		return uerror.WithStackTrace(err)
	}

	if !f.Wait {
		p.SetDeleteOnExit(false)
		return nil
	}
	common.Logger.Info("Waiting for interrupt", zap.String("dir", p.Path()), zap.Bool("deleteOnExit", p.DeleteOnExit()))
	<-common.Context.Done()
	return nil
}

func (f ProfileFlags) configure(common CommandContext, p *profile.Profile) error {
	results, err := config.Apply(common.Context, p, common.Config, common.ConfigDir)
	if err != nil {
		return err
	}

	for _, assignment := range f.Pref {
		key, value, err := config.ParseAssignment(assignment)
		if err != nil {
			return uerror.WithExitCode(ExitUsage, err)
		}
		if err := p.SetPreference(key, value); err != nil {
			return err
		}
	}

	if len(f.Extension) > 0 {
		results = append(results, p.InstallExtensions(common.Context, f.Extension)...)
	}
	for _, r := range results {
		if r.Err != nil {
			common.Logger.Error("Failed to install extension", zap.String("source", r.Source), zap.Error(r.Err))
			continue
		}
		common.Logger.Info("Installed extension", zap.String("id", r.Extension.ID), zap.String("version", r.Extension.Version))
	}

	if err := p.UpdatePreferences(); err != nil {
		return err
	}
	if err := profile.InstallErrors(results); err != nil {
		return uerror.WithExitCode(ExitExtensions, uerror.StackTracef("Failed to install %d extension(s): %w", countFailed(results), err))
	}
	return nil
}

func countFailed(results []profile.InstallResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
