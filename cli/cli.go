package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"t0ast.cc/ffprofile/internal/config"
	"t0ast.cc/ffprofile/internal/logging"
	"t0ast.cc/ffprofile/internal/shutdown"
	"t0ast.cc/ffprofile/profile"
	uerror "t0ast.cc/ffprofile/util/error"
)

// Exit codes besides 0 and the generic 1.
const (
	ExitUsage      = 2
	ExitNotFound   = 3
	ExitExtensions = 4
)

type CLI struct {
	ConfigPath string `help:"Path of the configuration file to use (default: ~/.config/ffprofile/config.yaml, then /etc/ffprofile/config.yaml)" name:"config" optional:"" type:"path" env:"FFPROFILE_CONFIG"`
	LogLevel   string `help:"Minimum level of log messages (debug, info, warn, error)" default:"info" env:"FFPROFILE_LOG_LEVEL"`
	LogJSON    bool   `help:"Write log messages as JSON" name:"log-json"`
	Trace      bool   `help:"Print stack traces of errors"`

	Create   CreateCmd   `cmd:"" help:"Create a fresh profile and print its directory"`
	Copy     CopyCmd     `cmd:"" help:"Create a profile from a copy of a profile directory"`
	CopyUser CopyUserCmd `cmd:"" name:"copy-user" help:"Create a profile from a copy of a profile of the local Firefox installation"`
	Locate   LocateCmd   `cmd:"" help:"Print the directory of a profile of the local Firefox installation"`
	Rm       RmCmd       `cmd:"" help:"Delete a profile directory"`
	Encode   EncodeCmd   `cmd:"" help:"Print a profile directory as a base64 encoded zip archive"`
}

// Environment is what the commands talk to. Zero fields fall back to
// the process's standard streams, shutdown.Default and
// config.DefaultPaths.
type Environment struct {
	Stdout          io.Writer
	Stderr          io.Writer
	Hooks           *shutdown.Registry
	ConfigFallbacks []string
}

type CommandContext struct {
	Config    config.Configuration
	ConfigDir string
	Context   context.Context
	Stdout    io.Writer
	Hooks     *shutdown.Registry
	Logger    *zap.Logger
}

func (c CommandContext) profileOptions() profile.Options {
	return profile.Options{
		Logger: c.Logger.Named("profile"),
		Hooks:  c.Hooks,
	}
}

// Run parses args (including the program name) and runs the selected
// command. Errors are reported on env.Stderr and returned with an exit
// code attached.
func Run(ctx context.Context, args []string, env Environment) error {
	if env.Stdout == nil {
		env.Stdout = os.Stdout
	}
	if env.Stderr == nil {
		env.Stderr = os.Stderr
	}
	if env.Hooks == nil {
		env.Hooks = shutdown.Default
	}

	var cli CLI
	err := run(ctx, &cli, args, env)
	if err != nil {
		err = uerror.WithExitCode(exitCode(err), err)
		if cli.Trace {
			fmt.Fprintln(env.Stderr, err.Error())
		} else {
			fmt.Fprintln(env.Stderr, uerror.Message(err))
		}
	}
	return err
}

func run(ctx context.Context, cli *CLI, args []string, env Environment) error {
	parser, err := kong.New(cli,
		kong.Name("ffprofile"),
		kong.Description("Create and manage throwaway Firefox profiles."),
		kong.Writers(env.Stdout, env.Stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return uerror.WithStackTrace(err)
	}
	kctx, err := parser.Parse(args[1:])
	if err != nil {
		return uerror.WithExitCode(ExitUsage, uerror.WithStackTrace(err))
	}

	logger, err := logging.New(logging.Config{Level: cli.LogLevel, JSON: cli.LogJSON})
	if err != nil {
		return uerror.WithExitCode(ExitUsage, err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	fallbacks := env.ConfigFallbacks
	if fallbacks == nil {
		fallbacks, err = config.DefaultPaths()
		if err != nil {
			return err
		}
	}
	cfg, cfgDir, err := config.Load(cli.ConfigPath, fallbacks)
	if err != nil {
		return err
	}
	logger.Debug("Loaded configuration", zap.String("dir", cfgDir), zap.Stringer("config", cfg))

	return kctx.Run(CommandContext{
		Config:    cfg,
		ConfigDir: cfgDir,
		Context:   ctx,
		Stdout:    env.Stdout,
		Hooks:     env.Hooks,
		Logger:    logger,
	})
}

func exitCode(err error) uint {
	if code, ok := uerror.GetExitCode(err); ok {
		return code
	}
	switch {
	case errors.Is(err, profile.ErrValidation):
		return ExitUsage
	case errors.Is(err, profile.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, profile.ErrManifest):
		return ExitExtensions
	}
	return 1
}
