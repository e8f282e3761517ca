package main

import (
	"context"
	"os"

	"t0ast.cc/ffprofile/cli"
	"t0ast.cc/ffprofile/internal/shutdown"
	uerror "t0ast.cc/ffprofile/util/error"
)

func main() {
	err := cli.Run(context.Background(), os.Args, cli.Environment{})
	shutdown.Run()
	if err != nil {
		if exitCode, hasExitCode := uerror.GetExitCode(err); hasExitCode {
			os.Exit(int(exitCode))
		}
		os.Exit(1)
	}
}
