/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"goscreenwriter/internal/config"
	"goscreenwriter/internal/crash"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/version"
)

// initializeAppContext loads configuration and logging after the command line is parsed.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	env := envFromContext(ctx)
	if cmd.Writer != nil {
		env.Out = cmd.Writer
	}

	var err error
	env.ConfigFile = cmd.String("config")
	if env.ConfigFile != "" {
		env.Cfg, err = config.LoadFile(env.ConfigFile)
	} else {
		env.Cfg, err = config.Load()
	}
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	env.Layout = env.Cfg.Layout.PagerLayout()

	opts := applog.Options{
		Level:     env.Cfg.Logging.Level,
		Format:    env.Cfg.Logging.Format,
		AddSource: env.Cfg.Logging.Source,
		File:      env.Cfg.Logging.File,
		Writer:    errWriter(cmd),
	}
	if cmd.Bool("debug") {
		opts.Level = "debug"
	}
	applog.Init(opts)
	env.Log = applog.WithComponent("cli")
	env.Log.Debug("Program started", slog.Any("args", os.Args), slog.String("runtime", runtime.Version()))
	if env.ConfigFile == "" {
		env.Log.Debug("Using per-user configuration")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := envFromContext(ctx)
	if env.Log != nil {
		env.Log.Debug("Program ended", slog.Any("parsed args", cmd.Args().Slice()))
	}
	if er := applog.Close(); er != nil {
		err = multierr.Append(err, fmt.Errorf("unable to close log file: %w", er))
	}
	return
}

// errWasHandled is set once the error has been logged so main does not print it twice.
var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	if env := envFromContext(ctx); env.Log != nil {
		env.Log.Error("Program ended with error", slog.Any("err", err))
		errWasHandled = true
	}
}

func errWriter(cmd *cli.Command) io.Writer {
	if cmd.ErrWriter != nil {
		return cmd.ErrWriter
	}
	return os.Stderr
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            "goscreenwriter",
		Usage:           "screenplay pagination and export",
		Version:         version.String() + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		ExitErrHandler:  exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE` (YAML)",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "log at debug level",
			},
		},
		Commands: []*cli.Command{
			paginateCommand(),
			exportCommand(),
			projectCommand(),
			dumpConfigCommand(),
		},
	}
}

func main() {
	defer crash.Recover(nil)

	ctx, stop := signal.NotifyContext(contextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)
	err := newApp().Run(ctx, os.Args)
	stop()
	if err != nil {
		if !errWasHandled {
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}
		os.Exit(1)
	}
}
