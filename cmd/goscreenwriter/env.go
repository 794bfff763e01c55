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
	"io"
	"log/slog"
	"os"

	"goscreenwriter/internal/config"
	"goscreenwriter/internal/pager"
)

// appEnv is the state shared by all commands once the command line is parsed.
type appEnv struct {
	Cfg        config.AppConfig
	ConfigFile string // explicit --config value; empty means the per-user file
	Layout     pager.Layout
	Log        *slog.Logger
	Out        io.Writer
}

type envKey struct{}

func contextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &appEnv{Out: os.Stdout, Layout: pager.DefaultLayout()})
}

func envFromContext(ctx context.Context) *appEnv {
	if env, ok := ctx.Value(envKey{}).(*appEnv); ok {
		return env
	}
	// commands always run under contextWithEnv; this keeps direct calls from tests safe
	return &appEnv{Out: os.Stdout, Layout: pager.DefaultLayout(), Log: slog.Default()}
}
