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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"

	"goscreenwriter/internal/config"
	"goscreenwriter/internal/crash"
	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/pager"
	"goscreenwriter/internal/script"
	"goscreenwriter/internal/storage"
)

const recentProjectsLimit = 10

func projectCommand() *cli.Command {
	return &cli.Command{
		Name:  "project",
		Usage: "manage a screenplay project directory",
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "create a project, optionally importing a script",
				ArgsUsage: "DIR",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "screenplay title"},
					&cli.StringFlag{Name: "from", Usage: "import `FILE` (.fountain, .txt or .json)"},
					charsetFlag(),
				},
				Action: runProjectInit,
			},
			{
				Name:      "open",
				Usage:     "print a project summary and remember it as recent",
				ArgsUsage: "DIR",
				Action:    runProjectOpen,
			},
			{
				Name:      "paginate",
				Usage:     "paginate the project, write continuation flags back and update the index",
				ArgsUsage: "DIR",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "reparse", Usage: "rebuild elements from script/screenplay.fountain first"},
				},
				Action: runProjectPaginate,
			},
			{
				Name:      "snapshot",
				Usage:     "record, list or prune script snapshots",
				ArgsUsage: "DIR",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "list", Usage: "list snapshots instead of recording one"},
					&cli.IntFlag{Name: "prune", Usage: "keep only the newest `N` snapshots"},
				},
				Action: runProjectSnapshot,
			},
			{
				Name:      "search",
				Usage:     "full-text search over the indexed elements",
				ArgsUsage: "DIR [QUERY]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "character", Usage: "only lines spoken by `NAME`"},
					&cli.StringSliceFlag{Name: "type", Usage: "restrict to element types"},
					&cli.IntFlag{Name: "page-from", Usage: "first page, inclusive"},
					&cli.IntFlag{Name: "page-to", Usage: "last page, inclusive"},
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "maximum results"},
				},
				Action: runProjectSearch,
			},
		},
	}
}

func projectDir(cmd *cli.Command) (string, error) {
	if cmd.NArg() < 1 {
		return "", fmt.Errorf("%s requires a project DIR", cmd.Name)
	}
	return filepath.Abs(cmd.Args().First())
}

func openProject(dir string) (*storage.ProjectHandle, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	ph, err := storage.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	return ph, nil
}

// crashHandle is the project a panic may autosave; with autosave off the
// crash report goes to the temp dir and the project is left untouched.
func crashHandle(env *appEnv, ph *storage.ProjectHandle) *storage.ProjectHandle {
	if !env.Cfg.General.Autosave {
		return nil
	}
	return ph
}

func runProjectInit(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	root, err := projectDir(cmd)
	if err != nil {
		return err
	}
	var (
		sp     domain.Screenplay
		source string
	)
	if from := cmd.String("from"); from != "" {
		if sp, err = loadScript(env, from, cmd.String("charset")); err != nil {
			return err
		}
		// plain-text imports keep their decoded source under script/
		if data, err := os.ReadFile(from); err == nil && script.DetectFormat(from, data) == script.FormatFountain {
			if source, err = script.Decode(data, cmd.String("charset")); err != nil {
				return err
			}
		}
	}
	if t := cmd.String("title"); t != "" {
		sp.Title = t
	}
	if sp.Title == "" {
		sp.Title = filepath.Base(root)
	}

	env.Log.Info("init project", slog.String("root", root), slog.String("title", sp.Title))
	ph, err := storage.InitProject(root, sp)
	if err != nil {
		return err
	}
	defer crash.Recover(crashHandle(env, ph))
	if source != "" {
		if err := storage.WriteScript(ph, source); err != nil {
			return err
		}
	}
	if err := storage.RebuildIndex(ctx, ph.Root, ph.Screenplay, env.Layout); err != nil {
		return err
	}
	_, err = fmt.Fprintf(env.Out, "Created project at %s (%d elements)\n", ph.Root, len(ph.Screenplay.Elements))
	return err
}

func runProjectOpen(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	root, err := projectDir(cmd)
	if err != nil {
		return err
	}
	ph, err := openProject(root)
	if err != nil {
		return err
	}
	defer crash.Recover(crashHandle(env, ph))
	if _, err := storage.DetectAndRebuildIndex(ctx, ph.Root, ph.Screenplay, env.Layout); err != nil {
		env.Log.Warn("index check failed", slog.Any("err", err))
	}

	pages := env.Layout.Paginate(ph.Screenplay.Elements)
	if err := printSummary(env.Out, ph.Screenplay, env.Layout, pages); err != nil {
		return err
	}
	runs, err := storage.ListPaginationRuns(ctx, ph.Root, 1)
	if err != nil {
		env.Log.Warn("list pagination runs failed", slog.Any("err", err))
	} else if len(runs) > 0 {
		r := runs[0]
		state := "stale"
		if r.Fingerprint == pager.Fingerprint(env.Layout, ph.Screenplay.Elements) {
			state = "current"
		}
		fmt.Fprintf(env.Out, "Last run: %s (%s)\n", r.TS.Local().Format(time.DateTime), state)
	}
	fmt.Fprintf(env.Out, "Root:     %s\n", ph.Root)

	// the recent list belongs to the per-user file; an explicit --config is left alone
	if env.ConfigFile == "" {
		env.Cfg.General.AddRecent(ph.Root, recentProjectsLimit)
		if err := config.Save(env.Cfg); err != nil {
			env.Log.Warn("save recent projects failed", slog.Any("err", err))
		}
	}
	return nil
}

func runProjectPaginate(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	root, err := projectDir(cmd)
	if err != nil {
		return err
	}
	ph, err := openProject(root)
	if err != nil {
		return err
	}
	defer crash.Recover(crashHandle(env, ph))

	if cmd.Bool("reparse") {
		text, err := storage.ReadScript(ph)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return errors.New("project has no script source to reparse")
		}
		els, perrs := script.Parse(text)
		for _, pe := range perrs {
			env.Log.Warn("script problem", slog.String("err", pe.Error()))
		}
		ph.Screenplay.Elements = els
	}

	svc := pager.NewService(pager.ServiceOptions{
		Layout:   env.Layout,
		Debounce: env.Cfg.Pager.Debounce(),
		CacheTTL: env.Cfg.Pager.CacheTTL(),
		Logger:   env.Log,
	})
	defer svc.Close()
	res := svc.Run(ph.Screenplay.Elements)

	ph.Screenplay.Elements = pager.MarkContinuations(ph.Screenplay.Elements, res.Pages)
	if err := storage.Save(ph); err != nil {
		return err
	}
	if err := storage.RecordPagination(ctx, ph.Root, env.Layout, ph.Screenplay.Elements, res.Pages); err != nil {
		return err
	}
	return printSummary(env.Out, ph.Screenplay, env.Layout, res.Pages)
}

func runProjectSnapshot(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	root, err := projectDir(cmd)
	if err != nil {
		return err
	}
	ph, err := openProject(root)
	if err != nil {
		return err
	}

	switch {
	case cmd.Bool("list"):
		snaps, err := storage.ListScriptSnapshots(ctx, ph, 0)
		if err != nil {
			return err
		}
		for _, s := range snaps {
			fmt.Fprintf(env.Out, "%s  %d bytes\n", s.TS.Local().Format(time.DateTime), len(s.Text))
		}
		return nil
	case cmd.IsSet("prune"):
		n, err := storage.PruneOldScriptSnapshots(ctx, ph, int(cmd.Int("prune")))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(env.Out, "Removed %d snapshot(s)\n", n)
		return err
	}

	text, err := storage.ReadScript(ph)
	if err != nil {
		return err
	}
	if err := storage.SaveScriptSnapshot(ctx, ph, text, time.Now()); err != nil {
		return err
	}
	_, err = fmt.Fprintln(env.Out, "Snapshot recorded")
	return err
}

func runProjectSearch(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	root, err := projectDir(cmd)
	if err != nil {
		return err
	}
	q := storage.SearchQuery{
		Text:      strings.Join(cmd.Args().Tail(), " "),
		Character: cmd.String("character"),
		Types:     cmd.StringSlice("type"),
		PageFrom:  int(cmd.Int("page-from")),
		PageTo:    int(cmd.Int("page-to")),
		Limit:     int(cmd.Int("limit")),
	}
	results, err := storage.Search(ctx, root, q)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(env.Out, "p%-3d %-13s %-36s %s\n", r.Page, r.Type, r.ElementID, r.Snippet)
	}
	return nil
}
